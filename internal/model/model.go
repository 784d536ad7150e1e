package model

import (
	"strings"
	"time"
	"unicode"
)

// Credentials identify the mailbox owner for a single call. They are never
// retained after the call returns.
type Credentials struct {
	Identity string
	Secret   string
}

func (c Credentials) String() string {
	return c.Identity + ":****"
}

type MessageRef struct {
	Folder string `json:"folder"`
	UID    uint32 `json:"uid"`
}

type Email struct {
	ID            uint32       `json:"id"`
	MessageID     string       `json:"messageId,omitempty"`
	Sender        string       `json:"sender"`
	SenderEmail   string       `json:"senderEmail"`
	To            string       `json:"to"`
	ToEmail       string       `json:"toEmail"`
	Subject       string       `json:"subject"`
	Preview       string       `json:"preview"`
	Body          string       `json:"body"`
	Date          time.Time    `json:"date"`
	Unread        bool         `json:"unread"`
	Flagged       bool         `json:"flagged"`
	Important     bool         `json:"important"`
	Category      string       `json:"category"`
	CategoryColor string       `json:"categoryColor"`
	Folder        string       `json:"folder"`
	Attachments   []Attachment `json:"attachments"`
}

type Attachment struct {
	Filename           string `json:"filename"`
	OriginalFilename   string `json:"originalFilename"`
	Size               int    `json:"size"`
	ContentType        string `json:"contentType"`
	URL                string `json:"url"`
	ContentID          string `json:"contentId,omitempty"`
	ContentDisposition string `json:"contentDisposition"`
	Content            string `json:"content,omitempty"`
	IsInline           bool   `json:"isInline"`
}

type AttachmentContent struct {
	Filename    string
	ContentType string
	Disposition string
	Content     []byte
	Size        int
}

type Pagination struct {
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	Total   uint32 `json:"total"`
	HasNext bool   `json:"hasNext"`
	HasPrev bool   `json:"hasPrev"`
}

type Page struct {
	Folder     string     `json:"folder"`
	UserName   string     `json:"userName"`
	Mails      []Email    `json:"mails"`
	Pagination Pagination `json:"pagination"`
}

type OutboundAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Path        string `json:"path,omitempty"`
	Content     string `json:"content,omitempty"` // base64
	URL         string `json:"url,omitempty"`
	Size        int    `json:"size,omitempty"`
}

type OutboundMessage struct {
	From        string               `json:"from,omitempty"`
	To          []string             `json:"to"`
	Cc          []string             `json:"cc,omitempty"`
	Bcc         []string             `json:"bcc,omitempty"`
	Subject     string               `json:"subject"`
	HTML        string               `json:"html,omitempty"`
	Text        string               `json:"text,omitempty"`
	Attachments []OutboundAttachment `json:"attachments,omitempty"`
	InReplyTo   string               `json:"inReplyTo,omitempty"`
	References  []string             `json:"references,omitempty"`
}

// IsEmpty reports whether the message carries nothing worth persisting.
func (m *OutboundMessage) IsEmpty() bool {
	return len(m.To) == 0 && strings.TrimSpace(m.Subject) == "" &&
		strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" &&
		len(m.Attachments) == 0
}

// Recipients returns To, Cc and Bcc in order.
func (m *OutboundMessage) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Quote is the original content carried beneath a reply or forward.
type Quote struct {
	HTML string
	Text string
}

func (q Quote) IsZero() bool {
	return q.HTML == "" && q.Text == ""
}

// UserName turns the local part of an identity into a display name:
// "john.doe@example.com" becomes "John Doe".
func UserName(identity string) string {
	local := identity
	if i := strings.Index(identity, "@"); i >= 0 {
		local = identity[:i]
	}
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
