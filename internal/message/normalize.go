package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/model"
)

const (
	FlagSeen      = `\Seen`
	FlagFlagged   = `\Flagged`
	FlagDraft     = `\Draft`
	FlagDeleted   = `\Deleted`
	FlagImportant = "Important"

	previewLength = 100
	unknownName   = "Unknown"
)

// Meta is what the server reports about a message besides its bytes.
type Meta struct {
	UID          uint32
	SeqNum       uint32
	Flags        []string
	InternalDate time.Time
}

func (m Meta) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

type NormalizerOptions struct {
	InlineLimit  int
	DownloadPath string
}

type Normalizer struct {
	categorizer *Categorizer
	opts        NormalizerOptions
}

func NewNormalizer(cat *Categorizer, opts NormalizerOptions) *Normalizer {
	if cat == nil {
		cat = NewCategorizer(DefaultCategoryTable())
	}
	if opts.InlineLimit <= 0 {
		opts.InlineLimit = 1 << 20
	}
	if opts.DownloadPath == "" {
		opts.DownloadPath = "/api/download-attachment"
	}
	return &Normalizer{categorizer: cat, opts: opts}
}

// Part is a non-body MIME part in document order.
type Part struct {
	Filename    string
	ContentType string
	Disposition string
	ContentID   string
	Content     []byte
}

// Parse decodes a raw RFC 5322 message into the flat Email shape.
func (n *Normalizer) Parse(raw []byte, meta Meta, folder string) (*model.Email, error) {
	env, err := readEnvelope(raw)
	if err != nil {
		return nil, err
	}

	senderName, senderEmail := firstAddress(env, "From")
	toName, toEmail := firstAddress(env, "To")

	category := n.categorizer.Categorize(senderEmail)

	email := &model.Email{
		ID:            meta.UID,
		MessageID:     strings.TrimSpace(env.GetHeader("Message-ID")),
		Sender:        senderName,
		SenderEmail:   senderEmail,
		To:            toName,
		ToEmail:       toEmail,
		Subject:       env.GetHeader("Subject"),
		Preview:       Preview(env.HTML, env.Text),
		Body:          Body(env.HTML, env.Text),
		Date:          messageDate(env, meta.InternalDate),
		Unread:        !meta.HasFlag(FlagSeen),
		Flagged:       meta.HasFlag(FlagFlagged),
		Important:     meta.HasFlag(FlagImportant),
		Category:      string(category),
		CategoryColor: n.categorizer.Color(category),
		Folder:        folder,
		Attachments:   []model.Attachment{},
	}

	for i, p := range collectParts(env) {
		email.Attachments = append(email.Attachments, n.attachment(p, i, meta.UID, folder))
	}

	return email, nil
}

func (n *Normalizer) attachment(p Part, index int, uid uint32, folder string) model.Attachment {
	filename := p.Filename
	if filename == "" {
		filename = fmt.Sprintf("attachment-%d", index)
	}

	q := url.Values{}
	q.Set("uid", strconv.FormatUint(uint64(uid), 10))
	q.Set("folder", folder)
	q.Set("index", strconv.Itoa(index))
	q.Set("filename", filename)

	a := model.Attachment{
		Filename:           filename,
		OriginalFilename:   p.Filename,
		Size:               len(p.Content),
		ContentType:        p.ContentType,
		URL:                n.opts.DownloadPath + "?" + q.Encode(),
		ContentID:          p.ContentID,
		ContentDisposition: p.Disposition,
		IsInline:           p.Disposition == "inline",
	}
	if len(p.Content) < n.opts.InlineLimit {
		a.Content = base64.StdEncoding.EncodeToString(p.Content)
	}
	return a
}

// ExtractParts returns the non-body parts of raw in the same order Parse
// lists them as attachments.
func ExtractParts(raw []byte) ([]Part, error) {
	env, err := readEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return collectParts(env), nil
}

func readEnvelope(raw []byte) (*enmime.Envelope, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, mailerr.Errorf(mailerr.Parse, "parse", "empty message")
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, mailerr.New(mailerr.Parse, "parse", err)
	}
	return env, nil
}

func collectParts(env *enmime.Envelope) []Part {
	wanted := make(map[*enmime.Part]struct{})
	for _, p := range env.Attachments {
		wanted[p] = struct{}{}
	}
	for _, list := range [][]*enmime.Part{env.Inlines, env.OtherParts} {
		for _, p := range list {
			if !isBodyPart(p) {
				wanted[p] = struct{}{}
			}
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	var parts []Part
	var walk func(p *enmime.Part)
	walk = func(p *enmime.Part) {
		for ; p != nil; p = p.NextSibling {
			if _, ok := wanted[p]; ok {
				parts = append(parts, toPart(p))
				delete(wanted, p)
			}
			walk(p.FirstChild)
		}
	}
	walk(env.Root)

	// Anything enmime reported outside the tree goes last.
	for _, list := range [][]*enmime.Part{env.Attachments, env.Inlines, env.OtherParts} {
		for _, p := range list {
			if _, ok := wanted[p]; ok {
				parts = append(parts, toPart(p))
				delete(wanted, p)
			}
		}
	}
	return parts
}

// isBodyPart reports whether an inline part is the message text itself.
// Composers mark the text/plain and text/html alternatives inline; they carry
// neither a filename nor a Content-ID.
func isBodyPart(p *enmime.Part) bool {
	if p.FileName != "" || p.ContentID != "" {
		return false
	}
	switch strings.ToLower(p.ContentType) {
	case "text/plain", "text/html":
		return true
	}
	return false
}

func toPart(p *enmime.Part) Part {
	contentType := p.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := strings.ToLower(p.Disposition)
	if disposition == "" {
		disposition = "attachment"
	}
	return Part{
		Filename:    p.FileName,
		ContentType: contentType,
		Disposition: disposition,
		ContentID:   strings.Trim(p.ContentID, "<>"),
		Content:     p.Content,
	}
}

func firstAddress(env *enmime.Envelope, header string) (name, address string) {
	list, err := env.AddressList(header)
	if err == nil && len(list) > 0 {
		return DisplayName(list[0].Name, list[0].Address), list[0].Address
	}

	raw := strings.TrimSpace(env.GetHeader(header))
	if raw == "" {
		return unknownName, ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return DisplayName(addr.Name, addr.Address), addr.Address
	}
	return raw, ""
}

// DisplayName prefers the display name, then the local part of the address.
func DisplayName(name, address string) string {
	if name = strings.Trim(strings.TrimSpace(name), `"`); name != "" {
		return name
	}
	if i := strings.Index(address, "@"); i > 0 {
		return address[:i]
	}
	if address != "" {
		return address
	}
	return unknownName
}

func messageDate(env *enmime.Envelope, fallback time.Time) time.Time {
	if h := env.GetHeader("Date"); h != "" {
		if t, err := mail.ParseDate(h); err == nil {
			return t
		}
	}
	return fallback
}
