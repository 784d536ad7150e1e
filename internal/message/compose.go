package message

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/bscott/mailsync/internal/model"
)

// Composer serializes outbound messages to RFC 5322 bytes.
type Composer struct {
	resolver *Resolver
	now      func() time.Time
}

func NewComposer(resolver *Resolver) *Composer {
	if resolver == nil {
		resolver = NewResolver("", 0)
	}
	return &Composer{resolver: resolver, now: time.Now}
}

// Bytes composes msg into a new buffer.
func (c *Composer) Bytes(msg *model.OutboundMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Compose(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Composer) Compose(w io.Writer, msg *model.OutboundMessage) error {
	header, err := c.header(msg)
	if err != nil {
		return err
	}

	// Attachments are resolved before anything is written to w.
	files := make([]File, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		r, err := c.resolver.Resolve(a)
		if err != nil {
			return err
		}
		files = append(files, r)
	}

	if len(files) == 0 {
		iw, err := mail.CreateInlineWriter(w, header)
		if err != nil {
			return fmt.Errorf("failed to create message writer: %w", err)
		}
		if err := writeBodies(iw, msg); err != nil {
			return err
		}
		return iw.Close()
	}

	mw, err := mail.CreateWriter(w, header)
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("failed to create body part: %w", err)
	}
	if err := writeBodies(iw, msg); err != nil {
		return err
	}
	if err := iw.Close(); err != nil {
		return err
	}

	for _, f := range files {
		var ah mail.AttachmentHeader
		ah.SetFilename(f.Filename)
		mediaType, params, err := mime.ParseMediaType(f.ContentType)
		if err != nil {
			mediaType, params = "application/octet-stream", nil
		}
		ah.SetContentType(mediaType, params)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("failed to create attachment %s: %w", f.Filename, err)
		}
		if _, err := aw.Write(f.Data); err != nil {
			return fmt.Errorf("failed to write attachment %s: %w", f.Filename, err)
		}
		if err := aw.Close(); err != nil {
			return err
		}
	}

	return mw.Close()
}

func (c *Composer) header(msg *model.OutboundMessage) (mail.Header, error) {
	var h mail.Header
	h.SetDate(c.now())
	h.SetSubject(msg.Subject)

	from, err := ParseAddresses([]string{msg.From})
	if err != nil {
		return h, fmt.Errorf("invalid from address: %w", err)
	}
	if len(from) > 0 {
		h.SetAddressList("From", from)
	}

	for _, field := range []struct {
		name  string
		addrs []string
	}{{"To", msg.To}, {"Cc", msg.Cc}} {
		list, err := ParseAddresses(field.addrs)
		if err != nil {
			return h, fmt.Errorf("invalid %s address: %w", strings.ToLower(field.name), err)
		}
		if len(list) > 0 {
			h.SetAddressList(field.name, list)
		}
	}

	if msg.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{strings.Trim(msg.InReplyTo, "<>")})
	}
	if len(msg.References) > 0 {
		refs := make([]string, len(msg.References))
		for i, r := range msg.References {
			refs[i] = strings.Trim(r, "<>")
		}
		h.SetMsgIDList("References", refs)
	}

	domain := "localhost"
	if len(from) > 0 {
		if i := strings.LastIndex(from[0].Address, "@"); i >= 0 {
			domain = from[0].Address[i+1:]
		}
	}
	h.SetMessageID(uuid.NewString() + "@" + domain)

	return h, nil
}

func writeBodies(iw *mail.InlineWriter, msg *model.OutboundMessage) error {
	text := msg.Text
	if text == "" && msg.HTML != "" {
		text = RenderText(msg.HTML)
	}

	parts := []struct {
		contentType string
		body        string
	}{{"text/plain", text}, {"text/html", msg.HTML}}

	for _, p := range parts {
		if p.body == "" {
			continue
		}
		var h mail.InlineHeader
		h.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		w, err := iw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("failed to create %s part: %w", p.contentType, err)
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ParseAddresses parses entries that may each hold a comma separated list.
// Empty entries are skipped.
func ParseAddresses(entries []string) ([]*mail.Address, error) {
	var out []*mail.Address
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		list, err := mail.ParseAddressList(e)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", e, err)
		}
		out = append(out, list...)
	}
	return out, nil
}
