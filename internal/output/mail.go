package output

import (
	"fmt"
	"strings"

	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
)

const dateLayout = "2006-01-02 15:04"

// Flags renders the per-message markers shown in listings: N for unread,
// * for starred and ! for important.
func Flags(e *model.Email) string {
	var b strings.Builder
	if e.Unread {
		b.WriteString("N")
	}
	if e.Flagged {
		b.WriteString("*")
	}
	if e.Important {
		b.WriteString("!")
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

func (f *Formatter) Page(p *model.Page) error {
	if f.JSON {
		return f.Success(p)
	}

	if len(p.Mails) == 0 {
		f.Printf("No messages in %s\n", p.Folder)
		return nil
	}

	f.Printf("%s (page %d, %d total)\n\n", p.Folder, p.Pagination.Page, p.Pagination.Total)

	table := f.NewTable("UID", "FLAGS", "FROM", "SUBJECT", "CATEGORY", "DATE")
	for i := range p.Mails {
		e := &p.Mails[i]
		att := ""
		if len(e.Attachments) > 0 {
			att = " @"
		}
		table.AddRow(
			fmt.Sprintf("%d", e.ID),
			Flags(e),
			Truncate(e.Sender, 25),
			Truncate(e.Subject, 50)+att,
			e.Category,
			e.Date.Local().Format(dateLayout),
		)
	}
	table.Flush()

	var nav []string
	if p.Pagination.HasPrev {
		nav = append(nav, fmt.Sprintf("previous: --page %d", p.Pagination.Page-1))
	}
	if p.Pagination.HasNext {
		nav = append(nav, fmt.Sprintf("next: --page %d", p.Pagination.Page+1))
	}
	if len(nav) > 0 && !f.Quiet {
		f.Printf("\n%s\n", f.MutedText(strings.Join(nav, "  ")))
	}
	return nil
}

// Email prints one message. The body is rendered as text unless html is
// set.
func (f *Formatter) Email(e *model.Email, html bool) error {
	if f.JSON {
		return f.Success(e)
	}

	f.Printf("From:     %s <%s>\n", e.Sender, e.SenderEmail)
	f.Printf("To:       %s <%s>\n", e.To, e.ToEmail)
	f.Printf("Date:     %s\n", e.Date.Local().Format(dateLayout))
	f.Printf("Subject:  %s\n", e.Subject)
	f.Printf("Category: %s\n", e.Category)
	f.Printf("Flags:    %s\n", Flags(e))
	f.Printf("\n%s\n\n", strings.Repeat("-", 60))

	body := e.Body
	if !html {
		body = message.RenderText(e.Body)
	}
	if strings.TrimSpace(body) == "" {
		body = "[No body content]"
	}
	f.Printf("%s\n", body)

	if len(e.Attachments) > 0 {
		f.Printf("\n")
		f.Attachments(e.Attachments)
	}
	return nil
}

func (f *Formatter) Attachments(atts []model.Attachment) {
	f.Printf("Attachments (%d):\n\n", len(atts))
	table := f.NewTable("INDEX", "FILENAME", "TYPE", "SIZE")
	for i, a := range atts {
		table.AddRow(
			fmt.Sprintf("%d", i),
			a.Filename,
			a.ContentType,
			FormatSize(int64(a.Size)),
		)
	}
	table.Flush()
}
