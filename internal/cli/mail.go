package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
	"github.com/bscott/mailsync/internal/service"
)

var errNotConfigured = errors.New("not configured - run 'mailsync config init' first")

// stdin is swapped in tests.
var stdin io.Reader = os.Stdin

func (c *MailListCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}

	page, err := ctx.Service().FetchPage(context.Background(), creds, ctx.folder(c.Folder), c.Page, ctx.limit(c.Limit))
	if err != nil {
		return err
	}

	if c.Unread {
		unread := page.Mails[:0]
		for _, m := range page.Mails {
			if m.Unread {
				unread = append(unread, m)
			}
		}
		page.Mails = unread
	}

	return ctx.Formatter.Page(page)
}

func (c *MailReadCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}
	uid, err := parseUID(c.UID)
	if err != nil {
		return err
	}

	email, err := ctx.Service().GetEmail(context.Background(), creds, ctx.folder(c.Folder), uid)
	if err != nil {
		return err
	}
	return ctx.Formatter.Email(email, c.HTML)
}

func (c *MailFlagCmd) Run(ctx *Context) error {
	type change struct {
		op    service.Op
		value bool
	}
	var changes []change
	if c.Read || c.Unread {
		changes = append(changes, change{service.OpRead, c.Read})
	}
	if c.Star || c.Unstar {
		changes = append(changes, change{service.OpStarred, c.Star})
	}
	if c.Important || c.Unimportant {
		changes = append(changes, change{service.OpImportant, c.Important})
	}
	if len(changes) == 0 {
		return fmt.Errorf("specify at least one of --read, --unread, --star, --unstar, --important, --unimportant")
	}

	return forEachUID(ctx, c.UIDs, c.Folder, "updated", func(creds model.Credentials, ref model.MessageRef) error {
		for _, ch := range changes {
			if err := ctx.Service().Mutate(context.Background(), creds, ch.op, ref, service.MutateArgs{Value: ch.value}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *MailDeleteCmd) Run(ctx *Context) error {
	return forEachUID(ctx, c.UIDs, c.Folder, "deleted", func(creds model.Credentials, ref model.MessageRef) error {
		return ctx.Service().Delete(context.Background(), creds, ref)
	})
}

func (c *MailMoveCmd) Run(ctx *Context) error {
	dest := service.CanonicalFolder(c.Destination)
	return forEachUID(ctx, c.UIDs, c.Folder, "moved to "+dest, func(creds model.Credentials, ref model.MessageRef) error {
		return ctx.Service().Move(context.Background(), creds, ref, dest)
	})
}

// forEachUID applies fn to every UID and reports the outcome per message.
// It stops at the first failure.
func forEachUID(ctx *Context, raw []string, folder, verb string, fn func(model.Credentials, model.MessageRef) error) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}
	uids, err := parseUIDs(raw)
	if err != nil {
		return err
	}

	folder = ctx.folder(folder)
	done := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if err := fn(creds, model.MessageRef{Folder: folder, UID: uid}); err != nil {
			return err
		}
		done = append(done, uid)
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.Success(map[string]interface{}{
			"folder": folder,
			"uids":   done,
		})
	}
	ctx.Formatter.PrintSuccess(fmt.Sprintf("%d message(s) %s", len(done), verb))
	return nil
}

func (c *MailDownloadCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}
	uid, err := parseUID(c.UID)
	if err != nil {
		return err
	}

	att, err := ctx.Service().DownloadAttachment(context.Background(), creds, uid, ctx.folder(c.Folder), c.Index)
	if err != nil {
		return err
	}

	outPath := c.Out
	if outPath == "" {
		outPath = filepath.Base(att.Filename)
	}
	if err := os.WriteFile(outPath, att.Content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.Success(map[string]interface{}{
			"filename":     att.Filename,
			"content_type": att.ContentType,
			"disposition":  att.Disposition,
			"size":         att.Size,
			"output_path":  outPath,
		})
	}
	ctx.Formatter.PrintSuccess(fmt.Sprintf("Saved %s (%d bytes) to %s", att.Filename, att.Size, outPath))
	return nil
}

func (c *MailSendCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}

	body := c.Body
	if body == "" && c.HTML == "" {
		if body, err = readStdin(); err != nil {
			return err
		}
	}
	if body == "" && c.HTML == "" {
		return fmt.Errorf("no message body provided - use --body, --html or pipe via stdin")
	}

	msg := &model.OutboundMessage{
		To:          c.To,
		Cc:          c.CC,
		Bcc:         c.BCC,
		Subject:     c.Subject,
		Text:        body,
		HTML:        c.HTML,
		Attachments: attachments(c.Attach),
	}
	if err := ctx.Service().Deliver(context.Background(), &creds, msg, service.ModeSend, model.Quote{}); err != nil {
		return err
	}
	return sent(ctx, "Email sent", msg.To, msg.Subject)
}

func (c *MailReplyCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}
	uid, err := parseUID(c.UID)
	if err != nil {
		return err
	}

	body := c.Body
	if body == "" {
		if body, err = readStdin(); err != nil {
			return err
		}
	}
	if body == "" {
		return fmt.Errorf("no reply body provided - use --body or pipe via stdin")
	}

	orig, err := ctx.Service().GetEmail(context.Background(), creds, ctx.folder(c.Folder), uid)
	if err != nil {
		return err
	}

	msg := &model.OutboundMessage{
		To:          replyRecipients(orig, creds.Identity, c.All),
		Subject:     orig.Subject,
		Text:        body,
		Attachments: attachments(c.Attach),
	}
	if orig.MessageID != "" {
		msg.InReplyTo = orig.MessageID
		msg.References = []string{orig.MessageID}
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("message %d has no sender to reply to", uid)
	}

	if err := ctx.Service().Deliver(context.Background(), &creds, msg, service.ModeReply, quoteOf(orig)); err != nil {
		return err
	}
	return sent(ctx, "Reply sent", msg.To, msg.Subject)
}

func (c *MailForwardCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}
	uid, err := parseUID(c.UID)
	if err != nil {
		return err
	}

	orig, err := ctx.Service().GetEmail(context.Background(), creds, ctx.folder(c.Folder), uid)
	if err != nil {
		return err
	}

	msg := &model.OutboundMessage{
		To:          c.To,
		Subject:     orig.Subject,
		Text:        c.Body,
		Attachments: attachments(c.Attach),
	}
	if err := ctx.Service().Deliver(context.Background(), &creds, msg, service.ModeForward, quoteOf(orig)); err != nil {
		return err
	}
	return sent(ctx, "Email forwarded", msg.To, msg.Subject)
}

func (c *DraftSaveCmd) Run(ctx *Context) error {
	creds, err := ctx.Credentials()
	if err != nil {
		return err
	}

	body := c.Body
	if body == "" {
		if body, err = readStdin(); err != nil {
			return err
		}
	}

	saved, err := ctx.Service().SaveDraft(context.Background(), creds, &model.OutboundMessage{
		To:          c.To,
		Cc:          c.CC,
		Subject:     c.Subject,
		Text:        body,
		Attachments: attachments(c.Attach),
	})
	if err != nil {
		return err
	}

	if ctx.Formatter.JSON {
		return ctx.Formatter.Success(map[string]interface{}{
			"saved":   saved,
			"folder":  ctx.Config.Folders.Drafts,
			"subject": c.Subject,
		})
	}
	if !saved {
		ctx.Formatter.PrintSuccess("Draft is empty, nothing saved")
		return nil
	}
	ctx.Formatter.PrintSuccess("Draft saved to " + ctx.Config.Folders.Drafts)
	return nil
}

func sent(ctx *Context, what string, to []string, subject string) error {
	if ctx.Formatter.JSON {
		return ctx.Formatter.Success(map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
	}
	ctx.Formatter.PrintSuccess(fmt.Sprintf("%s to %s", what, strings.Join(to, ", ")))
	return nil
}

// replyRecipients answers the sender and, for reply-all, the original
// recipient too, leaving out the replying account itself.
func replyRecipients(orig *model.Email, self string, all bool) []string {
	var to []string
	seen := map[string]bool{strings.ToLower(self): true}
	add := func(addr string) {
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			return
		}
		seen[key] = true
		to = append(to, addr)
	}

	add(orig.SenderEmail)
	if all {
		add(orig.ToEmail)
	}
	return to
}

func quoteOf(e *model.Email) model.Quote {
	return model.Quote{
		HTML: e.Body,
		Text: message.RenderText(e.Body),
	}
}

func attachments(paths []string) []model.OutboundAttachment {
	if len(paths) == 0 {
		return nil
	}
	out := make([]model.OutboundAttachment, len(paths))
	for i, p := range paths {
		out[i] = model.OutboundAttachment{Filename: filepath.Base(p), Path: p}
	}
	return out
}

func parseUID(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid message UID %q", s)
	}
	return uint32(n), nil
}

func parseUIDs(raw []string) ([]uint32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one message UID is required")
	}
	uids := make([]uint32, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			uid, err := parseUID(part)
			if err != nil {
				return nil, err
			}
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

// readStdin returns piped input, or "" when stdin is a terminal.
func readStdin() (string, error) {
	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}
