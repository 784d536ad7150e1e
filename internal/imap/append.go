package imap

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/bscott/mailsync/internal/mailerr"
)

// Append stores a pre-composed message in folder with the given flags. The
// folder is locked for the duration so the append cannot interleave with
// other work on the same session.
func (s *Session) Append(ctx context.Context, folder string, raw []byte, flags []string) error {
	return s.WithLock(ctx, folder, func(m *Mailbox) error {
		return m.Append(raw, flags)
	})
}

func (m *Mailbox) Append(raw []byte, flags []string) error {
	op := "append " + m.name
	if len(raw) == 0 {
		return mailerr.Errorf(mailerr.Append, op, "empty message")
	}

	imapFlags := make([]imap.Flag, len(flags))
	for i, f := range flags {
		imapFlags[i] = imap.Flag(f)
	}

	cmd := m.s.client.Append(m.name, int64(len(raw)), &imap.AppendOptions{
		Flags: imapFlags,
		Time:  time.Now(),
	})
	if _, err := cmd.Write(raw); err != nil {
		cmd.Close()
		return mailerr.New(mailerr.Append, op, fmt.Errorf("write: %w", err))
	}
	if err := cmd.Close(); err != nil {
		return mailerr.New(mailerr.Append, op, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return mailerr.New(mailerr.Append, op, err)
	}

	m.s.log.WithField("folder", m.name).WithField("size", len(raw)).Debug("message appended")
	return nil
}
