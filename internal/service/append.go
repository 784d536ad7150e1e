package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/imap"
	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
)

var (
	sentFlags  = []string{message.FlagSeen}
	draftFlags = []string{message.FlagSeen, message.FlagDraft}
)

// AppendDraftOrSent composes msg and stores it in folder. Messages stored in
// the drafts folder are flagged as drafts; anything else is stored seen.
func (s *Service) AppendDraftOrSent(ctx context.Context, creds model.Credentials, folder string, msg *model.OutboundMessage) error {
	out := *msg
	if out.From == "" {
		out.From = creds.Identity
	}

	raw, err := s.composer.Bytes(&out)
	if err != nil {
		return mailerr.New(mailerr.Append, "compose for "+folder, err)
	}

	flags := sentFlags
	if strings.EqualFold(folder, s.folders.Drafts) {
		folder = s.folders.Drafts
		flags = draftFlags
	}

	err = s.dialer.WithSession(ctx, creds, func(sess *imap.Session) error {
		return sess.Append(ctx, folder, raw, flags)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"folder":  folder,
		"subject": out.Subject,
		"size":    len(raw),
	}).Info("message stored")
	return nil
}

// SaveDraft stores msg in the drafts folder. A draft with no recipients,
// subject, body or attachments is not stored and saved reports false.
func (s *Service) SaveDraft(ctx context.Context, creds model.Credentials, msg *model.OutboundMessage) (saved bool, err error) {
	if msg.IsEmpty() {
		s.logger.WithField("identity", creds.Identity).Debug("empty draft not saved")
		return false, nil
	}
	out := *msg
	if out.HTML == "" && out.Text != "" {
		out.HTML = message.WrapHTML("p", out.Text)
	}
	if err := s.AppendDraftOrSent(ctx, creds, s.folders.Drafts, &out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) SaveSentCopy(ctx context.Context, creds model.Credentials, msg *model.OutboundMessage) error {
	return s.AppendDraftOrSent(ctx, creds, s.folders.Sent, msg)
}
