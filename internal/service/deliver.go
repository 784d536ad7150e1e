package service

import (
	"context"
	"fmt"

	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
	"github.com/bscott/mailsync/internal/smtp"
)

type Mode string

const (
	ModeSend    Mode = "send"
	ModeReply   Mode = "reply"
	ModeForward Mode = "forward"
)

// Deliver sends msg and, when sent as a user, stores a copy in the sent
// folder. A failed copy is logged and does not fail the call since the
// message has already left. creds nil sends as the system identity.
func (s *Service) Deliver(ctx context.Context, creds *model.Credentials, msg *model.OutboundMessage, mode Mode, quote model.Quote) error {
	out := *msg
	if out.HTML == "" && out.Text != "" {
		out.HTML = message.WrapHTML("div", out.Text)
	}
	if out.From == "" && creds != nil {
		out.From = creds.Identity
	}

	var prepared *model.OutboundMessage
	switch mode {
	case ModeSend, "":
		prepared = &out
	case ModeReply:
		prepared = smtp.ReplyMessage(&out, quote)
	case ModeForward:
		prepared = smtp.ForwardMessage(&out, quote)
	default:
		return mailerr.Errorf(mailerr.Delivery, "deliver", "unknown mode %q", mode)
	}

	if err := s.deliverer.Send(ctx, creds, prepared); err != nil {
		return err
	}

	if creds == nil {
		return nil
	}
	if err := s.SaveSentCopy(ctx, *creds, prepared); err != nil {
		s.logger.WithError(err).
			WithField("folder", s.folders.Sent).
			WithField("subject", prepared.Subject).
			Error("failed to save sent copy")
	}
	return nil
}

// Login loads the first inbox page. When a system identity is configured a
// welcome message is sent to the user in the background; its outcome
// arrives on the returned channel, which is closed immediately when there
// is nothing to send. A welcome failure never fails the login.
func (s *Service) Login(ctx context.Context, creds model.Credentials) (*model.Page, <-chan error, error) {
	page, err := s.FetchPage(ctx, creds, s.folders.Inbox, 1, s.defaultLimit)
	if err != nil {
		return nil, nil, err
	}

	if !s.system.Welcome || s.system.Address == "" {
		done := make(chan error)
		close(done)
		return page, done, nil
	}
	return page, s.deliverer.SendDetached(ctx, s.welcomeMessage(creds.Identity)), nil
}

func (s *Service) welcomeMessage(to string) *model.OutboundMessage {
	name := s.system.Name
	if name == "" {
		name = "Mailsync"
	}
	return &model.OutboundMessage{
		To:      []string{to},
		Subject: fmt.Sprintf("Welcome to %s!", name),
		HTML:    fmt.Sprintf("<div><h2>Welcome to %s!</h2><p>You have successfully logged in.</p></div>", name),
		Text:    fmt.Sprintf("Welcome to %s! You have successfully logged in.", name),
	}
}
