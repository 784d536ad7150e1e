package smtp

import (
	"bytes"
	"context"
	"errors"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/config"
	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
)

// SystemIdentity is the account used when a send carries no user
// credentials.
type SystemIdentity struct {
	Address  string
	Name     string
	Password string
}

type Deliverer struct {
	cfg      config.SMTPConfig
	system   SystemIdentity
	composer *message.Composer
	logger   *logrus.Logger
}

func NewDeliverer(cfg config.SMTPConfig, system SystemIdentity, composer *message.Composer, logger *logrus.Logger) *Deliverer {
	if composer == nil {
		composer = message.NewComposer(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Deliverer{cfg: cfg, system: system, composer: composer, logger: logger}
}

// Send delivers msg authenticated as creds, or as the system identity when
// creds is nil. The From header defaults to the authenticated identity.
func (d *Deliverer) Send(ctx context.Context, creds *model.Credentials, msg *model.OutboundMessage) error {
	identity, secret, from := d.identity(creds)
	if identity == "" {
		return mailerr.Errorf(mailerr.Delivery, "send", "no sender identity configured")
	}

	out := *msg
	if out.From == "" {
		out.From = from
	}

	rcpts, err := message.ParseAddresses(out.Recipients())
	if err != nil {
		return mailerr.New(mailerr.Delivery, "send", err)
	}
	if len(rcpts) == 0 {
		return mailerr.Errorf(mailerr.Delivery, "send", "no recipients")
	}
	to := make([]string, len(rcpts))
	for i, r := range rcpts {
		to[i] = r.Address
	}

	raw, err := d.composer.Bytes(&out)
	if err != nil {
		return mailerr.New(mailerr.Delivery, "compose", err)
	}

	log := d.logger.WithFields(logrus.Fields{
		"identity":   identity,
		"recipients": len(to),
		"subject":    out.Subject,
	})

	client, err := dial(ctx, d.cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Auth(sasl.NewPlainClient("", identity, secret)); err != nil {
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) {
			return mailerr.New(mailerr.Authentication, "smtp auth", err)
		}
		return mailerr.New(mailerr.Connection, "smtp auth", err)
	}

	if err := client.SendMail(identity, to, bytes.NewReader(raw)); err != nil {
		return mailerr.New(mailerr.Delivery, "send", err)
	}
	if err := client.Quit(); err != nil {
		log.WithError(err).Debug("SMTP quit failed")
	}

	log.Info("message delivered")
	return nil
}

func (d *Deliverer) Reply(ctx context.Context, creds *model.Credentials, msg *model.OutboundMessage, quote model.Quote) error {
	return d.Send(ctx, creds, ReplyMessage(msg, quote))
}

func (d *Deliverer) Forward(ctx context.Context, creds *model.Credentials, msg *model.OutboundMessage, quote model.Quote) error {
	return d.Send(ctx, creds, ForwardMessage(msg, quote))
}

// SendDetached sends msg as the system identity in its own goroutine. The
// returned channel receives exactly one result and is then closed; callers
// may ignore it. Cancelling ctx after the call does not abort the send.
func (d *Deliverer) SendDetached(ctx context.Context, msg *model.OutboundMessage) <-chan error {
	ctx = context.WithoutCancel(ctx)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := d.Send(ctx, nil, msg)
		if err != nil {
			d.logger.WithError(err).WithField("to", msg.To).Warn("detached send failed")
		}
		done <- err
	}()
	return done
}

func (d *Deliverer) identity(creds *model.Credentials) (identity, secret, from string) {
	if creds != nil {
		return creds.Identity, creds.Secret, creds.Identity
	}
	from = d.system.Address
	if d.system.Name != "" && d.system.Address != "" {
		from = (&mail.Address{Name: d.system.Name, Address: d.system.Address}).String()
	}
	return d.system.Address, d.system.Password, from
}
