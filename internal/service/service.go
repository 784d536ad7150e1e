// Package service exposes the mailbox operations callers use: paged reads,
// per-message mutations, draft and sent-copy persistence, attachment
// download and delivery. Every call opens its own IMAP session and closes it
// before returning.
package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/config"
	"github.com/bscott/mailsync/internal/imap"
	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
	"github.com/bscott/mailsync/internal/smtp"
)

// InboxName is the canonical name of the inbox on the store.
const InboxName = "INBOX"

type parseFunc func(raw []byte, meta message.Meta, folder string) (*model.Email, error)

type Service struct {
	dialer    *imap.Dialer
	composer  *message.Composer
	deliverer *smtp.Deliverer
	logger    *logrus.Logger

	folders      config.FoldersConfig
	defaultLimit int
	system       config.SystemConfig

	parse parseFunc
}

// New wires a Service from cfg. The system identity password is taken from
// cfg.System.Password as is; callers that keep it in the keyring resolve it
// before calling New.
func New(cfg *config.Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	categorizer := message.NewCategorizer(message.TableFromConfig(cfg.Categories))
	normalizer := message.NewNormalizer(categorizer, message.NormalizerOptions{
		InlineLimit:  cfg.Attachments.InlineLimit,
		DownloadPath: cfg.Attachments.DownloadPath,
	})
	resolver := message.NewResolver(cfg.Attachments.UploadDir, cfg.Attachments.FetchTimeout)
	composer := message.NewComposer(resolver)

	deliverer := smtp.NewDeliverer(cfg.SMTP, smtp.SystemIdentity{
		Address:  cfg.System.Address,
		Name:     cfg.System.Name,
		Password: cfg.System.Password,
	}, composer, logger)

	folders := cfg.Folders
	if folders.Inbox == "" {
		folders.Inbox = InboxName
	}
	limit := cfg.Defaults.Limit
	if limit <= 0 {
		limit = 10
	}

	return &Service{
		dialer:       imap.NewDialer(cfg.IMAP, logger),
		composer:     composer,
		deliverer:    deliverer,
		logger:       logger,
		folders:      folders,
		defaultLimit: limit,
		system:       cfg.System,
		parse:        normalizer.Parse,
	}
}

// CanonicalFolder maps caller-facing folder aliases to store names. Only
// the inbox has an alias: "inbox" in any case becomes INBOX.
func CanonicalFolder(name string) string {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, InboxName) {
		return InboxName
	}
	return name
}
