package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/imap"
	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
)

// FetchPage returns one page of folder, newest message first. Messages that
// fail to parse are logged and left out; the rest of the page still loads.
func (s *Service) FetchPage(ctx context.Context, creds model.Credentials, folder string, page, limit int) (*model.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}

	result := &model.Page{
		Folder:   folder,
		UserName: model.UserName(creds.Identity),
		Mails:    []model.Email{},
	}
	log := s.logger.WithFields(logrus.Fields{
		"folder": folder,
		"page":   page,
		"limit":  limit,
	})

	err := s.dialer.WithSession(ctx, creds, func(sess *imap.Session) error {
		return sess.WithReadLock(ctx, folder, func(mb *imap.Mailbox) error {
			total := mb.Total()
			result.Pagination = imap.NewPagination(page, limit, total)

			r, ok := imap.ComputeRange(total, page, limit)
			if !ok {
				return nil
			}

			return mb.FetchRange(r, func(raw []byte, meta message.Meta) error {
				email, err := s.parse(raw, meta, folder)
				if err != nil {
					log.WithError(err).WithField("uid", meta.UID).Warn("skipping unparseable message")
					return nil
				}
				result.Mails = append(result.Mails, *email)
				return nil
			}, func(seq uint32, err error) {
				log.WithError(err).WithField("seq", seq).Warn("skipping message that could not be fetched")
			})
		})
	})
	if err != nil {
		return nil, err
	}

	// fetched ascending, served newest first
	for i, j := 0, len(result.Mails)-1; i < j; i, j = i+1, j-1 {
		result.Mails[i], result.Mails[j] = result.Mails[j], result.Mails[i]
	}

	log.WithField("count", len(result.Mails)).Debug("page fetched")
	return result, nil
}

// GetEmail reads a single message by UID without marking it seen.
func (s *Service) GetEmail(ctx context.Context, creds model.Credentials, folder string, uid uint32) (*model.Email, error) {
	var email *model.Email
	err := s.dialer.WithSession(ctx, creds, func(sess *imap.Session) error {
		return sess.WithReadLock(ctx, folder, func(mb *imap.Mailbox) error {
			raw, meta, err := mb.FetchUID(uid)
			if err != nil {
				return err
			}
			email, err = s.parse(raw, meta, folder)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return email, nil
}

// DownloadAttachment re-fetches the message and returns the part at index,
// counted the same way FetchPage lists attachments.
func (s *Service) DownloadAttachment(ctx context.Context, creds model.Credentials, uid uint32, folder string, index int) (*model.AttachmentContent, error) {
	var content *model.AttachmentContent
	err := s.dialer.WithSession(ctx, creds, func(sess *imap.Session) error {
		return sess.WithReadLock(ctx, folder, func(mb *imap.Mailbox) error {
			raw, _, err := mb.FetchUID(uid)
			if err != nil {
				return err
			}
			parts, err := message.ExtractParts(raw)
			if err != nil {
				return err
			}
			if index < 0 || index >= len(parts) {
				return mailerr.Errorf(mailerr.Index, fmt.Sprintf("attachment uid %d", uid),
					"index %d out of range, message has %d attachments", index, len(parts))
			}

			p := parts[index]
			filename := p.Filename
			if filename == "" {
				filename = fmt.Sprintf("attachment-%d", index)
			}
			content = &model.AttachmentContent{
				Filename:    filename,
				ContentType: p.ContentType,
				Disposition: p.Disposition,
				Content:     p.Content,
				Size:        len(p.Content),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"folder": folder,
		"uid":    uid,
		"index":  index,
		"size":   content.Size,
	}).Debug("attachment extracted")
	return content, nil
}
