package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/config"
	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/model"
)

// Dialer opens authenticated sessions against one IMAP server. It holds no
// connections itself; every Open returns a fresh session.
type Dialer struct {
	cfg    config.IMAPConfig
	logger *logrus.Logger
}

func NewDialer(cfg config.IMAPConfig, logger *logrus.Logger) *Dialer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dialer{cfg: cfg, logger: logger}
}

// Session is one authenticated connection. It must be closed exactly once;
// Close is safe to call again and returns the first result.
type Session struct {
	client *imapclient.Client
	log    *logrus.Entry

	lock chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func (d *Dialer) Open(ctx context.Context, creds model.Credentials) (*Session, error) {
	addr := d.cfg.Addr()
	log := d.logger.WithFields(logrus.Fields{
		"server":   addr,
		"identity": creds.Identity,
	})

	timeout := d.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	nd := &net.Dialer{Timeout: timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, mailerr.New(mailerr.Connection, "dial", err)
	}

	options := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         d.cfg.Host,
			InsecureSkipVerify: d.cfg.InsecureSkipVerify,
		},
	}

	var client *imapclient.Client
	switch d.cfg.Security {
	case config.SecurityNone:
		client = imapclient.New(conn, options)
	case config.SecurityStartTLS:
		client, err = imapclient.NewStartTLS(conn, options)
		if err != nil {
			conn.Close()
			return nil, mailerr.New(mailerr.Connection, "starttls", err)
		}
	default:
		tlsConn := tls.Client(conn, options.TLSConfig)
		hsCtx, cancel := context.WithTimeout(ctx, timeout)
		err = tlsConn.HandshakeContext(hsCtx)
		cancel()
		if err != nil {
			conn.Close()
			return nil, mailerr.New(mailerr.Connection, "tls handshake", err)
		}
		client = imapclient.New(tlsConn, options)
	}

	if err := client.Login(creds.Identity, creds.Secret).Wait(); err != nil {
		client.Close()
		var imapErr *imap.Error
		if errors.As(err, &imapErr) {
			return nil, mailerr.New(mailerr.Authentication, "login", err)
		}
		return nil, mailerr.New(mailerr.Connection, "login", err)
	}

	log.Debug("IMAP session opened")
	return &Session{
		client: client,
		log:    log,
		lock:   make(chan struct{}, 1),
	}, nil
}

// WithSession opens a session, runs fn and closes the session on every
// path, including a panic in fn.
func (d *Dialer) WithSession(ctx context.Context, creds model.Credentials, fn func(*Session) error) error {
	s, err := d.Open(ctx, creds)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.client.Logout().Wait(); err != nil {
			s.log.WithError(err).Debug("IMAP logout failed")
		}
		s.closeErr = s.client.Close()
		s.log.Debug("IMAP session closed")
	})
	return s.closeErr
}

// Mailbox is a folder selected under the session lock. It is only valid
// inside the callback that received it.
type Mailbox struct {
	s        *Session
	name     string
	total    uint32
	readOnly bool
}

func (m *Mailbox) Name() string { return m.name }

// Total is the message count at the moment the folder was selected.
func (m *Mailbox) Total() uint32 { return m.total }

// WithLock selects folder read-write and runs fn while holding the session
// lock. A session holds at most one lock; asking for a second one while the
// first is held fails with ErrLockHeld.
func (s *Session) WithLock(ctx context.Context, folder string, fn func(*Mailbox) error) error {
	return s.withMailbox(ctx, folder, false, fn)
}

// WithReadLock is WithLock with the folder examined read-only, so fetching
// never changes \Seen.
func (s *Session) WithReadLock(ctx context.Context, folder string, fn func(*Mailbox) error) error {
	return s.withMailbox(ctx, folder, true, fn)
}

func (s *Session) withMailbox(ctx context.Context, folder string, readOnly bool, fn func(*Mailbox) error) error {
	if err := ctx.Err(); err != nil {
		return mailerr.New(mailerr.Folder, "lock "+folder, err)
	}
	select {
	case s.lock <- struct{}{}:
	default:
		return mailerr.New(mailerr.Folder, "lock "+folder, mailerr.ErrLockHeld)
	}
	defer func() { <-s.lock }()

	data, err := s.client.Select(folder, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
	if err != nil {
		return mailerr.New(mailerr.Folder, "select "+folder, err)
	}
	s.log.WithFields(logrus.Fields{
		"folder":   folder,
		"messages": data.NumMessages,
		"readonly": readOnly,
	}).Debug("mailbox locked")

	return fn(&Mailbox{s: s, name: folder, total: data.NumMessages, readOnly: readOnly})
}
