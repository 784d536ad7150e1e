package smtp

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/bscott/mailsync/internal/config"
	"github.com/bscott/mailsync/internal/mailerr"
)

// ConnectTimeout is used when the config does not set one.
const ConnectTimeout = 30 * time.Second

// dial connects to the SMTP server with the configured security mode.
func dial(ctx context.Context, cfg config.SMTPConfig) (*smtp.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = ConnectTimeout
	}

	nd := &net.Dialer{Timeout: timeout}
	conn, err := nd.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, mailerr.New(mailerr.Connection, "dial smtp", err)
	}

	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	var client *smtp.Client
	switch cfg.Security {
	case config.SecurityNone:
		client = smtp.NewClient(conn)
	case config.SecurityStartTLS:
		client, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			conn.Close()
			return nil, mailerr.New(mailerr.Connection, "smtp starttls", err)
		}
	default:
		client = smtp.NewClient(tls.Client(conn, tlsConfig))
	}

	client.CommandTimeout = timeout
	client.SubmissionTimeout = timeout
	return client, nil
}
