// Package mailtest runs in-process IMAP and SMTP servers for tests.
package mailtest

import (
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/bscott/mailsync/internal/config"
)

const (
	User     = "testuser@example.com"
	Password = "testpass"
)

type IMAPServer struct {
	Addr string
	Mem  *imapmemserver.Server
	User *imapmemserver.User
}

// NewIMAPServer starts a plaintext IMAP server with one user owning the
// given folders. INBOX always exists.
func NewIMAPServer(t *testing.T, folders ...string) *IMAPServer {
	t.Helper()

	memSrv := imapmemserver.New()
	user := imapmemserver.NewUser(User, Password)
	user.Create("INBOX", nil)
	for _, f := range folders {
		if err := user.Create(f, nil); err != nil {
			t.Fatalf("create folder %s: %v", f, err)
		}
	}
	memSrv.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(_ *imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memSrv.NewSession(), nil, nil
		},
		InsecureAuth: true,
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
		},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return &IMAPServer{Addr: ln.Addr().String(), Mem: memSrv, User: user}
}

// Config returns IMAP settings pointing at the server.
func (s *IMAPServer) Config(t *testing.T) config.IMAPConfig {
	t.Helper()
	host, port := SplitHostPort(t, s.Addr)
	return config.IMAPConfig{
		Host:     host,
		Port:     port,
		Security: config.SecurityNone,
		Timeout:  5 * time.Second,
	}
}

// Append stores raw in folder directly, bypassing the code under test.
func (s *IMAPServer) Append(t *testing.T, folder, raw string, flags ...imap.Flag) {
	t.Helper()

	c := s.dial(t)
	defer c.Close()

	cmd := c.Append(folder, int64(len(raw)), &imap.AppendOptions{Flags: flags})
	if _, err := cmd.Write([]byte(raw)); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := cmd.Wait(); err != nil {
		t.Fatal(err)
	}
}

// Flags returns the flags of the message with uid in folder.
func (s *IMAPServer) Flags(t *testing.T, folder string, uid uint32) []imap.Flag {
	t.Helper()

	c := s.dial(t)
	defer c.Close()

	if _, err := c.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		t.Fatal(err)
	}
	msgs, err := c.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{Flags: true}).Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("uid %d in %s: got %d messages", uid, folder, len(msgs))
	}
	return msgs[0].Flags
}

// Count returns the number of messages in folder.
func (s *IMAPServer) Count(t *testing.T, folder string) uint32 {
	t.Helper()

	c := s.dial(t)
	defer c.Close()

	data, err := c.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		t.Fatal(err)
	}
	return data.NumMessages
}

func (s *IMAPServer) dial(t *testing.T) *imapclient.Client {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr)
	if err != nil {
		t.Fatal(err)
	}
	c := imapclient.New(conn, nil)
	if err := c.Login(User, Password).Wait(); err != nil {
		t.Fatal(err)
	}
	return c
}

// HasFlag reports whether want is among flags. The memory server lowercases
// keywords, so the comparison ignores case.
func HasFlag(flags []imap.Flag, want imap.Flag) bool {
	for _, f := range flags {
		if strings.EqualFold(string(f), string(want)) {
			return true
		}
	}
	return false
}

type SMTPMessage struct {
	From string
	To   []string
	Data []byte
}

type SMTPBackend struct {
	mu       sync.Mutex
	messages []*SMTPMessage
	accounts map[string]string
	received chan struct{}
}

func (be *SMTPBackend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &smtpSession{backend: be}, nil
}

func (be *SMTPBackend) Messages() []*SMTPMessage {
	be.mu.Lock()
	defer be.mu.Unlock()
	return append([]*SMTPMessage(nil), be.messages...)
}

// Received is signalled once per delivered message.
func (be *SMTPBackend) Received() <-chan struct{} {
	return be.received
}

type smtpSession struct {
	backend *SMTPBackend
	msg     *SMTPMessage
}

func (s *smtpSession) AuthMechanisms() []string { return []string{sasl.Plain} }

func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		s.backend.mu.Lock()
		defer s.backend.mu.Unlock()
		if want, ok := s.backend.accounts[username]; !ok || want != password {
			return errors.New("invalid credentials")
		}
		return nil
	}), nil
}

func (s *smtpSession) Mail(from string, _ *gosmtp.MailOptions) error {
	s.msg = &SMTPMessage{From: from}
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.msg.To = append(s.msg.To, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.msg.Data = b
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.msg)
	s.backend.mu.Unlock()
	select {
	case s.backend.received <- struct{}{}:
	default:
	}
	return nil
}

func (s *smtpSession) Reset()        { s.msg = nil }
func (s *smtpSession) Logout() error { return nil }

var _ gosmtp.AuthSession = (*smtpSession)(nil)

// NewSMTPServer starts a plaintext SMTP server accepting PLAIN auth for the
// given user/password pairs.
func NewSMTPServer(t *testing.T, accounts map[string]string) (*SMTPBackend, config.SMTPConfig) {
	t.Helper()

	be := &SMTPBackend{accounts: accounts, received: make(chan struct{}, 16)}
	srv := gosmtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	host, port := SplitHostPort(t, ln.Addr().String())
	return be, config.SMTPConfig{
		Host:     host,
		Port:     port,
		Security: config.SecurityNone,
		Timeout:  5 * time.Second,
	}
}

func SplitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}
