package message

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bscott/mailsync/internal/mailerr"
)

const multipartMessage = "From: \"Alice Example\" <alice@acmecorp.io>\r\n" +
	"To: Bob <bob@example.com>\r\n" +
	"Subject: =?UTF-8?B?UXVhcnRlcmx5IHJlcG9ydA==?=\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Numbers attached.\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Numbers <span>attached</span>.</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: text/csv\r\n" +
	"Content-Disposition: attachment; filename=\"q1.csv\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"YSxiCjEsMgo=\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"q2.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4\r\n" +
	"--outer--\r\n"

const plainMessage = "From: friend@gmail.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: hi\r\n" +
	"\r\n" +
	"line one\r\nline <two>\r\n"

func TestParseMultipart(t *testing.T) {
	n := NewNormalizer(nil, NormalizerOptions{})
	meta := Meta{UID: 42, Flags: []string{`\Seen`, `\Flagged`}}

	email, err := n.Parse([]byte(multipartMessage), meta, "INBOX")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	checks := []struct {
		field, got, want string
	}{
		{"Sender", email.Sender, "Alice Example"},
		{"SenderEmail", email.SenderEmail, "alice@acmecorp.io"},
		{"To", email.To, "Bob"},
		{"ToEmail", email.ToEmail, "bob@example.com"},
		{"Subject", email.Subject, "Quarterly report"},
		{"Body", email.Body, "<p>Numbers <span>attached</span>.</p>"},
		{"Category", email.Category, "work"},
		{"CategoryColor", email.CategoryColor, "#34A853"},
		{"Folder", email.Folder, "INBOX"},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.got) != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}

	if email.ID != 42 {
		t.Errorf("ID = %d, want 42", email.ID)
	}
	if email.Unread {
		t.Error("message with \\Seen should not be unread")
	}
	if !email.Flagged {
		t.Error("message with \\Flagged should be flagged")
	}
	if email.Important {
		t.Error("message without Important keyword should not be important")
	}
	if !strings.HasPrefix(email.Preview, "Numbers attached") {
		t.Errorf("Preview = %q, want rendered html text", email.Preview)
	}
	wantDate := time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)
	if !email.Date.Equal(wantDate) {
		t.Errorf("Date = %v, want %v", email.Date, wantDate)
	}

	if len(email.Attachments) != 2 {
		t.Fatalf("len(Attachments) = %d, want 2", len(email.Attachments))
	}
	first := email.Attachments[0]
	if first.Filename != "q1.csv" || first.ContentType != "text/csv" {
		t.Errorf("first attachment = %q (%s), want q1.csv (text/csv)", first.Filename, first.ContentType)
	}
	if first.ContentDisposition != "attachment" || first.IsInline {
		t.Errorf("first attachment disposition = %q inline=%v", first.ContentDisposition, first.IsInline)
	}
	decoded, err := base64.StdEncoding.DecodeString(first.Content)
	if err != nil {
		t.Fatalf("attachment content is not base64: %v", err)
	}
	if string(decoded) != "a,b\n1,2\n" {
		t.Errorf("attachment content = %q, want %q", decoded, "a,b\n1,2\n")
	}

	u, err := url.Parse(email.Attachments[1].URL)
	if err != nil {
		t.Fatalf("bad attachment url: %v", err)
	}
	if u.Path != "/api/download-attachment" {
		t.Errorf("url path = %q", u.Path)
	}
	q := u.Query()
	if q.Get("uid") != "42" || q.Get("folder") != "INBOX" || q.Get("index") != "1" || q.Get("filename") != "q2.pdf" {
		t.Errorf("url query = %v", q)
	}
}

func TestParsePlainText(t *testing.T) {
	n := NewNormalizer(nil, NormalizerOptions{})
	fallback := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	email, err := n.Parse([]byte(plainMessage), Meta{UID: 7, Flags: []string{"Important"}, InternalDate: fallback}, "INBOX")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if email.Sender != "friend" {
		t.Errorf("Sender = %q, want local part %q", email.Sender, "friend")
	}
	if !email.Unread {
		t.Error("message without \\Seen should be unread")
	}
	if !email.Important {
		t.Error("Important keyword should set important")
	}
	if !strings.Contains(email.Body, "line one<br>line &lt;two&gt;") {
		t.Errorf("Body = %q, want escaped text wrapped as html", email.Body)
	}
	if !strings.HasPrefix(email.Preview, "line one") {
		t.Errorf("Preview = %q", email.Preview)
	}
	if !email.Date.Equal(fallback) {
		t.Errorf("Date = %v, want internal date %v", email.Date, fallback)
	}
	if email.Attachments == nil || len(email.Attachments) != 0 {
		t.Errorf("Attachments = %v, want empty non-nil slice", email.Attachments)
	}
}

func TestParseMissingSender(t *testing.T) {
	n := NewNormalizer(nil, NormalizerOptions{})
	raw := "Subject: orphan\r\n\r\nbody\r\n"

	email, err := n.Parse([]byte(raw), Meta{UID: 1}, "INBOX")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if email.Sender != "Unknown" {
		t.Errorf("Sender = %q, want %q", email.Sender, "Unknown")
	}
	if email.Category != string(CategoryPersonal) {
		t.Errorf("Category = %q, want %q", email.Category, CategoryPersonal)
	}
}

func TestParseEmptyIsParseError(t *testing.T) {
	n := NewNormalizer(nil, NormalizerOptions{})
	_, err := n.Parse([]byte("  \r\n"), Meta{UID: 1}, "INBOX")
	if !errors.Is(err, mailerr.ErrParse) {
		t.Errorf("Parse(empty) error = %v, want parse error", err)
	}
}

func TestInlineLimit(t *testing.T) {
	n := NewNormalizer(nil, NormalizerOptions{InlineLimit: 4, DownloadPath: "/dl"})

	email, err := n.Parse([]byte(multipartMessage), Meta{UID: 3}, "Archive")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for _, a := range email.Attachments {
		if a.Content != "" {
			t.Errorf("attachment %q over limit should have no inline content", a.Filename)
		}
		if !strings.HasPrefix(a.URL, "/dl?") {
			t.Errorf("URL = %q, want /dl prefix", a.URL)
		}
	}
}

func TestExtractPartsMatchesParseOrder(t *testing.T) {
	parts, err := ExtractParts([]byte(multipartMessage))
	if err != nil {
		t.Fatalf("ExtractParts() error = %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if parts[0].Filename != "q1.csv" || parts[1].Filename != "q2.pdf" {
		t.Errorf("parts order = %q, %q", parts[0].Filename, parts[1].Filename)
	}
	if string(parts[0].Content) != "a,b\n1,2\n" {
		t.Errorf("parts[0].Content = %q", parts[0].Content)
	}
}

const inlineBodyMessage = "From: bob@example.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: contract\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=alt\r\n" +
	"\r\n" +
	"--alt\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Disposition: inline\r\n" +
	"\r\n" +
	"signed copy attached\r\n" +
	"--alt\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"Content-Disposition: inline\r\n" +
	"\r\n" +
	"<p>signed copy attached</p>\r\n" +
	"--alt--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"x.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERg==\r\n" +
	"--outer--\r\n"

func TestInlineBodyIsNotAnAttachment(t *testing.T) {
	n := NewNormalizer(nil, NormalizerOptions{})
	email, err := n.Parse([]byte(inlineBodyMessage), Meta{UID: 4}, "INBOX")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(email.Attachments) != 1 || email.Attachments[0].Filename != "x.pdf" {
		t.Fatalf("attachments = %+v, want only x.pdf", email.Attachments)
	}
	if !strings.Contains(email.Body, "signed copy attached") {
		t.Errorf("body = %q", email.Body)
	}

	parts, err := ExtractParts([]byte(inlineBodyMessage))
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 || string(parts[0].Content) != "%PDF" {
		t.Errorf("parts = %+v", parts)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name, address, expected string
	}{
		{"Alice", "alice@example.com", "Alice"},
		{`"Quoted"`, "q@example.com", "Quoted"},
		{"", "bob@example.com", "bob"},
		{"", "weird", "weird"},
		{"", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := DisplayName(tt.name, tt.address); got != tt.expected {
				t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.name, tt.address, got, tt.expected)
			}
		})
	}
}
