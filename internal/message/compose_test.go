package message

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bscott/mailsync/internal/model"
)

func TestComposeRoundTrip(t *testing.T) {
	c := NewComposer(nil)
	msg := &model.OutboundMessage{
		From:      "Me <me@example.com>",
		To:        []string{"Alice <alice@acmecorp.io>, bob@example.com"},
		Cc:        []string{"carol@example.com"},
		Subject:   "Plans for Q3",
		Text:      "See you there.",
		HTML:      "<p>See you there.</p>",
		InReplyTo: "<orig@example.com>",
	}

	raw, err := c.Bytes(msg)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	s := strings.ToLower(string(raw))
	for _, want := range []string{"message-id: <", "@example.com>", "in-reply-to: <orig@example.com>", "multipart/alternative"} {
		if !strings.Contains(s, want) {
			t.Errorf("composed message missing %q", want)
		}
	}

	email, err := NewNormalizer(nil, NormalizerOptions{}).Parse(raw, Meta{UID: 1}, "Drafts")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if email.Subject != msg.Subject {
		t.Errorf("Subject = %q, want %q", email.Subject, msg.Subject)
	}
	if email.ToEmail != "alice@acmecorp.io" || email.To != "Alice" {
		t.Errorf("To = %q <%s>, want Alice <alice@acmecorp.io>", email.To, email.ToEmail)
	}
	if email.SenderEmail != "me@example.com" {
		t.Errorf("SenderEmail = %q, want %q", email.SenderEmail, "me@example.com")
	}
	if strings.TrimSpace(email.Body) != msg.HTML {
		t.Errorf("Body = %q, want %q", email.Body, msg.HTML)
	}
}

func TestComposeHTMLOnlyAddsTextPart(t *testing.T) {
	raw, err := NewComposer(nil).Bytes(&model.OutboundMessage{
		From:    "me@example.com",
		To:      []string{"you@example.com"},
		Subject: "html only",
		HTML:    "<div>Hello</div>",
	})
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !strings.Contains(string(raw), "text/plain") {
		t.Error("html-only message should also carry a text/plain part")
	}
}

func TestComposeAttachments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("from disk"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "up.bin"), []byte("uploaded"), 0600); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("from url"))
	}))
	defer srv.Close()

	c := NewComposer(NewResolver(dir, 0))
	raw, err := c.Bytes(&model.OutboundMessage{
		From:    "me@example.com",
		To:      []string{"you@example.com"},
		Subject: "files",
		Text:    "three files",
		Attachments: []model.OutboundAttachment{
			{Filename: "notes.txt", Path: path},
			{Filename: "inline.dat", Content: base64.StdEncoding.EncodeToString([]byte("from base64"))},
			{Filename: "remote.txt", URL: srv.URL + "/remote.txt"},
			{Filename: "up.bin", URL: "/uploads/up.bin"},
		},
	})
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parts, err := ExtractParts(raw)
	if err != nil {
		t.Fatalf("ExtractParts() error = %v", err)
	}
	want := []struct{ name, content string }{
		{"notes.txt", "from disk"},
		{"inline.dat", "from base64"},
		{"remote.txt", "from url"},
		{"up.bin", "uploaded"},
	}
	if len(parts) != len(want) {
		t.Fatalf("len(parts) = %d, want %d", len(parts), len(want))
	}
	for i, w := range want {
		if parts[i].Filename != w.name {
			t.Errorf("parts[%d].Filename = %q, want %q", i, parts[i].Filename, w.name)
		}
		if string(parts[i].Content) != w.content {
			t.Errorf("parts[%d].Content = %q, want %q", i, parts[i].Content, w.content)
		}
	}
}

func TestComposeBadAttachmentFails(t *testing.T) {
	_, err := NewComposer(nil).Bytes(&model.OutboundMessage{
		From:        "me@example.com",
		To:          []string{"you@example.com"},
		Attachments: []model.OutboundAttachment{{Filename: "gone.txt", Path: "/nonexistent/gone.txt"}},
	})
	if err == nil {
		t.Fatal("expected error for unreadable attachment")
	}
	if !strings.Contains(err.Error(), "gone.txt") {
		t.Errorf("error should name the attachment, got %q", err.Error())
	}
}

func TestComposeInvalidRecipient(t *testing.T) {
	_, err := NewComposer(nil).Bytes(&model.OutboundMessage{
		From: "me@example.com",
		To:   []string{"not an address <"},
	})
	if err == nil {
		t.Fatal("expected error for invalid recipient")
	}
}

func TestParseAddresses(t *testing.T) {
	list, err := ParseAddresses([]string{"a@example.com, B <b@example.com>", "", "c@example.com"})
	if err != nil {
		t.Fatalf("ParseAddresses() error = %v", err)
	}
	got := make([]string, len(list))
	for i, a := range list {
		got[i] = a.Address
	}
	want := "a@example.com,b@example.com,c@example.com"
	if strings.Join(got, ",") != want {
		t.Errorf("ParseAddresses() = %v, want %s", got, want)
	}
}
