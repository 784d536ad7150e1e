package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/model"
)

func newBuffered(jsonOutput, quiet bool) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	f := New(jsonOutput, quiet, true)
	f.Writer = &out
	f.Errors = &errOut
	return f, &out, &errOut
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		json    bool
		quiet   bool
		noColor bool
	}{
		{"default", false, false, false},
		{"json mode", true, false, false},
		{"quiet mode", false, true, false},
		{"no color", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.json, tt.quiet, tt.noColor)
			if f.JSON != tt.json || f.Quiet != tt.quiet || f.NoColor != tt.noColor {
				t.Errorf("New(%v, %v, %v) = %+v", tt.json, tt.quiet, tt.noColor, f)
			}
			if f.Writer == nil || f.Errors == nil {
				t.Error("expected writers to be set")
			}
		})
	}
}

func TestColor(t *testing.T) {
	f := New(false, false, false)
	if got := f.Color(Red, "x"); got != Red+"x"+Reset {
		t.Errorf("Color() = %q", got)
	}
	f.NoColor = true
	if got := f.Color(Red, "x"); got != "x" {
		t.Errorf("Color() with NoColor = %q, want %q", got, "x")
	}
}

func TestPrintError(t *testing.T) {
	t.Run("text mode writes to error stream", func(t *testing.T) {
		f, out, errOut := newBuffered(false, false)
		f.PrintError(errors.New("boom"))

		if out.Len() != 0 {
			t.Errorf("stdout = %q, want empty", out.String())
		}
		if !strings.Contains(errOut.String(), "Error: boom") {
			t.Errorf("stderr = %q", errOut.String())
		}
	})

	t.Run("json mode includes kind", func(t *testing.T) {
		f, out, _ := newBuffered(true, false)
		f.PrintError(mailerr.Errorf(mailerr.Index, "download", "index 5 out of range"))

		var resp JSONResponse
		if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if resp.Success {
			t.Error("expected success=false")
		}
		if resp.Kind != "index" {
			t.Errorf("kind = %q, want %q", resp.Kind, "index")
		}
		if !strings.Contains(resp.Error, "index 5 out of range") {
			t.Errorf("error = %q", resp.Error)
		}
	})

	t.Run("json mode omits unknown kind", func(t *testing.T) {
		f, out, _ := newBuffered(true, false)
		f.PrintError(errors.New("plain"))

		var resp JSONResponse
		if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if resp.Kind != "" {
			t.Errorf("kind = %q, want empty", resp.Kind)
		}
	})
}

func TestPrintSuccess(t *testing.T) {
	t.Run("quiet mode suppresses output", func(t *testing.T) {
		f, out, _ := newBuffered(false, true)
		f.PrintSuccess("should not appear")
		if out.Len() != 0 {
			t.Errorf("expected empty output in quiet mode, got %q", out.String())
		}
	})

	t.Run("json mode prints even when quiet", func(t *testing.T) {
		f, out, _ := newBuffered(true, true)
		f.PrintSuccess("done")

		var resp JSONResponse
		if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !resp.Success || resp.Message != "done" {
			t.Errorf("resp = %+v", resp)
		}
	})
}

func TestSuccess(t *testing.T) {
	f, out, _ := newBuffered(false, false)
	if err := f.Success(map[string]string{"k": "v"}); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("text mode Success() wrote %q", out.String())
	}
}

func TestTableWriter(t *testing.T) {
	f, out, _ := newBuffered(false, false)

	table := f.NewTable("NAME", "SIZE")
	table.AddRow("report.pdf", "1.0 KB")
	table.Flush()

	if !strings.Contains(out.String(), "NAME") || !strings.Contains(out.String(), "report.pdf") {
		t.Errorf("table output = %q", out.String())
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.expected {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.input, tt.max); got != tt.expected {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
		}
	}
}

func TestFlags(t *testing.T) {
	tests := []struct {
		email    model.Email
		expected string
	}{
		{model.Email{}, "-"},
		{model.Email{Unread: true}, "N"},
		{model.Email{Unread: true, Flagged: true, Important: true}, "N*!"},
		{model.Email{Important: true}, "!"},
	}

	for _, tt := range tests {
		if got := Flags(&tt.email); got != tt.expected {
			t.Errorf("Flags(%+v) = %q, want %q", tt.email, got, tt.expected)
		}
	}
}

func samplePage() *model.Page {
	return &model.Page{
		Folder:   "INBOX",
		UserName: "Test User",
		Mails: []model.Email{
			{ID: 7, Sender: "Alice", Subject: "Lunch", Category: "work", Unread: true, Date: time.Now()},
			{ID: 3, Sender: "Bob", Subject: "Report", Category: "personal", Date: time.Now(),
				Attachments: []model.Attachment{{Filename: "q1.csv"}}},
		},
		Pagination: model.Pagination{Page: 1, Limit: 2, Total: 5, HasNext: true},
	}
}

func TestPageText(t *testing.T) {
	f, out, _ := newBuffered(false, false)
	if err := f.Page(samplePage()); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	for _, want := range []string{"INBOX (page 1, 5 total)", "Lunch", "Report @", "next: --page 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "previous") {
		t.Error("first page should not offer a previous page")
	}
}

func TestPageJSON(t *testing.T) {
	f, out, _ := newBuffered(true, false)
	if err := f.Page(samplePage()); err != nil {
		t.Fatal(err)
	}

	var resp struct {
		Success bool       `json:"success"`
		Data    model.Page `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || len(resp.Data.Mails) != 2 || resp.Data.Mails[0].ID != 7 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPageEmpty(t *testing.T) {
	f, out, _ := newBuffered(false, false)
	if err := f.Page(&model.Page{Folder: "Archive"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No messages in Archive") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEmailText(t *testing.T) {
	f, out, _ := newBuffered(false, false)
	e := &model.Email{
		Sender:      "Alice",
		SenderEmail: "alice@example.com",
		Subject:     "Hello",
		Body:        "<p>Hi there</p>",
		Attachments: []model.Attachment{{Filename: "a.txt", ContentType: "text/plain", Size: 2048}},
	}
	if err := f.Email(e, false); err != nil {
		t.Fatal(err)
	}

	text := out.String()
	for _, want := range []string{"Alice <alice@example.com>", "Subject:  Hello", "Hi there", "a.txt", "2.0 KB"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "<p>") {
		t.Error("text mode should render HTML")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}
	logger.WithField("folder", "INBOX").Debug("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["folder"] != "INBOX" || entry["msg"] != "hello" {
		t.Errorf("entry = %v", entry)
	}

	if _, err := NewLogger(&buf, "loud", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if l, err := NewLogger(&buf, "", ""); err != nil || l.GetLevel() != logrus.InfoLevel {
		t.Errorf("defaults = %v, %v", l, err)
	}
}
