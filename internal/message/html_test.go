package message

import (
	"strings"
	"testing"
)

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", 150)

	tests := []struct {
		name     string
		html     string
		text     string
		expected string
	}{
		{"text only", "", "hello there", "hello there"},
		{"html wins", "<p>from html</p>", "from text", "from html"},
		{"empty", "", "", ""},
		{"truncated by rune", "", long, strings.Repeat("é", 100)},
		{"blank html falls back", "<p> </p>", "fallback", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.html, tt.text); got != tt.expected {
				t.Errorf("Preview(%q, %q) = %q, want %q", tt.html, tt.text, got, tt.expected)
			}
		})
	}
}

func TestBody(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		text     string
		expected string
	}{
		{"html", "<b>x</b>", "x", "<b>x</b>"},
		{"text", "", "a < b\nc", "<p>a &lt; b<br>c</p>"},
		{"crlf", "", "a\r\nb", "<p>a<br>b</p>"},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Body(tt.html, tt.text); got != tt.expected {
				t.Errorf("Body(%q, %q) = %q, want %q", tt.html, tt.text, got, tt.expected)
			}
		})
	}
}

func TestRenderText(t *testing.T) {
	got := RenderText("<html><body><div>Title</div><p>Hello <span>world</span></p></body></html>")
	if !strings.Contains(got, "Hello world") {
		t.Errorf("RenderText should keep paragraph text, got %q", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("RenderText should strip tags, got %q", got)
	}
}

func TestWrapHTML(t *testing.T) {
	if got := WrapHTML("p", "hi"); got != "<p>hi</p>" {
		t.Errorf("WrapHTML(p, hi) = %q, want %q", got, "<p>hi</p>")
	}
}
