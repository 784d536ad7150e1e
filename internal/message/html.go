package message

import (
	"html"
	"strings"

	"github.com/jaytaylor/html2text"
)

// RenderText converts an HTML body to readable plain text. If the converter
// fails the tags are left in place rather than losing the content.
func RenderText(htmlBody string) string {
	if htmlBody == "" {
		return ""
	}
	text, err := html2text.FromString(htmlBody, html2text.Options{})
	if err != nil {
		return htmlBody
	}
	return text
}

// Preview is the first 100 characters of the rendered HTML, falling back to
// the plain text part.
func Preview(htmlBody, textBody string) string {
	src := strings.TrimSpace(RenderText(htmlBody))
	if src == "" {
		src = strings.TrimSpace(textBody)
	}
	r := []rune(src)
	if len(r) > previewLength {
		r = r[:previewLength]
	}
	return string(r)
}

// Body prefers HTML and otherwise wraps the plain text as HTML.
func Body(htmlBody, textBody string) string {
	if htmlBody != "" {
		return htmlBody
	}
	if textBody != "" {
		return TextAsHTML(textBody)
	}
	return ""
}

// TextAsHTML escapes text and keeps its line breaks.
func TextAsHTML(text string) string {
	escaped := html.EscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// WrapHTML wraps unescaped text in a single element, the way drafts and
// quick sends are given an HTML part when only text was supplied.
func WrapHTML(tag, text string) string {
	return "<" + tag + ">" + text + "</" + tag + ">"
}
