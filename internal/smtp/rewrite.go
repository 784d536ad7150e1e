package smtp

import (
	"strings"

	"github.com/bscott/mailsync/internal/message"
	"github.com/bscott/mailsync/internal/model"
)

const (
	replyPrefix   = "Re: "
	forwardPrefix = "Fwd: "

	replySeparator   = "--- Original Message ---"
	forwardSeparator = "--- Forwarded Message ---"
)

// ReplyMessage returns a copy of msg prepared as a reply: the subject gets
// "Re: " unless it already has it, and quote is appended under the original
// message separator.
func ReplyMessage(msg *model.OutboundMessage, quote model.Quote) *model.OutboundMessage {
	return rewrite(msg, quote, replyPrefix, replySeparator)
}

// ForwardMessage is ReplyMessage for forwards.
func ForwardMessage(msg *model.OutboundMessage, quote model.Quote) *model.OutboundMessage {
	return rewrite(msg, quote, forwardPrefix, forwardSeparator)
}

func rewrite(msg *model.OutboundMessage, quote model.Quote, prefix, separator string) *model.OutboundMessage {
	out := *msg
	out.Subject = PrefixSubject(msg.Subject, prefix)

	if quote.IsZero() {
		return &out
	}

	quoteHTML := quote.HTML
	if quoteHTML == "" {
		quoteHTML = message.TextAsHTML(quote.Text)
	}
	quoteText := quote.Text
	if quoteText == "" {
		quoteText = message.RenderText(quote.HTML)
	}

	body := msg.HTML
	if body == "" {
		body = message.TextAsHTML(msg.Text)
	}
	out.HTML = body + "<br><br><hr><p><em>" + separator + "</em></p>" + quoteHTML
	text := msg.Text
	if text == "" {
		text = message.RenderText(msg.HTML)
	}
	out.Text = text + "\n\n" + separator + "\n" + quoteText
	return &out
}

// PrefixSubject adds prefix unless subject already starts with it, ignoring
// case and the spacing after the colon.
func PrefixSubject(subject, prefix string) string {
	marker := strings.ToLower(strings.TrimSpace(prefix))
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), marker) {
		return subject
	}
	return prefix + subject
}
