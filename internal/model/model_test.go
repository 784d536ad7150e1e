package model

import "testing"

func TestUserName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"john.doe@example.com", "John Doe"},
		{"alice@example.com", "Alice"},
		{"mary_ann-smith@example.com", "Mary Ann Smith"},
		{"bob", "Bob"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := UserName(tt.input)
			if result != tt.expected {
				t.Errorf("UserName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCredentialsStringMasksSecret(t *testing.T) {
	c := Credentials{Identity: "me@example.com", Secret: "hunter2"}
	if got := c.String(); got != "me@example.com:****" {
		t.Errorf("Credentials.String() = %q, want %q", got, "me@example.com:****")
	}
}

func TestOutboundMessageIsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		msg      OutboundMessage
		expected bool
	}{
		{"zero", OutboundMessage{}, true},
		{"whitespace only", OutboundMessage{Subject: "  ", Text: "\n"}, true},
		{"recipient", OutboundMessage{To: []string{"a@example.com"}}, false},
		{"body", OutboundMessage{Text: "hi"}, false},
		{"attachment", OutboundMessage{Attachments: []OutboundAttachment{{Filename: "a.txt"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsEmpty(); got != tt.expected {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecipients(t *testing.T) {
	m := OutboundMessage{
		To:  []string{"a@example.com"},
		Cc:  []string{"b@example.com"},
		Bcc: []string{"c@example.com"},
	}
	got := m.Recipients()
	want := []string{"a@example.com", "b@example.com", "c@example.com"}
	if len(got) != len(want) {
		t.Fatalf("Recipients() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Recipients()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
