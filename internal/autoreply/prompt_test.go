package autoreply

import (
	"strings"
	"testing"

	"github.com/ngocminh-dev/wareply/internal/bus"
)

func TestBuildPromptSingle(t *testing.T) {
	prompt := BuildPrompt([]bus.InboundMessage{{
		Sender:     "918408878186",
		SenderName: "Alice",
		ChatJID:    "918408878186@s.whatsapp.net",
		Content:    "Hello!",
		Timestamp:  "2026-02-14T17:10:00+05:30",
	}})

	for _, want := range []string{
		"message from Alice",
		"phone: 918408878186",
		"JID: 918408878186@s.whatsapp.net",
		`"Hello!"`,
		"send_message tool",
		`recipient "918408878186@s.whatsapp.net"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptMulti(t *testing.T) {
	prompt := BuildPrompt([]bus.InboundMessage{
		{Sender: "111", SenderName: "Bob", ChatJID: "111@s.whatsapp.net", Content: "first", Timestamp: "t1"},
		{Sender: "111", SenderName: "Bob", ChatJID: "111@s.whatsapp.net", Content: "second", Timestamp: "t2"},
		{Sender: "111", SenderName: "Bob", ChatJID: "111@s.whatsapp.net", Content: "third", Timestamp: "t3"},
	})

	if !strings.Contains(prompt, "3 WhatsApp messages from Bob") {
		t.Errorf("prompt missing count:\n%s", prompt)
	}
	if !strings.Contains(prompt, "oldest first") {
		t.Error("prompt missing oldest-first note")
	}
	if !strings.Contains(prompt, "Consider all the messages together") {
		t.Error("prompt missing joint-consideration instruction")
	}

	// original order preserved
	i1 := strings.Index(prompt, "[t1] first")
	i2 := strings.Index(prompt, "[t2] second")
	i3 := strings.Index(prompt, "[t3] third")
	if i1 < 0 || i2 < 0 || i3 < 0 || !(i1 < i2 && i2 < i3) {
		t.Errorf("messages out of order: %d %d %d\n%s", i1, i2, i3, prompt)
	}
}

func TestBuildPromptFallsBackToSender(t *testing.T) {
	prompt := BuildPrompt([]bus.InboundMessage{{
		Sender: "111", ChatJID: "111@s.whatsapp.net", Content: "yo",
	}})
	if !strings.Contains(prompt, "message from 111") {
		t.Errorf("prompt should use sender when name empty:\n%s", prompt)
	}
}
