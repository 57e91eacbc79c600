// Package autoreply is the message-intake coordinator: it decides,
// per contact, when queued inbound messages become one agent
// invocation, and throttles how often replies go out.
package autoreply

import (
	"strings"

	"github.com/ngocminh-dev/wareply/internal/bus"
	"github.com/ngocminh-dev/wareply/internal/config"
)

// Skip reasons returned to the webhook caller.
const (
	ReasonDisabled    = "disabled"
	ReasonNotDM       = "not_dm"
	ReasonIgnored     = "ignored"
	ReasonSelfIgnored = "self_ignored"
	ReasonEmpty       = "empty"
)

// Personal chats end in the phone-number suffix; companion devices
// use the lid suffix. Anything else is a group or broadcast.
const (
	dmSuffix  = "@s.whatsapp.net"
	lidSuffix = "@lid"
)

// Classify admits or rejects an inbound event. Pure; no state is
// touched. Returns ("", true) on admit, or a skip reason.
func Classify(cfg config.AutoReplyConfig, msg bus.InboundMessage) (reason string, admit bool) {
	if !cfg.Enabled {
		return ReasonDisabled, false
	}

	if !strings.HasSuffix(msg.ChatJID, dmSuffix) && !strings.HasSuffix(msg.ChatJID, lidSuffix) {
		return ReasonNotDM, false
	}

	// A self-authored message is a command to the assistant only when
	// it starts with the invocation prefix; that bypasses the ignore
	// list too.
	selfInvoke := false
	if msg.IsFromMe {
		content := strings.ToLower(strings.TrimSpace(msg.Content))
		if cfg.InvokePrefix != "" && strings.HasPrefix(content, strings.ToLower(cfg.InvokePrefix)) {
			selfInvoke = true
		} else {
			return ReasonSelfIgnored, false
		}
	}

	if !selfInvoke {
		for _, jid := range cfg.IgnoreJIDs {
			if msg.ChatJID == jid || msg.Sender == jid {
				return ReasonIgnored, false
			}
		}
	}

	if strings.TrimSpace(msg.Content) == "" {
		return ReasonEmpty, false
	}

	return "", true
}
