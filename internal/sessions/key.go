// Package sessions defines the session key scheme shared by the agent
// runner and the session stores.
//
// Keys follow the format:
//
//	auto_reply:{sender}
//
// where {sender} is the contact's phone number portion of the JID.
// Every invocation for the same contact resolves to the same key, so
// conversation history accumulates per contact across restarts.
package sessions

import (
	"strings"
)

// App scopes all sessions created by this service.
const App = "wareply"

// User is the fixed synthetic user owning the auto-reply sessions.
const User = "whatsapp_auto_reply"

const keyPrefix = "auto_reply:"

// Key returns the deterministic session key for a contact.
func Key(sender string) string {
	return keyPrefix + sender
}

// Sender extracts the contact from a session key. Returns "" if the
// key is not in the expected format.
func Sender(key string) string {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return ""
	}
	return rest
}

// IsAutoReply reports whether the key belongs to this service's scheme.
func IsAutoReply(key string) bool {
	return strings.HasPrefix(key, keyPrefix)
}
