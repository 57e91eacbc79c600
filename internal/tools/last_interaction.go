package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ngocminh-dev/wareply/internal/bridge"
)

// LastInteractionTool fetches the most recent message with a contact.
type LastInteractionTool struct {
	bridge *bridge.Client
}

func NewLastInteractionTool(b *bridge.Client) *LastInteractionTool {
	return &LastInteractionTool{bridge: b}
}

func (t *LastInteractionTool) Name() string { return "get_last_interaction" }

func (t *LastInteractionTool) Description() string {
	return "Get the most recent message exchanged with a contact, to check context before replying."
}

func (t *LastInteractionTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"jid": map[string]interface{}{
				"type":        "string",
				"description": "Contact JID, e.g. 1234567890@s.whatsapp.net",
			},
		},
		"required": []string{"jid"},
	}
}

func (t *LastInteractionTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	jid, _ := args["jid"].(string)
	if strings.TrimSpace(jid) == "" {
		return ErrorResult("jid is required")
	}

	it, err := t.bridge.LastInteraction(ctx, jid)
	if err != nil {
		return ErrorResult(fmt.Sprintf("lookup failed: %v", err)).WithError(err)
	}

	who := "them"
	if it.IsFromMe {
		who = "me"
	}
	return NewResult(fmt.Sprintf("Last message with %s (from %s at %s): %s", jid, who, it.Timestamp, it.Content))
}
