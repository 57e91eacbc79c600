package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ngocminh-dev/wareply/internal/bridge"
)

// SendMessageTool sends a WhatsApp message through the bridge.
type SendMessageTool struct {
	bridge *bridge.Client
}

func NewSendMessageTool(b *bridge.Client) *SendMessageTool {
	return &SendMessageTool{bridge: b}
}

func (t *SendMessageTool) Name() string { return "send_message" }

func (t *SendMessageTool) Description() string {
	return "Send a WhatsApp message to a recipient. The recipient is a JID like 1234567890@s.whatsapp.net."
}

func (t *SendMessageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"recipient": map[string]interface{}{
				"type":        "string",
				"description": "Recipient JID, e.g. 1234567890@s.whatsapp.net",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "The message text to send",
			},
		},
		"required": []string{"recipient", "message"},
	}
}

func (t *SendMessageTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	recipient, _ := args["recipient"].(string)
	message, _ := args["message"].(string)

	if strings.TrimSpace(recipient) == "" {
		return ErrorResult("recipient is required")
	}
	if strings.TrimSpace(message) == "" {
		return ErrorResult("message is required")
	}

	if err := t.bridge.SendMessage(ctx, recipient, message); err != nil {
		return ErrorResult(fmt.Sprintf("send failed: %v", err)).WithError(err)
	}
	return NewResult(fmt.Sprintf("Message sent to %s", recipient))
}
