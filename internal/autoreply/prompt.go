package autoreply

import (
	"fmt"
	"strings"

	"github.com/ngocminh-dev/wareply/internal/bus"
)

// BuildPrompt turns the drained batch for one sender into a single
// agent prompt. Callers never pass an empty batch.
func BuildPrompt(msgs []bus.InboundMessage) string {
	first := msgs[0]
	name := first.SenderName
	if name == "" {
		name = first.Sender
	}

	if len(msgs) == 1 {
		return fmt.Sprintf(
			"You received a WhatsApp message from %s (phone: %s, JID: %s).\n\n"+
				"Their message: %q\n\n"+
				"Reply to them using the send_message tool with recipient %q.",
			name, first.Sender, first.ChatJID, first.Content, first.ChatJID,
		)
	}

	var combined strings.Builder
	for i, m := range msgs {
		if i > 0 {
			combined.WriteByte('\n')
		}
		fmt.Fprintf(&combined, "  [%s] %s", m.Timestamp, m.Content)
	}
	return fmt.Sprintf(
		"You received %d WhatsApp messages from %s (phone: %s, JID: %s).\n\n"+
			"Their messages (oldest first):\n%s\n\n"+
			"Reply to them using the send_message tool with recipient %q. "+
			"Consider all the messages together when crafting your reply.",
		len(msgs), name, first.Sender, first.ChatJID, combined.String(), first.ChatJID,
	)
}
