package bus

// InboundMessage is one webhook-delivered WhatsApp message.
// Field names mirror the bridge's webhook JSON body.
type InboundMessage struct {
	Sender     string `json:"sender"`      // phone number, e.g. "84901234567"
	SenderName string `json:"sender_name"` // display name, falls back to Sender
	ChatJID    string `json:"chat_jid"`    // e.g. "84901234567@s.whatsapp.net"
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"` // RFC 3339 as delivered by the bridge
	IsFromMe   bool   `json:"is_from_me"`
}

// Event is a server-side event broadcast to WebSocket clients.
type Event struct {
	Name    string      `json:"name"` // e.g. "message.queued", "reply.sent", "reply.failed"
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription.
// Used by the webhook server and the coordinator to decouple from the broker.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}
