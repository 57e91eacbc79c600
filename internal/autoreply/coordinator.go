package autoreply

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ngocminh-dev/wareply/internal/agent"
	"github.com/ngocminh-dev/wareply/internal/bus"
	"github.com/ngocminh-dev/wareply/internal/config"
	"github.com/ngocminh-dev/wareply/internal/sessions"
)

var tracer = otel.Tracer("wareply/autoreply")

// AgentRunner is the reply-generating side consumed by the
// coordinator. The agent performs the actual send through its own
// tools; the coordinator only folds the event stream for logging.
type AgentRunner interface {
	Run(ctx context.Context, sessionKey, message string) <-chan agent.Event
}

// Status is the webhook-facing outcome for one inbound event.
type Status struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Coordinator is the per-contact intake state machine: admit, queue,
// debounce, gate on cooldown, aggregate, invoke.
type Coordinator struct {
	cfg      *config.Config
	contacts *ContactStore
	debounce *Debouncer
	runner   AgentRunner
	events   bus.EventPublisher // optional

	ctx context.Context
}

func NewCoordinator(ctx context.Context, cfg *config.Config, runner AgentRunner, events bus.EventPublisher) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		contacts: NewContactStore(),
		debounce: NewDebouncer(),
		runner:   runner,
		events:   events,
		ctx:      ctx,
	}
}

// HandleInbound processes one webhook event and returns the status
// for the HTTP response. Admitted messages are queued and the
// sender's debounce timer restarts.
func (c *Coordinator) HandleInbound(msg bus.InboundMessage) Status {
	snap := c.cfg.AutoReplySnapshot()

	if reason, admit := Classify(snap, msg); !admit {
		if reason == ReasonDisabled {
			return Status{Status: "disabled"}
		}
		slog.Debug("skipping inbound message", "chat", msg.ChatJID, "reason", reason)
		return Status{Status: "skipped", Reason: reason}
	}

	slog.Info("webhook received DM",
		"sender", msg.Sender, "name", msg.SenderName, "content", truncate(msg.Content, 80))

	c.contacts.Append(msg.Sender, msg)
	c.broadcast("message.queued", map[string]interface{}{
		"sender":  msg.Sender,
		"pending": c.contacts.PendingCount(msg.Sender),
	})

	sender := msg.Sender
	c.debounce.Schedule(sender, snap.DebounceWindow(), func() { c.fire(sender) })

	return Status{Status: "queued"}
}

// fire runs when a sender's debounce timer elapses uninterrupted.
func (c *Coordinator) fire(sender string) {
	snap := c.cfg.AutoReplySnapshot()

	allowed, remaining := CheckCooldown(c.contacts.LastReplyAt(sender), time.Now(), snap.CooldownWindow())
	if !allowed {
		switch snap.CooldownPolicy {
		case PolicyDrop:
			dropped := c.contacts.Drain(sender)
			slog.Info("cooldown active, dropping pending messages",
				"sender", sender, "dropped", len(dropped), "remaining", remaining.Round(time.Second))
		default:
			slog.Info("cooldown active, rescheduling",
				"sender", sender, "remaining", remaining.Round(time.Second))
			c.debounce.Schedule(sender, remaining+rearmBuffer, func() { c.fire(sender) })
		}
		return
	}

	msgs := c.contacts.Drain(sender)
	if len(msgs) == 0 {
		return
	}

	prompt := BuildPrompt(msgs)
	slog.Info("invoking agent", "sender", sender, "messages", len(msgs))
	c.broadcast("reply.started", map[string]interface{}{"sender": sender, "messages": len(msgs)})

	// The invocation runs outside any per-contact lock; a slow agent
	// call never blocks other contacts.
	ctx, span := tracer.Start(c.ctx, "autoreply.invoke")
	span.SetAttributes(attribute.Int("wareply.messages", len(msgs)))
	defer span.End()

	var text strings.Builder
	failed := false
	for ev := range c.runner.Run(ctx, sessions.Key(sender), prompt) {
		switch ev.Type {
		case agent.EventText:
			text.WriteString(ev.Content)
		case agent.EventError:
			slog.Error("agent run failed", "sender", sender, "error", ev.Err)
			failed = true
		}
	}
	if failed {
		// The sender gets nothing; drained messages are not retried.
		c.broadcast("reply.failed", map[string]interface{}{"sender": sender})
		return
	}

	c.contacts.MarkReplied(sender, time.Now())
	if text.Len() == 0 {
		slog.Warn("agent produced no text output", "sender", sender)
	} else {
		slog.Info("auto-reply sent", "sender", sender, "response", truncate(text.String(), 200))
	}
	c.broadcast("reply.completed", map[string]interface{}{"sender": sender})
}

// Flush cancels the sender's timer and runs the pipeline immediately.
// Used by the doctor command and tests.
func (c *Coordinator) Flush(sender string) {
	c.debounce.Cancel(sender)
	c.fire(sender)
}

// Shutdown cancels all pending timers. Queued messages not yet fired
// are dropped.
func (c *Coordinator) Shutdown() {
	c.debounce.Stop()
}

func (c *Coordinator) broadcast(name string, payload interface{}) {
	if c.events != nil {
		c.events.Broadcast(bus.Event{Name: name, Payload: payload})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
