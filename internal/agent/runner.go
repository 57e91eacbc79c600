// Package agent runs the reply loop: build context from the session,
// call the LLM, execute requested tools, repeat until the model stops
// asking for tools or the iteration cap is hit.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ngocminh-dev/wareply/internal/bus"
	"github.com/ngocminh-dev/wareply/internal/providers"
	"github.com/ngocminh-dev/wareply/internal/sessions"
	"github.com/ngocminh-dev/wareply/internal/store"
	"github.com/ngocminh-dev/wareply/internal/tools"
)

const defaultMaxIterations = 8

// Runner executes agent runs against per-contact sessions.
type Runner struct {
	provider      providers.Provider
	model         string
	maxTokens     int
	maxIterations int
	ownerName     string
	sessions      store.SessionStore
	tools         *tools.Registry
	events        bus.EventPublisher // optional, for the /ws feed
}

// RunnerConfig configures a new Runner.
type RunnerConfig struct {
	Provider      providers.Provider
	Model         string
	MaxTokens     int
	MaxIterations int
	OwnerName     string
	Sessions      store.SessionStore
	Tools         *tools.Registry
	Events        bus.EventPublisher
}

func NewRunner(cfg RunnerConfig) *Runner {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	return &Runner{
		provider:      cfg.Provider,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		maxIterations: maxIter,
		ownerName:     cfg.OwnerName,
		sessions:      cfg.Sessions,
		tools:         cfg.Tools,
		events:        cfg.Events,
	}
}

// Run processes one aggregated prompt through the agent loop. The
// returned channel delivers progress events and closes after the
// terminal done or error event.
func (r *Runner) Run(ctx context.Context, sessionKey, message string) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)

		runID := uuid.NewString()
		r.emit(ch, Event{Type: EventRunStarted, RunID: runID, SessionKey: sessionKey})

		content, err := r.run(ctx, runID, sessionKey, message, ch)
		if err != nil {
			r.emit(ch, Event{Type: EventError, RunID: runID, SessionKey: sessionKey, Err: err, IsError: true})
			return
		}
		r.emit(ch, Event{Type: EventDone, RunID: runID, SessionKey: sessionKey, Content: content})
	}()
	return ch
}

func (r *Runner) run(ctx context.Context, runID, sessionKey, message string, ch chan<- Event) (string, error) {
	if err := r.ensureSession(ctx, sessionKey); err != nil {
		return "", err
	}

	history, err := r.sessions.History(ctx, sessions.App, sessions.User, sessionKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("load history: %w", err)
	}

	// System prompt is rebuilt per run and never persisted.
	messages := make([]providers.Message, 0, len(history)+2)
	messages = append(messages, providers.Message{
		Role:    "system",
		Content: SystemPrompt(r.ownerName, time.Now()),
	})
	messages = append(messages, history...)

	userMsg := providers.Message{Role: "user", Content: message}
	messages = append(messages, userMsg)

	// Buffer new messages; write to the session only after the run
	// completes so a failed run leaves history untouched.
	pending := []providers.Message{userMsg}

	var finalContent string
	for iteration := 1; iteration <= r.maxIterations; iteration++ {
		resp, err := r.provider.Chat(ctx, providers.ChatRequest{
			Messages:  messages,
			Tools:     r.tools.Definitions(),
			Model:     r.model,
			MaxTokens: r.maxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("LLM call failed (iteration %d): %w", iteration, err)
		}

		if resp.Content != "" {
			r.emit(ch, Event{Type: EventText, RunID: runID, SessionKey: sessionKey, Content: resp.Content})
		}

		assistantMsg := providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		messages = append(messages, assistantMsg)
		pending = append(pending, assistantMsg)

		if len(resp.ToolCalls) == 0 {
			finalContent = resp.Content
			break
		}

		for _, tc := range resp.ToolCalls {
			r.emit(ch, Event{Type: EventToolCall, RunID: runID, SessionKey: sessionKey, Tool: tc.Name, ToolID: tc.ID})
			slog.Info("tool call", "session", sessionKey, "tool", tc.Name)

			result := r.tools.Execute(ctx, tc.Name, tc.Arguments)
			r.emit(ch, Event{
				Type: EventToolResult, RunID: runID, SessionKey: sessionKey,
				Tool: tc.Name, ToolID: tc.ID, Content: result.ForLLM, IsError: result.IsError,
			})

			toolMsg := providers.Message{
				Role:       "tool",
				Content:    result.ForLLM,
				ToolCallID: tc.ID,
			}
			messages = append(messages, toolMsg)
			pending = append(pending, toolMsg)
		}
	}

	if err := r.sessions.AppendMessages(ctx, sessions.App, sessions.User, sessionKey, pending...); err != nil {
		slog.Warn("failed to persist session history", "session", sessionKey, "error", err)
	}
	return finalContent, nil
}

func (r *Runner) ensureSession(ctx context.Context, sessionKey string) error {
	_, err := r.sessions.Create(ctx, sessions.App, sessions.User, sessionKey)
	if errors.Is(err, store.ErrSessionExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	slog.Info("created session", "key", sessionKey)
	return nil
}

func (r *Runner) emit(ch chan<- Event, ev Event) {
	ch <- ev
	if r.events != nil {
		r.events.Broadcast(bus.Event{Name: "agent." + string(ev.Type), Payload: ev})
	}
}
