package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ngocminh-dev/wareply/internal/providers"
	"github.com/ngocminh-dev/wareply/internal/sessions"
	"github.com/ngocminh-dev/wareply/internal/store"
	"github.com/ngocminh-dev/wareply/internal/tools"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*providers.ChatResponse
	requests  []providers.ChatRequest
	err       error
}

func (p *scriptedProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &providers.ChatResponse{Content: "fallback", FinishReason: "stop"}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, req providers.ChatRequest, _ func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	return p.Chat(ctx, req)
}

func (p *scriptedProvider) DefaultModel() string { return "scripted" }
func (p *scriptedProvider) Name() string         { return "scripted" }

// memStore is an in-memory store.SessionStore for tests.
type memStore struct {
	mu    sync.Mutex
	msgs  map[string][]providers.Message
	known map[string]bool
}

func newMemStore() *memStore {
	return &memStore{msgs: make(map[string][]providers.Message), known: make(map[string]bool)}
}

func (m *memStore) Create(_ context.Context, _, _, key string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known[key] {
		return nil, store.ErrSessionExists
	}
	m.known[key] = true
	return &store.Session{ID: uuid.New(), Key: key}, nil
}

func (m *memStore) Get(_ context.Context, _, _, key string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[key] {
		return nil, store.ErrNotFound
	}
	return &store.Session{Key: key}, nil
}

func (m *memStore) AppendMessages(_ context.Context, _, _, key string, msgs ...providers.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[key] {
		return store.ErrNotFound
	}
	m.msgs[key] = append(m.msgs[key], msgs...)
	return nil
}

func (m *memStore) History(_ context.Context, _, _, key string) ([]providers.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[key] {
		return nil, store.ErrNotFound
	}
	return append([]providers.Message(nil), m.msgs[key]...), nil
}

func (m *memStore) Close() error { return nil }

type recordTool struct {
	mu    sync.Mutex
	calls []map[string]interface{}
}

func (t *recordTool) Name() string                       { return "send_message" }
func (t *recordTool) Description() string                { return "send" }
func (t *recordTool) Parameters() map[string]interface{} { return map[string]interface{}{"type": "object"} }
func (t *recordTool) Execute(_ context.Context, args map[string]interface{}) *tools.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, args)
	return tools.NewResult("Message sent")
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestRunToolLoop(t *testing.T) {
	tool := &recordTool{}
	reg := tools.NewRegistry()
	reg.Register(tool)

	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{
			FinishReason: "tool_calls",
			ToolCalls: []providers.ToolCall{{
				ID: "tc1", Name: "send_message",
				Arguments: map[string]interface{}{"recipient": "111@s.whatsapp.net", "message": "hey"},
			}},
		},
		{Content: "Replied to Alice.", FinishReason: "stop"},
	}}

	st := newMemStore()
	r := NewRunner(RunnerConfig{
		Provider: p, OwnerName: "Minh", Sessions: st, Tools: reg,
	})

	key := sessions.Key("111")
	events := collect(t, r.Run(context.Background(), key, "You received a WhatsApp message"))

	last := events[len(events)-1]
	if last.Type != EventDone || last.Content != "Replied to Alice." {
		t.Fatalf("last event = %+v", last)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(tool.calls))
	}

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	want := []EventType{EventRunStarted, EventToolCall, EventToolResult, EventText, EventDone}
	if len(types) != len(want) {
		t.Fatalf("event types = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}

	// run again: session exists, history must carry over
	p.responses = []*providers.ChatResponse{{Content: "again", FinishReason: "stop"}}
	collect(t, r.Run(context.Background(), key, "second message"))

	hist, err := st.History(context.Background(), sessions.App, sessions.User, key)
	if err != nil {
		t.Fatal(err)
	}
	// run 1: user, assistant(tool), tool, assistant; run 2: user, assistant
	if len(hist) != 6 {
		t.Fatalf("history len = %d: %+v", len(hist), hist)
	}

	// second request must include first run's history
	p.mu.Lock()
	lastReq := p.requests[len(p.requests)-1]
	p.mu.Unlock()
	if len(lastReq.Messages) < 5 {
		t.Errorf("second run saw %d messages, want history included", len(lastReq.Messages))
	}
	if lastReq.Messages[0].Role != "system" || !strings.Contains(lastReq.Messages[0].Content, "Minh") {
		t.Errorf("system prompt missing owner: %q", lastReq.Messages[0].Content)
	}
}

func TestRunProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("rate limited")}
	r := NewRunner(RunnerConfig{
		Provider: p, OwnerName: "Minh", Sessions: newMemStore(), Tools: tools.NewRegistry(),
	})

	events := collect(t, r.Run(context.Background(), sessions.Key("111"), "hi"))
	last := events[len(events)-1]
	if last.Type != EventError || last.Err == nil {
		t.Fatalf("last event = %+v", last)
	}
}

func TestRunIterationCap(t *testing.T) {
	// provider always asks for a tool; the loop must stop at the cap
	tool := &recordTool{}
	reg := tools.NewRegistry()
	reg.Register(tool)

	p := &scriptedProvider{}
	for i := 0; i < 20; i++ {
		p.responses = append(p.responses, &providers.ChatResponse{
			FinishReason: "tool_calls",
			ToolCalls: []providers.ToolCall{{
				ID: "tc", Name: "send_message",
				Arguments: map[string]interface{}{"recipient": "x", "message": "y"},
			}},
		})
	}

	r := NewRunner(RunnerConfig{
		Provider: p, OwnerName: "Minh", Sessions: newMemStore(), Tools: reg,
		MaxIterations: 3,
	})

	events := collect(t, r.Run(context.Background(), sessions.Key("111"), "hi"))
	if len(tool.calls) != 3 {
		t.Errorf("tool calls = %d, want 3", len(tool.calls))
	}
	last := events[len(events)-1]
	if last.Type != EventDone {
		t.Errorf("last event = %+v", last)
	}
	if last.Content != "" {
		t.Errorf("content = %q, want empty after cap", last.Content)
	}
}

func TestRunEmptyReplyStillDone(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "", FinishReason: "stop"},
	}}
	r := NewRunner(RunnerConfig{
		Provider: p, OwnerName: "Minh", Sessions: newMemStore(), Tools: tools.NewRegistry(),
	})

	events := collect(t, r.Run(context.Background(), sessions.Key("111"), "hi"))
	last := events[len(events)-1]
	if last.Type != EventDone || last.Content != "" {
		t.Fatalf("last event = %+v", last)
	}
}
