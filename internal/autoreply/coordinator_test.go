package autoreply

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ngocminh-dev/wareply/internal/agent"
	"github.com/ngocminh-dev/wareply/internal/bus"
	"github.com/ngocminh-dev/wareply/internal/config"
)

// fakeRunner records invocations and plays back a scripted event
// stream per run.
type fakeRunner struct {
	mu      sync.Mutex
	prompts []string
	keys    []string
	events  []agent.Event
}

func (f *fakeRunner) Run(_ context.Context, sessionKey, message string) <-chan agent.Event {
	f.mu.Lock()
	f.prompts = append(f.prompts, message)
	f.keys = append(f.keys, sessionKey)
	events := f.events
	f.mu.Unlock()

	ch := make(chan agent.Event, len(events)+2)
	ch <- agent.Event{Type: agent.EventRunStarted}
	for _, ev := range events {
		ch <- ev
	}
	ch <- agent.Event{Type: agent.EventDone}
	close(ch)
	return ch
}

func (f *fakeRunner) invocations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func testCoordinator(t *testing.T, mutate func(*config.AutoReplyConfig)) (*Coordinator, *fakeRunner) {
	t.Helper()
	cfg := config.Default()
	cfg.AutoReply.DebounceSeconds = 0.03
	cfg.AutoReply.CooldownSeconds = 0.2
	if mutate != nil {
		mutate(&cfg.AutoReply)
	}

	runner := &fakeRunner{events: []agent.Event{{Type: agent.EventText, Content: "done"}}}
	c := NewCoordinator(context.Background(), cfg, runner, nil)
	t.Cleanup(c.Shutdown)
	return c, runner
}

func dm(sender, content string) bus.InboundMessage {
	return bus.InboundMessage{
		Sender:     sender,
		SenderName: "Contact " + sender,
		ChatJID:    sender + "@s.whatsapp.net",
		Content:    content,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSingleMessageInvokesOnce(t *testing.T) {
	c, runner := testCoordinator(t, nil)

	st := c.HandleInbound(dm("111", "hi"))
	if st.Status != "queued" {
		t.Fatalf("status = %+v", st)
	}

	waitFor(t, func() bool { return runner.invocations() == 1 }, time.Second, "agent not invoked")

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if !strings.Contains(runner.prompts[0], `"hi"`) {
		t.Errorf("prompt = %q", runner.prompts[0])
	}
	if runner.keys[0] != "auto_reply:111" {
		t.Errorf("session key = %q", runner.keys[0])
	}
}

func TestBurstCollapsesToOneInvocation(t *testing.T) {
	c, runner := testCoordinator(t, nil)

	c.HandleInbound(dm("111", "first"))
	time.Sleep(10 * time.Millisecond)
	c.HandleInbound(dm("111", "second"))
	time.Sleep(10 * time.Millisecond)
	c.HandleInbound(dm("111", "third"))

	waitFor(t, func() bool { return runner.invocations() >= 1 }, time.Second, "agent not invoked")
	time.Sleep(100 * time.Millisecond)

	if got := runner.invocations(); got != 1 {
		t.Fatalf("invocations = %d, want 1", got)
	}

	runner.mu.Lock()
	prompt := runner.prompts[0]
	runner.mu.Unlock()
	if !strings.Contains(prompt, "3 WhatsApp messages") {
		t.Errorf("prompt should aggregate 3 messages:\n%s", prompt)
	}
	i1, i2, i3 := strings.Index(prompt, "first"), strings.Index(prompt, "second"), strings.Index(prompt, "third")
	if !(i1 >= 0 && i1 < i2 && i2 < i3) {
		t.Errorf("messages out of order in prompt:\n%s", prompt)
	}
}

func TestDifferentSendersIndependent(t *testing.T) {
	c, runner := testCoordinator(t, nil)

	c.HandleInbound(dm("111", "one"))
	c.HandleInbound(dm("222", "two"))

	waitFor(t, func() bool { return runner.invocations() == 2 }, time.Second, "expected two invocations")
}

func TestSkippedMessagesDoNotMutateState(t *testing.T) {
	c, runner := testCoordinator(t, nil)

	st := c.HandleInbound(bus.InboundMessage{ChatJID: "123-456@g.us", Sender: "111", Content: "hi"})
	if st.Status != "skipped" || st.Reason != ReasonNotDM {
		t.Fatalf("status = %+v", st)
	}
	if c.contacts.PendingCount("111") != 0 {
		t.Error("skipped message was queued")
	}

	time.Sleep(80 * time.Millisecond)
	if runner.invocations() != 0 {
		t.Error("skipped message triggered invocation")
	}
}

func TestCooldownReschedulePreservesMessages(t *testing.T) {
	c, runner := testCoordinator(t, func(a *config.AutoReplyConfig) {
		a.CooldownPolicy = PolicyReschedule
		a.CooldownSeconds = 0.3
	})

	// consume the cooldown slot
	c.HandleInbound(dm("111", "first"))
	waitFor(t, func() bool { return runner.invocations() == 1 }, time.Second, "first invocation missing")

	// next message lands inside the cooldown window
	c.HandleInbound(dm("111", "second"))
	time.Sleep(120 * time.Millisecond)

	if got := runner.invocations(); got != 1 {
		t.Fatalf("invocations during cooldown = %d, want 1", got)
	}
	if c.contacts.PendingCount("111") != 1 {
		t.Errorf("pending = %d, want message preserved", c.contacts.PendingCount("111"))
	}

	// after the window opens, the rescheduled fire delivers it
	waitFor(t, func() bool { return runner.invocations() == 2 }, 2*time.Second, "rescheduled invocation missing")

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if !strings.Contains(runner.prompts[1], "second") {
		t.Errorf("second prompt = %q", runner.prompts[1])
	}
}

func TestCooldownDropDiscardsMessages(t *testing.T) {
	c, runner := testCoordinator(t, func(a *config.AutoReplyConfig) {
		a.CooldownPolicy = PolicyDrop
		a.CooldownSeconds = 10
	})

	c.HandleInbound(dm("111", "first"))
	waitFor(t, func() bool { return runner.invocations() == 1 }, time.Second, "first invocation missing")

	c.HandleInbound(dm("111", "second"))
	time.Sleep(100 * time.Millisecond)

	if got := runner.invocations(); got != 1 {
		t.Fatalf("invocations = %d, want 1", got)
	}
	if c.contacts.PendingCount("111") != 0 {
		t.Errorf("pending = %d, want 0 after drop", c.contacts.PendingCount("111"))
	}
}

func TestRunFailureDoesNotConsumeCooldown(t *testing.T) {
	c, runner := testCoordinator(t, nil)
	runner.mu.Lock()
	runner.events = []agent.Event{{Type: agent.EventError, Err: errors.New("model down"), IsError: true}}
	runner.mu.Unlock()

	c.HandleInbound(dm("111", "hi"))
	waitFor(t, func() bool { return runner.invocations() == 1 }, time.Second, "invocation missing")
	time.Sleep(20 * time.Millisecond)

	if !c.contacts.LastReplyAt("111").IsZero() {
		t.Error("failed run must not update last reply time")
	}
}

func TestEmptyReplyStillConsumesCooldown(t *testing.T) {
	c, runner := testCoordinator(t, nil)
	runner.mu.Lock()
	runner.events = nil // no text events at all
	runner.mu.Unlock()

	c.HandleInbound(dm("111", "hi"))
	waitFor(t, func() bool { return runner.invocations() == 1 }, time.Second, "invocation missing")
	waitFor(t, func() bool { return !c.contacts.LastReplyAt("111").IsZero() }, time.Second,
		"empty reply must still update last reply time")
}

func TestDisabledStatus(t *testing.T) {
	c, _ := testCoordinator(t, func(a *config.AutoReplyConfig) { a.Enabled = false })

	st := c.HandleInbound(dm("111", "hi"))
	if st.Status != "disabled" || st.Reason != "" {
		t.Fatalf("status = %+v", st)
	}
}
