// Package tools holds the WhatsApp tools exposed to the agent loop.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ngocminh-dev/wareply/internal/providers"
)

// Tool is one callable exposed to the LLM.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Registry holds the registered tools and dispatches calls by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Definitions returns tool schemas in registration order.
func (r *Registry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute dispatches a tool call. Unknown tools produce an error
// result so the LLM can recover instead of the loop aborting.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *Result {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return ErrorResult(fmt.Sprintf("unknown tool %q", name))
	}

	result := t.Execute(ctx, args)
	if result.IsError {
		slog.Warn("tool returned error", "tool", name, "result", result.ForLLM)
	}
	return result
}
