package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ngocminh-dev/wareply/internal/bridge"
)

type echoTool struct{ name string }

func (t *echoTool) Name() string                        { return t.name }
func (t *echoTool) Description() string                 { return "echo" }
func (t *echoTool) Parameters() map[string]interface{}  { return map[string]interface{}{"type": "object"} }
func (t *echoTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	s, _ := args["text"].(string)
	return NewResult(s)
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "echo"})

	res := r.Execute(context.Background(), "echo", map[string]interface{}{"text": "hi"})
	if res.IsError || res.ForLLM != "hi" {
		t.Errorf("result = %+v", res)
	}

	res = r.Execute(context.Background(), "missing", nil)
	if !res.IsError || !strings.Contains(res.ForLLM, "unknown tool") {
		t.Errorf("result = %+v", res)
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoTool{name: "b"})
	r.Register(&echoTool{name: "a"})

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Function.Name != "b" || defs[1].Function.Name != "a" {
		t.Errorf("definitions = %+v", defs)
	}
}

func newBridgeServer(t *testing.T, handler http.HandlerFunc) *bridge.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return bridge.NewClient(srv.URL, "")
}

func TestSendMessageTool(t *testing.T) {
	b := newBridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})
	tool := NewSendMessageTool(b)

	res := tool.Execute(context.Background(), map[string]interface{}{
		"recipient": "111@s.whatsapp.net",
		"message":   "hello",
	})
	if res.IsError {
		t.Fatalf("result = %+v", res)
	}

	res = tool.Execute(context.Background(), map[string]interface{}{"message": "hello"})
	if !res.IsError {
		t.Error("expected error for missing recipient")
	}
	res = tool.Execute(context.Background(), map[string]interface{}{"recipient": "111"})
	if !res.IsError {
		t.Error("expected error for missing message")
	}
}

func TestSearchContactsTool(t *testing.T) {
	b := newBridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]bridge.Contact{
			{JID: "1@s.whatsapp.net", Name: "Alice", Phone: "1"},
		})
	})
	tool := NewSearchContactsTool(b)

	res := tool.Execute(context.Background(), map[string]interface{}{"query": "ali"})
	if res.IsError || !strings.Contains(res.ForLLM, "Alice") {
		t.Errorf("result = %+v", res)
	}

	res = tool.Execute(context.Background(), map[string]interface{}{})
	if !res.IsError {
		t.Error("expected error for missing query")
	}
}

func TestLastInteractionTool(t *testing.T) {
	b := newBridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bridge.Interaction{
			Timestamp: "2026-02-14T17:10:00+05:30",
			Content:   "on my way",
		})
	})
	tool := NewLastInteractionTool(b)

	res := tool.Execute(context.Background(), map[string]interface{}{"jid": "1@s.whatsapp.net"})
	if res.IsError || !strings.Contains(res.ForLLM, "on my way") {
		t.Errorf("result = %+v", res)
	}
}
