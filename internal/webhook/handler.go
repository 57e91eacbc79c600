package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ngocminh-dev/wareply/internal/bus"
)

var tracer = otel.Tracer("wareply/webhook")

// handleWebhook receives inbound DM notifications from the bridge.
// The coordinator classifies and queues; the response tells the
// bridge what happened but never blocks on the reply pipeline.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "webhook.inbound")
	defer span.End()

	var msg bus.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		slog.Warn("webhook: malformed body", "error", err)
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	if !s.limiter.Allow(msg.Sender) {
		http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
		return
	}

	status := s.coordinator.HandleInbound(msg)
	span.SetAttributes(
		attribute.String("wareply.status", status.Status),
		attribute.String("wareply.reason", status.Reason),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
