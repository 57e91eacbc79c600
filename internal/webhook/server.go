// Package webhook is the HTTP surface: the bridge posts inbound DM
// notifications here, and observers can follow agent activity over
// the /ws event feed.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ngocminh-dev/wareply/internal/autoreply"
	"github.com/ngocminh-dev/wareply/internal/bus"
	"github.com/ngocminh-dev/wareply/internal/config"
)

// Server hosts the webhook endpoint and the WebSocket event feed.
type Server struct {
	cfg         *config.Config
	coordinator *autoreply.Coordinator
	events      bus.EventPublisher
	limiter     *rateLimiter
	upgrader    websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient

	httpServer *http.Server
	mux        *http.ServeMux
}

func NewServer(cfg *config.Config, coordinator *autoreply.Coordinator, events bus.EventPublisher) *Server {
	s := &Server{
		cfg:         cfg,
		coordinator: coordinator,
		events:      events,
		limiter:     newRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		clients:     make(map[string]*wsClient),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Feed is localhost-oriented; the bridge and dashboards run on
		// the same host.
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return s
}

func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/whatsapp", s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.mux = mux
	return mux
}

// Start listens until ctx is cancelled, then drains with a short
// shutdown grace period.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.BuildMux(),
	}

	slog.Info("webhook server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}
