package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ngocminh-dev/wareply/internal/agent"
	"github.com/ngocminh-dev/wareply/internal/autoreply"
	"github.com/ngocminh-dev/wareply/internal/bridge"
	"github.com/ngocminh-dev/wareply/internal/bus"
	"github.com/ngocminh-dev/wareply/internal/config"
	"github.com/ngocminh-dev/wareply/internal/providers"
	"github.com/ngocminh-dev/wareply/internal/store"
	"github.com/ngocminh-dev/wareply/internal/store/pg"
	"github.com/ngocminh-dev/wareply/internal/store/sqlite"
	"github.com/ngocminh-dev/wareply/internal/telemetry"
	"github.com/ngocminh-dev/wareply/internal/tools"
	"github.com/ngocminh-dev/wareply/internal/webhook"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and auto-reply agent",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}

	sessionStore, err := openSessionStore(cfg)
	if err != nil {
		slog.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer sessionStore.Close()

	provider, err := providers.New(cfg.Provider.Name, cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Model)
	if err != nil {
		slog.Error("failed to init provider", "error", err)
		os.Exit(1)
	}
	slog.Info("provider ready", "name", provider.Name(), "model", provider.DefaultModel())

	bridgeClient := bridge.NewClient(cfg.Bridge.BaseURL, cfg.Bridge.Token)

	registry := tools.NewRegistry()
	registry.Register(tools.NewSendMessageTool(bridgeClient))
	registry.Register(tools.NewSearchContactsTool(bridgeClient))
	registry.Register(tools.NewLastInteractionTool(bridgeClient))

	broker := bus.NewBroker()

	snap := cfg.AutoReplySnapshot()
	runner := agent.NewRunner(agent.RunnerConfig{
		Provider:  provider,
		Model:     cfg.Provider.Model,
		MaxTokens: cfg.Provider.MaxTokens,
		OwnerName: snap.OwnerName,
		Sessions:  sessionStore,
		Tools:     registry,
		Events:    broker,
	})

	coordinator := autoreply.NewCoordinator(ctx, cfg, runner, broker)
	server := webhook.NewServer(cfg, coordinator, broker)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		return config.Watch(gctx, cfgPath, cfg)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		slog.Error("server exited", "error", err)
	}

	coordinator.Shutdown()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}

	slog.Info("shutdown complete")
}

// openSessionStore picks postgres when a DSN is configured, sqlite otherwise.
func openSessionStore(cfg *config.Config) (store.SessionStore, error) {
	if cfg.Database.PostgresDSN != "" {
		db, err := pg.OpenDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		slog.Info("session store ready", "backend", "postgres")
		return pg.NewSessionStore(db), nil
	}
	path := config.ExpandHome(cfg.Sessions.Storage)
	s, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Info("session store ready", "backend", "sqlite", "path", path)
	return s, nil
}
