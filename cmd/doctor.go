package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/ngocminh-dev/wareply/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("wareply doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	snap := cfg.AutoReplySnapshot()
	fmt.Println()
	fmt.Println("  Auto-reply:")
	fmt.Printf("    %-12s %v\n", "Enabled:", snap.Enabled)
	fmt.Printf("    %-12s %.1fs\n", "Debounce:", snap.DebounceSeconds)
	fmt.Printf("    %-12s %.1fs (%s)\n", "Cooldown:", snap.CooldownSeconds, snap.CooldownPolicy)
	fmt.Printf("    %-12s %d JIDs\n", "Ignored:", len(snap.IgnoreJIDs))

	fmt.Println()
	fmt.Println("  Provider:")
	fmt.Printf("    %-12s %s\n", "Name:", cfg.Provider.Name)
	fmt.Printf("    %-12s %s\n", "Model:", cfg.Provider.Model)
	if cfg.Provider.APIKey == "" {
		fmt.Printf("    %-12s MISSING (set WAREPLY_ANTHROPIC_API_KEY or WAREPLY_OPENAI_API_KEY)\n", "API key:")
	} else {
		fmt.Printf("    %-12s configured\n", "API key:")
	}

	fmt.Println()
	fmt.Println("  Bridge:")
	fmt.Printf("    %-12s %s\n", "URL:", cfg.Bridge.BaseURL)
	checkBridge(cfg.Bridge.BaseURL)

	fmt.Println()
	fmt.Println("  Sessions:")
	if cfg.Database.PostgresDSN != "" {
		fmt.Printf("    %-12s postgres\n", "Backend:")
		checkPostgres(cfg.Database.PostgresDSN)
	} else {
		path := config.ExpandHome(cfg.Sessions.Storage)
		fmt.Printf("    %-12s sqlite\n", "Backend:")
		fmt.Printf("    %-12s %s\n", "Path:", path)
	}
}

func checkBridge(baseURL string) {
	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequest(http.MethodGet, baseURL, nil)
	if err != nil {
		fmt.Printf("    %-12s INVALID URL (%s)\n", "Status:", err)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("    %-12s UNREACHABLE (%s)\n", "Status:", err)
		return
	}
	resp.Body.Close()
	fmt.Printf("    %-12s reachable (HTTP %d)\n", "Status:", resp.StatusCode)
}

func checkPostgres(dsn string) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
		return
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		fmt.Printf("    %-12s PING FAILED (%s)\n", "Status:", err)
		return
	}
	fmt.Printf("    %-12s connected\n", "Status:")
}
