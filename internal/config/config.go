package config

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Config is the full runtime configuration, loaded from config.json5
// with environment overrides. Secrets (API keys, tokens, DSNs) never
// appear in the file and are read from the environment only.
type Config struct {
	mu sync.RWMutex

	Server    ServerConfig    `json:"server"`
	AutoReply AutoReplyConfig `json:"auto_reply"`
	Bridge    BridgeConfig    `json:"bridge"`
	Provider  ProviderConfig  `json:"provider"`
	Database  DatabaseConfig  `json:"database"`
	Sessions  SessionsConfig  `json:"sessions"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// RateLimitRPS caps inbound webhook requests per second. 0 disables.
	RateLimitRPS   float64 `json:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst"`
}

type AutoReplyConfig struct {
	Enabled         bool                `json:"enabled"`
	DebounceSeconds float64             `json:"debounce_seconds"`
	CooldownSeconds float64             `json:"cooldown_seconds"`
	// CooldownPolicy is "reschedule" or "drop".
	CooldownPolicy string              `json:"cooldown_policy"`
	IgnoreJIDs     FlexibleStringSlice `json:"ignore_jids"`
	InvokePrefix   string              `json:"invoke_prefix"`
	OwnerName      string              `json:"owner_name"`
}

func (a AutoReplyConfig) DebounceWindow() time.Duration {
	return time.Duration(a.DebounceSeconds * float64(time.Second))
}

func (a AutoReplyConfig) CooldownWindow() time.Duration {
	return time.Duration(a.CooldownSeconds * float64(time.Second))
}

type BridgeConfig struct {
	BaseURL string `json:"base_url"`
	// Token authenticates calls to the WhatsApp bridge REST API.
	// Environment only: WAREPLY_BRIDGE_TOKEN.
	Token string `json:"-"`
}

type ProviderConfig struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	BaseURL   string `json:"base_url,omitempty"`
	// APIKey comes from WAREPLY_ANTHROPIC_API_KEY or
	// WAREPLY_OPENAI_API_KEY depending on Name.
	APIKey string `json:"-"`
}

type DatabaseConfig struct {
	// PostgresDSN switches the session store into managed mode when set.
	// Environment only: WAREPLY_POSTGRES_DSN.
	PostgresDSN        string `json:"-"`
	PoolPrePing        bool   `json:"pool_pre_ping"`
	PoolRecycleSeconds int    `json:"pool_recycle_seconds"`
	PoolSize           int    `json:"pool_size"`
	MaxOverflow        int    `json:"max_overflow"`
	PoolTimeoutSeconds int    `json:"pool_timeout_seconds"`
}

type SessionsConfig struct {
	// Storage is the sqlite database path used in standalone mode.
	Storage string `json:"storage"`
}

type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	Protocol    string `json:"protocol"`
	Insecure    bool   `json:"insecure"`
	ServiceName string `json:"service_name"`
}

// FlexibleStringSlice accepts either a JSON array of strings or a
// single comma separated string.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = splitCSV(s)
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AutoReplySnapshot returns a copy of the auto-reply section safe to
// use from handler goroutines while the watcher may reload the file.
func (c *Config) AutoReplySnapshot() AutoReplyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := c.AutoReply
	snap.IgnoreJIDs = append(FlexibleStringSlice(nil), c.AutoReply.IgnoreJIDs...)
	return snap
}

// ReplaceFrom swaps in the values of a freshly loaded config.
func (c *Config) ReplaceFrom(next *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Server = next.Server
	c.AutoReply = next.AutoReply
	c.Bridge = next.Bridge
	c.Provider = next.Provider
	c.Database = next.Database
	c.Sessions = next.Sessions
	c.Telemetry = next.Telemetry
}
