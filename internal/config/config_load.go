package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns the built-in configuration, before file and
// environment overrides are applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8001,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		AutoReply: AutoReplyConfig{
			Enabled:         true,
			DebounceSeconds: 5,
			CooldownSeconds: 15,
			CooldownPolicy:  "reschedule",
			InvokePrefix:    "@bot",
			OwnerName:       "the owner",
		},
		Bridge: BridgeConfig{
			BaseURL: "http://localhost:8080/api",
		},
		Provider: ProviderConfig{
			Name:      "anthropic",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1024,
		},
		Database: DatabaseConfig{
			PoolPrePing:        true,
			PoolRecycleSeconds: 300,
			PoolSize:           10,
			MaxOverflow:        20,
			PoolTimeoutSeconds: 30,
		},
		Sessions: SessionsConfig{
			Storage: "~/.wareply/sessions.db",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "wareply",
		},
	}
}

// Load reads the config file at path, if present, on top of defaults,
// then applies WAREPLY_* environment overrides. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		if err == nil {
			if err := json5.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AutoReply.CooldownPolicy {
	case "reschedule", "drop":
	default:
		return fmt.Errorf("auto_reply.cooldown_policy must be \"reschedule\" or \"drop\", got %q", c.AutoReply.CooldownPolicy)
	}
	if c.AutoReply.DebounceSeconds < 0 {
		return fmt.Errorf("auto_reply.debounce_seconds must be >= 0")
	}
	if c.AutoReply.CooldownSeconds < 0 {
		return fmt.Errorf("auto_reply.cooldown_seconds must be >= 0")
	}
	switch c.Telemetry.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol must be \"grpc\" or \"http\", got %q", c.Telemetry.Protocol)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	envStr("WAREPLY_HOST", &cfg.Server.Host)
	envInt("WAREPLY_PORT", &cfg.Server.Port)

	envBool("WAREPLY_ENABLED", &cfg.AutoReply.Enabled)
	envFloat("WAREPLY_DEBOUNCE_SECONDS", &cfg.AutoReply.DebounceSeconds)
	envFloat("WAREPLY_COOLDOWN_SECONDS", &cfg.AutoReply.CooldownSeconds)
	envStr("WAREPLY_COOLDOWN_POLICY", &cfg.AutoReply.CooldownPolicy)
	envStr("WAREPLY_INVOKE_PREFIX", &cfg.AutoReply.InvokePrefix)
	envStr("WAREPLY_OWNER_NAME", &cfg.AutoReply.OwnerName)
	if v := os.Getenv("WAREPLY_IGNORE_JIDS"); v != "" {
		cfg.AutoReply.IgnoreJIDs = splitCSV(v)
	}

	envStr("WAREPLY_BRIDGE_URL", &cfg.Bridge.BaseURL)
	envStr("WAREPLY_BRIDGE_TOKEN", &cfg.Bridge.Token)

	envStr("WAREPLY_PROVIDER", &cfg.Provider.Name)
	envStr("WAREPLY_MODEL", &cfg.Provider.Model)
	envInt("WAREPLY_MAX_TOKENS", &cfg.Provider.MaxTokens)
	envStr("WAREPLY_PROVIDER_BASE_URL", &cfg.Provider.BaseURL)
	switch strings.ToLower(cfg.Provider.Name) {
	case "openai":
		envStr("WAREPLY_OPENAI_API_KEY", &cfg.Provider.APIKey)
	default:
		envStr("WAREPLY_ANTHROPIC_API_KEY", &cfg.Provider.APIKey)
	}

	envStr("WAREPLY_POSTGRES_DSN", &cfg.Database.PostgresDSN)
	envStr("WAREPLY_SESSIONS_STORAGE", &cfg.Sessions.Storage)

	envBool("WAREPLY_TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	envStr("WAREPLY_TELEMETRY_ENDPOINT", &cfg.Telemetry.Endpoint)
	envStr("WAREPLY_TELEMETRY_PROTOCOL", &cfg.Telemetry.Protocol)
	envBool("WAREPLY_TELEMETRY_INSECURE", &cfg.Telemetry.Insecure)
	envStr("WAREPLY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// ExpandHome expands a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
