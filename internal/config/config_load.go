package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			SQLitePath: "~/.formrelay/formrelay.db",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "formrelay",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is not an error; env vars alone are a valid configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// Secrets live in env only.
	envStr("FORMRELAY_BOT_TOKEN", &c.Discord.Token)
	envStr("FORMRELAY_POSTGRES_DSN", &c.Database.PostgresDSN)

	envStr("FORMRELAY_APPLICATION_ID", &c.Discord.ApplicationID)
	envStr("FORMRELAY_DEV_GUILD_ID", &c.Discord.DevGuildID)
	envStr("FORMRELAY_SQLITE_PATH", &c.Database.SQLitePath)

	envStr("FORMRELAY_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("FORMRELAY_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("FORMRELAY_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("FORMRELAY_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("FORMRELAY_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}

	envStr("FORMRELAY_LOG_LEVEL", &c.Logging.Level)
	envStr("FORMRELAY_LOG_FORMAT", &c.Logging.Format)
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
