package config

// Config is the root configuration for the FormRelay bot.
type Config struct {
	Discord   DiscordConfig   `json:"discord"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// DiscordConfig carries the bot credentials and command registration
// targets. Token is NEVER read from the config file — only from env
// FORMRELAY_BOT_TOKEN.
type DiscordConfig struct {
	Token         string `json:"-"`
	ApplicationID string `json:"application_id,omitempty"`
	// DevGuildID scopes slash command registration to one guild for
	// instant availability during development. Empty registers globally.
	DevGuildID string `json:"dev_guild_id,omitempty"`
}

// DatabaseConfig selects the storage backend. A Postgres DSN switches the
// bot to managed mode; otherwise it runs standalone on a local sqlite
// file. The DSN is env-only (FORMRELAY_POSTGRES_DSN), never persisted.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
}

// IsManagedMode returns true when the bot runs against Postgres.
func (c *Config) IsManagedMode() bool {
	return c.Database.PostgresDSN != ""
}

// TelemetryConfig configures optional OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`     // e.g. "localhost:4317"
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext transport for local dev
	ServiceName string            `json:"service_name,omitempty"` // default "formrelay"
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers for cloud backends
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // "debug", "info", "warn", "error"
	Format string `json:"format,omitempty"` // "text" (default) or "json"
}
