package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
	CORS        CORSConfig        `yaml:"cors"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Observation ObservationConfig `yaml:"observation"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Round       RoundConfig       `yaml:"round"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Session     SessionConfig     `yaml:"session"`
	EventLog    EventLogConfig    `yaml:"event_log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"5m"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"   env:"DATABASE_MIGRATE_ON_START"   env-default:"true"`
}

// AuthConfig holds settings for validating tokens minted by the external
// identity provider. An empty secret disables authentication: every
// session is anonymous and nothing is persisted per player.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"wildguess-identity"`
}

// Enabled reports whether bearer tokens are validated.
func (c AuthConfig) Enabled() bool { return c.JWTSecret != "" }

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM"              env-default:"240"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"    env:"RATE_LIMIT_CLEANUP_INTERVAL" env-default:"5m"`
}

// ObservationConfig holds settings of the upstream observation API.
type ObservationConfig struct {
	BaseURL          string        `yaml:"base_url"           env:"OBSERVATION_BASE_URL"           env-default:"https://api.inaturalist.org/v1"`
	Timeout          time.Duration `yaml:"timeout"            env:"OBSERVATION_TIMEOUT"            env-default:"10s"`
	LicensesRaw      string        `yaml:"licenses"           env:"OBSERVATION_LICENSES"           env-default:"cc0,cc-by,cc-by-nc,cc-by-sa"`
	UserAgent        string        `yaml:"user_agent"         env:"OBSERVATION_USER_AGENT"         env-default:"wildguess/1.0"`
	SummaryCacheSize int           `yaml:"summary_cache_size" env:"OBSERVATION_SUMMARY_CACHE_SIZE" env-default:"1024"`
	SummaryCacheTTL  time.Duration `yaml:"summary_cache_ttl"  env:"OBSERVATION_SUMMARY_CACHE_TTL"  env-default:"24h"`

	// Licenses is parsed from LicensesRaw during validation.
	Licenses []string `yaml:"-" env:"-"`
}

// AcquisitionConfig bounds the candidate search loop.
type AcquisitionConfig struct {
	MaxAttempts int `yaml:"max_attempts" env:"ACQUISITION_MAX_ATTEMPTS" env-default:"20"`
	BatchSize   int `yaml:"batch_size"   env:"ACQUISITION_BATCH_SIZE"   env-default:"10"`
}

// RoundConfig holds round timing settings.
type RoundConfig struct {
	TimerEnabled  bool          `yaml:"timer_enabled"  env:"ROUND_TIMER_ENABLED"  env-default:"false"`
	ClueSeconds   int           `yaml:"clue_seconds"   env:"ROUND_CLUE_SECONDS"   env-default:"20"`
	FeedbackDelay time.Duration `yaml:"feedback_delay" env:"ROUND_FEEDBACK_DELAY" env-default:"1200ms"`
}

// CatalogConfig describes where the species catalog comes from and which
// regions are playable.
type CatalogConfig struct {
	// SourceURL is a CSV export to fetch; empty means the bundled catalog.
	SourceURL  string        `yaml:"source_url"  env:"CATALOG_SOURCE_URL"`
	Timeout    time.Duration `yaml:"timeout"     env:"CATALOG_TIMEOUT"     env-default:"15s"`
	CacheTTL   time.Duration `yaml:"cache_ttl"   env:"CATALOG_CACHE_TTL"   env-default:"1h"`
	RegionsRaw string        `yaml:"regions"     env:"CATALOG_REGIONS"     env-default:"Any:0,North America:97394,Europe:97391,Africa:97392,Asia:97395,Oceania:97393,South America:97389"`

	// Regions is parsed from RegionsRaw during validation.
	Regions []RegionConfig `yaml:"-" env:"-"`
}

// RegionConfig is one playable region and its upstream place id.
type RegionConfig struct {
	Name    string
	PlaceID int
}

// SessionConfig holds game session lifecycle settings.
type SessionConfig struct {
	IdleTTL         time.Duration `yaml:"idle_ttl"         env:"SESSION_IDLE_TTL"         env-default:"30m"`
	JanitorInterval time.Duration `yaml:"janitor_interval" env:"SESSION_JANITOR_INTERVAL" env-default:"1m"`
	MaxSessions     int           `yaml:"max_sessions"     env:"SESSION_MAX_SESSIONS"     env-default:"10000"`
}

// EventLogConfig holds retention of the game event log.
type EventLogConfig struct {
	RetentionDays int `yaml:"retention_days" env:"EVENT_LOG_RETENTION_DAYS" env-default:"90"`
}
