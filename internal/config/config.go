// Package config provides centralized configuration for the report runner.
// Settings come from environment variables (optionally via a .env file),
// have defaults, and are validated on startup to fail fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Report   ReportConfig
	Database DatabaseConfig
	Server   ServerConfig
	Run      RunConfig
	Logging  LoggingConfig
}

// ReportConfig controls where scripts read and write files.
type ReportConfig struct {
	// OutputDir receives result files (default: current directory)
	OutputDir string `env:"REPORT_OUTPUT_DIR" default:"."`

	// WorkDir holds intermediate files; empty creates a temp dir per run
	WorkDir string `env:"REPORT_WORK_DIR"`

	// KeepIntermediates leaves intermediate files in WorkDir (default: false)
	KeepIntermediates bool `env:"REPORT_KEEP_INTERMEDIATES" default:"false"`

	// Delimiter is the CSV field separator (default: ;)
	Delimiter string `env:"REPORT_DELIMITER" default:";"`

	// Encoding of input files: utf-8, windows-1252, iso-8859-1 (default: utf-8)
	Encoding string `env:"REPORT_ENCODING" default:"utf-8"`

	// NumberLocale formats revenue tables, e.g. DE for comma decimals (default: DE)
	NumberLocale string `env:"REPORT_NUMBER_LOCALE" default:"DE"`

	// ScriptsDir holds insert schemes such as active_expired_RSC.ins
	ScriptsDir string `env:"REPORT_SCRIPTS_DIR" default:"~/.ibreport/scripts"`

	// XLSX also renders every result file as .xlsx (default: false)
	XLSX bool `env:"REPORT_XLSX" default:"false"`
}

// DatabaseConfig holds the optional run history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; empty keeps history in memory
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections kept open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ServerConfig holds HTTP server settings for `ibreport serve`.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxUploadSize caps multipart uploads in bytes (default: 256MB)
	MaxUploadSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"268435456"`

	// ResultsDir keeps per-run directories of the HTTP surface
	ResultsDir string `env:"SERVER_RESULTS_DIR" default:"results"`

	// ResultsRetention is how long run directories stay in ResultsDir; 0 keeps them (default: 168h)
	ResultsRetention time.Duration `env:"SERVER_RESULTS_RETENTION" default:"168h"`

	// CleanupInterval is how often expired run directories are removed (default: 1h)
	CleanupInterval time.Duration `env:"SERVER_CLEANUP_INTERVAL" default:"1h"`

	// APIKeys are accepted in the X-API-Key header; empty disables auth
	APIKeys []string `env:"SERVER_API_KEYS"`
}

// RunConfig bounds script execution.
type RunConfig struct {
	// MaxConcurrent is the number of scripts running in parallel (default: 2)
	MaxConcurrent int `env:"RUN_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long a run waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"RUN_MAX_WAIT" default:"30s"`

	// Timeout is the maximum duration of a single run (default: 10m)
	Timeout time.Duration `env:"RUN_TIMEOUT" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// DelimiterRune returns the configured delimiter as a rune.
func (c *ReportConfig) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ';'
}
