package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Radar    RadarConfig
	Fetcher  FetcherConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// RadarConfig controls monitoring cycles.
type RadarConfig struct {
	CycleTimeout     time.Duration
	EnrichTimeout    time.Duration
	SummaryTimeout   time.Duration
	SuppressBaseline bool
	// Schedule is a five-field cron expression. Empty disables scheduled cycles.
	Schedule    string
	CatalogPath string
}

// Fetcher modes.
const (
	FetcherModeStatic = "static"
	FetcherModeHTTP   = "http"
)

// FetcherConfig selects how source snapshots are obtained.
type FetcherConfig struct {
	Mode     string
	BaseURL  string
	RetryMax int
	Timeout  time.Duration
}

// DatabaseConfig holds connection settings for the version cache store.
// With neither URL nor InstanceConnectionName set the cache is in memory only.
type DatabaseConfig struct {
	URL string

	// Cloud SQL over a Unix socket, used when URL is empty.
	InstanceConnectionName string
	User                   string
	Password               string
	Name                   string

	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnectTimeout     time.Duration
}

// OpenAIConfig configures deep analysis and executive summaries.
// An empty APIKey disables both.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 180 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultCycleTimeout   = 60 * time.Second
	defaultEnrichTimeout  = 60 * time.Second
	defaultSummaryTimeout = 30 * time.Second
	defaultSchedule       = "0 */6 * * *"

	defaultFetcherMode     = FetcherModeStatic
	defaultFetcherRetryMax = 3
	defaultFetcherTimeout  = 15 * time.Second

	defaultMaxConnections     = 10
	defaultMaxIdleConnections = 2
	defaultConnMaxLifetime    = 5 * time.Minute
	defaultConnectTimeout     = 10 * time.Second

	defaultOpenAIModel       = "gpt-4o"
	defaultOpenAITemperature = 0.2
	defaultOpenAIMaxTokens   = 800
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid. A .env file in the working directory is
// read first; variables already present in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Radar: RadarConfig{
			CycleTimeout:   defaultCycleTimeout,
			EnrichTimeout:  defaultEnrichTimeout,
			SummaryTimeout: defaultSummaryTimeout,
			Schedule:       defaultSchedule,
			CatalogPath:    os.Getenv("RADAR_SOURCES_FILE"),
		},
		Fetcher: FetcherConfig{
			Mode:     defaultFetcherMode,
			BaseURL:  os.Getenv("FETCHER_BASE_URL"),
			RetryMax: defaultFetcherRetryMax,
			Timeout:  defaultFetcherTimeout,
		},
		Database: DatabaseConfig{
			URL:                    os.Getenv("DATABASE_URL"),
			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
			User:                   os.Getenv("DB_USER"),
			Password:               os.Getenv("DB_PASSWORD"),
			Name:                   os.Getenv("DB_NAME"),
			MaxConnections:         defaultMaxConnections,
			MaxIdleConnections:     defaultMaxIdleConnections,
			ConnMaxLifetime:        defaultConnMaxLifetime,
			ConnectTimeout:         defaultConnectTimeout,
		},
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       getEnv("OPENAI_MODEL", defaultOpenAIModel),
			Temperature: defaultOpenAITemperature,
			MaxTokens:   defaultOpenAIMaxTokens,
		},
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT_SECONDS", &cfg.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT_SECONDS", &cfg.Server.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT_SECONDS", &cfg.Server.ShutdownTimeout},
		{"RADAR_CYCLE_TIMEOUT_SECONDS", &cfg.Radar.CycleTimeout},
		{"RADAR_ENRICH_TIMEOUT_SECONDS", &cfg.Radar.EnrichTimeout},
		{"RADAR_SUMMARY_TIMEOUT_SECONDS", &cfg.Radar.SummaryTimeout},
		{"FETCHER_TIMEOUT_SECONDS", &cfg.Fetcher.Timeout},
		{"DATABASE_CONNECT_TIMEOUT_SECONDS", &cfg.Database.ConnectTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.target = parsed
	}

	if err := cfg.validateWriteTimeout(); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("RADAR_SUPPRESS_BASELINE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RADAR_SUPPRESS_BASELINE: must be a boolean")
		}
		cfg.Radar.SuppressBaseline = b
	}

	if v, ok := os.LookupEnv("RADAR_SCHEDULE"); ok && v != "" {
		if strings.EqualFold(v, "off") {
			cfg.Radar.Schedule = ""
		} else {
			cfg.Radar.Schedule = v
		}
	}

	if v := os.Getenv("FETCHER_MODE"); v != "" {
		switch v {
		case FetcherModeStatic, FetcherModeHTTP:
			cfg.Fetcher.Mode = v
		default:
			return Config{}, fmt.Errorf("invalid FETCHER_MODE: must be 'static' or 'http'")
		}
	}
	if cfg.Fetcher.Mode == FetcherModeHTTP && cfg.Fetcher.BaseURL == "" {
		return Config{}, fmt.Errorf("FETCHER_BASE_URL is required when FETCHER_MODE=http")
	}

	if v := os.Getenv("FETCHER_RETRY_MAX"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FETCHER_RETRY_MAX: %w", err)
		}
		cfg.Fetcher.RetryMax = n
	}

	if v := os.Getenv("DATABASE_MAX_CONNECTIONS"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil || n == 0 {
			return Config{}, fmt.Errorf("invalid DATABASE_MAX_CONNECTIONS: must be a positive integer")
		}
		cfg.Database.MaxConnections = n
	}

	if cfg.Database.Enabled() {
		if _, err := cfg.Database.DSN(); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil || temp < 0 || temp > 2 {
			return Config{}, fmt.Errorf("invalid OPENAI_TEMPERATURE: must be between 0 and 2")
		}
		cfg.OpenAI.Temperature = float32(temp)
	}

	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil || n == 0 {
			return Config{}, fmt.Errorf("invalid OPENAI_MAX_TOKENS: must be a positive integer")
		}
		cfg.OpenAI.MaxTokens = n
	}

	return cfg, nil
}

// validateWriteTimeout rejects a server write deadline that a deep, summarised
// analyze request could outlive. Zero on either side means unbounded.
func (c Config) validateWriteTimeout() error {
	phases := []time.Duration{c.Radar.CycleTimeout, c.Radar.EnrichTimeout, c.Radar.SummaryTimeout}
	var total time.Duration
	for _, p := range phases {
		if p <= 0 {
			if c.Server.WriteTimeout > 0 {
				return fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: must be 0 when a radar phase timeout is unlimited")
			}
			return nil
		}
		total += p
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= total {
		return fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %s must exceed cycle, enrich and summary timeouts combined (%s)",
			c.Server.WriteTimeout, total)
	}
	return nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := parseNonNegativeInt(raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseNonNegativeInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
