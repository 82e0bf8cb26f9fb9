package config

import (
	"os"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Radar.CycleTimeout != defaultCycleTimeout {
		t.Errorf("expected default cycle timeout %v, got %v", defaultCycleTimeout, cfg.Radar.CycleTimeout)
	}
	if cfg.Radar.Schedule != defaultSchedule {
		t.Errorf("expected default schedule %q, got %q", defaultSchedule, cfg.Radar.Schedule)
	}
	if cfg.Radar.SuppressBaseline {
		t.Error("baseline suppression must be off by default")
	}
	if cfg.Fetcher.Mode != defaultFetcherMode {
		t.Errorf("expected default fetcher mode %q, got %q", defaultFetcherMode, cfg.Fetcher.Mode)
	}
	if cfg.Database.URL != "" {
		t.Errorf("expected empty database URL, got %q", cfg.Database.URL)
	}
	if cfg.OpenAI.APIKey != "" || cfg.OpenAI.Model != defaultOpenAIModel {
		t.Errorf("unexpected OpenAI defaults: %+v", cfg.OpenAI)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                   "9090",
		"SERVER_READ_TIMEOUT_SECONDS":   "30",
		"LOG_LEVEL":                     "debug",
		"LOG_FORMAT":                    "text",
		"RADAR_CYCLE_TIMEOUT_SECONDS":   "90",
		"RADAR_ENRICH_TIMEOUT_SECONDS":  "20",
		"RADAR_SUMMARY_TIMEOUT_SECONDS": "10",
		"RADAR_SUPPRESS_BASELINE":       "true",
		"RADAR_SCHEDULE":                "*/15 * * * *",
		"FETCHER_MODE":                  "http",
		"FETCHER_BASE_URL":              "http://feeds.internal/radar",
		"FETCHER_RETRY_MAX":             "5",
		"OPENAI_API_KEY":                "sk-test",
		"OPENAI_MODEL":                  "gpt-4o-mini",
		"OPENAI_TEMPERATURE":            "0.5",
		"OPENAI_MAX_TOKENS":             "1200",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected overridden port, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Radar.CycleTimeout != 90*time.Second || cfg.Radar.EnrichTimeout != 20*time.Second || cfg.Radar.SummaryTimeout != 10*time.Second {
		t.Errorf("unexpected radar timeouts: %+v", cfg.Radar)
	}
	if !cfg.Radar.SuppressBaseline {
		t.Error("expected baseline suppression enabled")
	}
	if cfg.Radar.Schedule != "*/15 * * * *" {
		t.Errorf("unexpected schedule %q", cfg.Radar.Schedule)
	}
	if cfg.Fetcher.Mode != "http" || cfg.Fetcher.BaseURL != "http://feeds.internal/radar" || cfg.Fetcher.RetryMax != 5 {
		t.Errorf("unexpected fetcher config: %+v", cfg.Fetcher)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.MaxTokens != 1200 {
		t.Errorf("unexpected OpenAI config: %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", cfg.OpenAI.Temperature)
	}
}

func TestLoadScheduleOff(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("RADAR_SCHEDULE", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Radar.Schedule != "" {
		t.Errorf("expected schedule disabled, got %q", cfg.Radar.Schedule)
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":     "-1",
		"SERVER_WRITE_TIMEOUT_SECONDS":    "abc",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "3.5",
		"RADAR_CYCLE_TIMEOUT_SECONDS":     "soon",
		"RADAR_SUPPRESS_BASELINE":         "maybe",
		"LOG_LEVEL":                       "verbose",
		"LOG_FORMAT":                      "xml",
		"FETCHER_MODE":                    "ftp",
		"FETCHER_RETRY_MAX":               "-2",
		"DATABASE_MAX_CONNECTIONS":        "0",
		"OPENAI_TEMPERATURE":              "7",
		"OPENAI_MAX_TOKENS":               "many",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestLoadWriteTimeoutCoversCycle(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"defaults", nil, false},
		{"write shorter than phases", map[string]string{"SERVER_WRITE_TIMEOUT_SECONDS": "120"}, true},
		{"write equal to phases", map[string]string{"SERVER_WRITE_TIMEOUT_SECONDS": "150"}, true},
		{"shorter phases", map[string]string{"SERVER_WRITE_TIMEOUT_SECONDS": "60", "RADAR_CYCLE_TIMEOUT_SECONDS": "20", "RADAR_ENRICH_TIMEOUT_SECONDS": "20", "RADAR_SUMMARY_TIMEOUT_SECONDS": "10"}, false},
		{"unlimited cycle with write deadline", map[string]string{"RADAR_CYCLE_TIMEOUT_SECONDS": "0"}, true},
		{"unlimited cycle and write", map[string]string{"RADAR_CYCLE_TIMEOUT_SECONDS": "0", "SERVER_WRITE_TIMEOUT_SECONDS": "0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadHTTPFetcherRequiresBaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FETCHER_MODE", "http")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when FETCHER_BASE_URL is missing")
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestParseSecondsRejectsInvalidInput(t *testing.T) {
	cases := []string{"-1", "abc"}

	for _, input := range cases {
		if _, err := parseSeconds(input); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}

func TestLoadDoesNotPersistEnvBetweenRuns(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("RADAR_CYCLE_TIMEOUT_SECONDS", "5")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.Unsetenv("RADAR_CYCLE_TIMEOUT_SECONDS"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Radar.CycleTimeout != defaultCycleTimeout {
		t.Errorf("expected default cycle timeout after reset, got %v", cfg.Radar.CycleTimeout)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_WRITE_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"RADAR_CYCLE_TIMEOUT_SECONDS",
		"RADAR_ENRICH_TIMEOUT_SECONDS",
		"RADAR_SUMMARY_TIMEOUT_SECONDS",
		"RADAR_SUPPRESS_BASELINE",
		"RADAR_SCHEDULE",
		"RADAR_SOURCES_FILE",
		"FETCHER_MODE",
		"FETCHER_BASE_URL",
		"FETCHER_RETRY_MAX",
		"FETCHER_TIMEOUT_SECONDS",
		"DATABASE_URL",
		"INSTANCE_CONNECTION_NAME",
		"DB_USER",
		"DB_PASSWORD",
		"DB_NAME",
		"DATABASE_MAX_CONNECTIONS",
		"DATABASE_CONNECT_TIMEOUT_SECONDS",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"OPENAI_TEMPERATURE",
		"OPENAI_MAX_TOKENS",
	}

	for _, key := range keys {
		t.Setenv(key, "")
	}
}
