package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults when optional variables are missing", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFrom(lookupFrom(map[string]string{EnvDatabasePath: "scheduler.db"}))
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}

		if cfg.HTTPAddr != ":8080" {
			t.Fatalf("expected default address :8080, got %q", cfg.HTTPAddr)
		}
		if cfg.DefaultTimezone != "UTC" || cfg.MaxResults != 10 {
			t.Fatalf("unexpected engine defaults: %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelInfo || cfg.ShutdownTimeout != 10*time.Second {
			t.Fatalf("unexpected runtime defaults: %+v", cfg)
		}
		if cfg.InMemory() {
			t.Fatalf("expected a file database")
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFrom(lookupFrom(map[string]string{EnvDatabasePath: "   "}))
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: SCHEDULER_DATABASE_PATH"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses every key", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFrom(lookupFrom(map[string]string{
			EnvDatabasePath:    ":memory:",
			EnvHTTPAddr:        "127.0.0.1:9090",
			EnvDefaultTimezone: "Asia/Tokyo",
			EnvMaxResults:      "25",
			EnvLogLevel:        "debug",
			EnvLogFile:         "/var/log/scheduler.log",
			EnvAPIKeyHash:      "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
			EnvShutdownTimeout: "30s",
		}))
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}

		if !cfg.InMemory() {
			t.Fatalf("expected the in-memory store")
		}
		if cfg.HTTPAddr != "127.0.0.1:9090" || cfg.DefaultTimezone != "Asia/Tokyo" || cfg.MaxResults != 25 {
			t.Fatalf("unexpected values: %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelDebug || cfg.LogFile != "/var/log/scheduler.log" {
			t.Fatalf("unexpected logging values: %+v", cfg)
		}
		if cfg.ShutdownTimeout != 30*time.Second || cfg.APIKeyHash == "" {
			t.Fatalf("unexpected values: %+v", cfg)
		}
	})

	t.Run("reports every invalid key", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFrom(lookupFrom(map[string]string{
			EnvDatabasePath:    "scheduler.db",
			EnvDefaultTimezone: "Mars/Base",
			EnvMaxResults:      "0",
			EnvLogLevel:        "loud",
			EnvAPIKeyHash:      "plaintext",
			EnvShutdownTimeout: "-1s",
		}))
		if err == nil {
			t.Fatalf("expected validation error")
		}
		for _, key := range []string{EnvDefaultTimezone, EnvMaxResults, EnvLogLevel, EnvAPIKeyHash, EnvShutdownTimeout} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s in %q", key, err.Error())
			}
		}
	})
}

func TestLoader_ConfigFile(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, strings.Join([]string{
		`database_path: "from-file.db"`,
		`http_addr: ":7070"`,
		`max_results: "5"`,
		`log_level: "warn"`,
	}, "\n"))

	t.Run("file values seed the configuration", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFrom(lookupFrom(map[string]string{EnvConfigFile: path}))
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}
		if cfg.DatabasePath != "from-file.db" || cfg.HTTPAddr != ":7070" || cfg.MaxResults != 5 {
			t.Fatalf("unexpected values: %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelWarn {
			t.Fatalf("expected warn level, got %v", cfg.LogLevel)
		}
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFrom(lookupFrom(map[string]string{
			EnvConfigFile: path,
			EnvHTTPAddr:   ":6060",
		}))
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}
		if cfg.HTTPAddr != ":6060" || cfg.DatabasePath != "from-file.db" {
			t.Fatalf("unexpected values: %+v", cfg)
		}
	})

	t.Run("unreadable and malformed files are errors", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadFrom(lookupFrom(map[string]string{EnvConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})); err == nil {
			t.Fatalf("expected error for a missing file")
		}
		broken := writeConfigFile(t, "database_path: [unterminated")
		if _, err := LoadFrom(lookupFrom(map[string]string{EnvConfigFile: broken})); err == nil {
			t.Fatalf("expected error for malformed YAML")
		}
	})
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvDatabasePath, "env.db")
	t.Setenv(EnvHTTPAddr, ":9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DatabasePath != "env.db" || cfg.HTTPAddr != ":9999" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}
