package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names read by Load.
const (
	EnvConfigFile      = "SCHEDULER_CONFIG_FILE"
	EnvDatabasePath    = "SCHEDULER_DATABASE_PATH"
	EnvHTTPAddr        = "SCHEDULER_HTTP_ADDR"
	EnvDefaultTimezone = "SCHEDULER_DEFAULT_TIMEZONE"
	EnvMaxResults      = "SCHEDULER_MAX_RESULTS"
	EnvLogLevel        = "SCHEDULER_LOG_LEVEL"
	EnvLogFile         = "SCHEDULER_LOG_FILE"
	EnvAPIKeyHash      = "SCHEDULER_API_KEY_HASH"
	EnvShutdownTimeout = "SCHEDULER_SHUTDOWN_TIMEOUT"
)

// InMemoryDatabase selects the in-memory calendar store.
const InMemoryDatabase = ":memory:"

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	DatabasePath    string
	HTTPAddr        string
	DefaultTimezone string
	MaxResults      int
	LogLevel        slog.Level
	LogFile         string
	APIKeyHash      string
	ShutdownTimeout time.Duration
}

// InMemory reports whether the in-memory store was requested.
func (c Config) InMemory() bool {
	return c.DatabasePath == InMemoryDatabase
}

// fileConfig is the YAML document named by SCHEDULER_CONFIG_FILE.
type fileConfig struct {
	DatabasePath    string `yaml:"database_path"`
	HTTPAddr        string `yaml:"http_addr"`
	DefaultTimezone string `yaml:"default_timezone"`
	MaxResults      string `yaml:"max_results"`
	LogLevel        string `yaml:"log_level"`
	LogFile         string `yaml:"log_file"`
	APIKeyHash      string `yaml:"api_key_hash"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		EnvDatabasePath:    f.DatabasePath,
		EnvHTTPAddr:        f.HTTPAddr,
		EnvDefaultTimezone: f.DefaultTimezone,
		EnvMaxResults:      f.MaxResults,
		EnvLogLevel:        f.LogLevel,
		EnvLogFile:         f.LogFile,
		EnvAPIKeyHash:      f.APIKeyHash,
		EnvShutdownTimeout: f.ShutdownTimeout,
	}
}

// Load parses configuration values from the current process environment.
//
// When SCHEDULER_CONFIG_FILE names a YAML file its values act as defaults
// that environment variables override. Missing and invalid keys are reported
// together in one error.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load reading variables through lookup.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	values := map[string]string{}
	if path := lookupTrimmed(lookup, EnvConfigFile); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for key, value := range file.values() {
			if value = strings.TrimSpace(value); value != "" {
				values[key] = value
			}
		}
	}
	for _, key := range []string{
		EnvDatabasePath, EnvHTTPAddr, EnvDefaultTimezone, EnvMaxResults,
		EnvLogLevel, EnvLogFile, EnvAPIKeyHash, EnvShutdownTimeout,
	} {
		if value := lookupTrimmed(lookup, key); value != "" {
			values[key] = value
		}
	}
	return parse(values)
}

func parse(values map[string]string) (Config, error) {
	cfg := Config{
		HTTPAddr:        ":8080",
		DefaultTimezone: "UTC",
		MaxResults:      10,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 10 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if path := values[EnvDatabasePath]; path == "" {
		missing = append(missing, EnvDatabasePath)
	} else {
		cfg.DatabasePath = path
	}

	if addr := values[EnvHTTPAddr]; addr != "" {
		cfg.HTTPAddr = addr
	}

	if zone := values[EnvDefaultTimezone]; zone != "" {
		if _, err := time.LoadLocation(zone); err != nil {
			invalid = append(invalid, EnvDefaultTimezone)
		} else {
			cfg.DefaultTimezone = zone
		}
	}

	if maxValue := values[EnvMaxResults]; maxValue != "" {
		maxResults, err := strconv.Atoi(maxValue)
		if err != nil || maxResults <= 0 {
			invalid = append(invalid, EnvMaxResults)
		} else {
			cfg.MaxResults = maxResults
		}
	}

	if levelValue := values[EnvLogLevel]; levelValue != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, EnvLogLevel)
		} else {
			cfg.LogLevel = level
		}
	}

	cfg.LogFile = values[EnvLogFile]

	if hash := values[EnvAPIKeyHash]; hash != "" {
		if !strings.HasPrefix(hash, "$argon2id$") {
			invalid = append(invalid, EnvAPIKeyHash)
		} else {
			cfg.APIKeyHash = hash
		}
	}

	if timeoutValue := values[EnvShutdownTimeout]; timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, EnvShutdownTimeout)
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

func lookupTrimmed(lookup func(string) (string, bool), key string) string {
	value, ok := lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
