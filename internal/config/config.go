// Package config loads application configuration from an optional YAML file
// and PRMINER_ environment variables.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFlatfile = "flatfile"
	BackendSQLite   = "sqlite"
)

// CredentialsFileName is the legacy "user:token" credentials file in the home directory.
const CredentialsFileName = ".pullRequestMinerrc"

// Config holds the configuration shared by prminer and prwatcher.
type Config struct {
	GitHubToken  string `yaml:"github_token"`
	GitHubAPIURL string `yaml:"github_api_url"`

	// Miner.
	OutputPath string `yaml:"output_path"`
	MaxRetries int    `yaml:"max_retries"`

	// Watcher state.
	DataDir         string `yaml:"data_dir"`
	StoreBackend    string `yaml:"store_backend"`
	DBPath          string `yaml:"db_path"`
	ProjectListPath string `yaml:"project_list"`
	ReportPath      string `yaml:"report_path"`

	// Watcher behavior.
	Firehose   bool          `yaml:"firehose"`
	Window     time.Duration `yaml:"window"`
	ArchiveLag time.Duration `yaml:"archive_lag"`
	Language   string        `yaml:"language"`
	FindEmails bool          `yaml:"find_emails"`

	ClassifierURL              string  `yaml:"classifier_url"`
	ClassifierRate             float64 `yaml:"classifier_rate"`
	ClassifierBreakerThreshold uint32  `yaml:"classifier_breaker_threshold"`

	PresenceListPath string `yaml:"presence_list"`

	// Daemon.
	PollInterval time.Duration `yaml:"poll_interval"`
	ListenAddr   string        `yaml:"listen_addr"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		OutputPath:                 "output",
		MaxRetries:                 3,
		DataDir:                    "data",
		StoreBackend:               BackendFlatfile,
		ProjectListPath:            "projectList.conf",
		ReportPath:                 "results.html",
		Window:                     72 * time.Hour,
		ArchiveLag:                 3 * time.Hour,
		Language:                   "Java",
		ClassifierRate:             2,
		ClassifierBreakerThreshold: 5,
		PresenceListPath:           "/tmp/onlinePullAuthors",
		PollInterval:               time.Hour,
		ListenAddr:                 "127.0.0.1:8080",
		LogLevel:                   "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// PRMINER_CONFIG (if set), then PRMINER_ environment variables. When no token
// is configured, the legacy credentials file in the home directory is read.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("PRMINER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.GitHubToken == "" {
		if home, err := os.UserHomeDir(); err == nil {
			token, err := ReadCredentialsFile(filepath.Join(home, CredentialsFileName))
			if err != nil {
				return nil, err
			}
			cfg.GitHubToken = token
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"PRMINER_GITHUB_TOKEN":   &c.GitHubToken,
		"PRMINER_GITHUB_API_URL": &c.GitHubAPIURL,
		"PRMINER_OUTPUT_PATH":    &c.OutputPath,
		"PRMINER_DATA_DIR":       &c.DataDir,
		"PRMINER_STORE_BACKEND":  &c.StoreBackend,
		"PRMINER_DB_PATH":        &c.DBPath,
		"PRMINER_PROJECT_LIST":   &c.ProjectListPath,
		"PRMINER_REPORT_PATH":    &c.ReportPath,
		"PRMINER_LANGUAGE":       &c.Language,
		"PRMINER_CLASSIFIER_URL": &c.ClassifierURL,
		"PRMINER_PRESENCE_LIST":  &c.PresenceListPath,
		"PRMINER_LISTEN_ADDR":    &c.ListenAddr,
		"PRMINER_LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PRMINER_WINDOW":        &c.Window,
		"PRMINER_ARCHIVE_LAG":   &c.ArchiveLag,
		"PRMINER_POLL_INTERVAL": &c.PollInterval,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(key); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
			}
			*dst = parsed
		}
	}

	bools := map[string]*bool{
		"PRMINER_FIREHOSE":    &c.Firehose,
		"PRMINER_FIND_EMAILS": &c.FindEmails,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(key); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
			}
			*dst = parsed
		}
	}

	if v, ok := os.LookupEnv("PRMINER_MAX_RETRIES"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRMINER_MAX_RETRIES has invalid integer %q: %w", v, err)
		}
		c.MaxRetries = parsed
	}

	if v, ok := os.LookupEnv("PRMINER_CLASSIFIER_RATE"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PRMINER_CLASSIFIER_RATE has invalid number %q: %w", v, err)
		}
		c.ClassifierRate = parsed
	}

	if v, ok := os.LookupEnv("PRMINER_CLASSIFIER_BREAKER_THRESHOLD"); ok {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("PRMINER_CLASSIFIER_BREAKER_THRESHOLD has invalid integer %q: %w", v, err)
		}
		c.ClassifierBreakerThreshold = uint32(parsed)
	}

	return nil
}

// Validate checks value ranges and fills derived defaults.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFlatfile, BackendSQLite:
	default:
		return fmt.Errorf("store backend must be %q or %q, got %q", BackendFlatfile, BackendSQLite, c.StoreBackend)
	}

	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.ArchiveLag <= 0 {
		return fmt.Errorf("archive lag must be positive, got %s", c.ArchiveLag)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.ClassifierRate < 0 {
		return fmt.Errorf("classifier rate must not be negative, got %g", c.ClassifierRate)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "prwatcher.db")
	}

	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Store file locations for the flat-file backend.
func (c *Config) PRStorePath() string      { return filepath.Join(c.DataDir, "pull_db") }
func (c *Config) ProjectStorePath() string { return filepath.Join(c.DataDir, "project_db") }
func (c *Config) UserStorePath() string    { return filepath.Join(c.DataDir, "user_db") }

// ReadCredentialsFile returns the token from a "user:token" credentials file.
// A missing file yields an empty token.
func ReadCredentialsFile(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read credentials file: %w", err)
		}
		return "", nil
	}

	_, token, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
	if !ok || token == "" {
		return "", fmt.Errorf("credentials file %s: expected user:token", path)
	}
	return token, nil
}
