package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvDataDir           = "FINGUARD_DATA_DIR"
	EnvDBPath            = "FINGUARD_DB_PATH"
	EnvStorage           = "FINGUARD_STORAGE"
	EnvAPIKey            = "FINGUARD_API_KEY"
	EnvSentimentProvider = "FINGUARD_SENTIMENT_PROVIDER"
	EnvSentimentModel    = "FINGUARD_SENTIMENT_MODEL"
	EnvAIBaseURL         = "FINGUARD_AI_BASE_URL"
	EnvRiskProvider      = "FINGUARD_RISK_PROVIDER"
	EnvHistoryLimit      = "FINGUARD_HISTORY_LIMIT"
	EnvSessionRetention  = "FINGUARD_SESSION_RETENTION"
)

const (
	defaultDBName       = "finguard.db"
	defaultHost         = "127.0.0.1"
	defaultPort         = 8000
	defaultHistoryLimit = 3

	defaultSessionRetention = "720h"
	defaultPruneSchedule    = "@daily"
)

// Data source choices.
const (
	ProviderCatalog = "catalog"
	ProviderYahoo   = "yahoo"
)

var (
	storageBackends    = map[string]struct{}{"sqlite": {}, "memory": {}}
	riskProviders      = map[string]struct{}{ProviderCatalog: {}, ProviderYahoo: {}}
	sentimentProviders = map[string]struct{}{ProviderCatalog: {}, "gemini": {}, "openai": {}, "anthropic": {}}
)

// Config holds all application configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Server  struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Backend string `yaml:"backend"`
		DBPath  string `yaml:"db_path"`
	} `yaml:"storage"`
	Analysis struct {
		RiskProvider      string `yaml:"risk_provider"`
		YahooBaseURL      string `yaml:"yahoo_base_url"`
		SentimentProvider string `yaml:"sentiment_provider"`
		SentimentModel    string `yaml:"sentiment_model"`
		APIKey            string `yaml:"api_key"`
		BaseURL           string `yaml:"base_url"`
		HistoryLimit      int    `yaml:"history_limit"`
	} `yaml:"analysis"`
	Log struct {
		Level         string `yaml:"level"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"log"`
	Maintenance struct {
		// SessionRetention is a Go duration; "0" keeps sessions forever.
		SessionRetention string `yaml:"session_retention"`
		Schedule         string `yaml:"schedule"`
	} `yaml:"maintenance"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error. An empty path
// uses DefaultConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Analysis.APIKey = v
	}
	if v := os.Getenv(EnvSentimentProvider); v != "" {
		cfg.Analysis.SentimentProvider = v
	}
	if v := os.Getenv(EnvSentimentModel); v != "" {
		cfg.Analysis.SentimentModel = v
	}
	if v := os.Getenv(EnvAIBaseURL); v != "" {
		cfg.Analysis.BaseURL = v
	}
	if v := os.Getenv(EnvRiskProvider); v != "" {
		cfg.Analysis.RiskProvider = v
	}
	if v := os.Getenv(EnvHistoryLimit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvHistoryLimit, err)
		}
		cfg.Analysis.HistoryLimit = limit
	}
	if v := os.Getenv(EnvSessionRetention); v != "" {
		cfg.Maintenance.SessionRetention = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	c.Analysis.RiskProvider = strings.ToLower(strings.TrimSpace(c.Analysis.RiskProvider))
	if c.Analysis.RiskProvider == "" {
		c.Analysis.RiskProvider = ProviderCatalog
	}
	c.Analysis.SentimentProvider = strings.ToLower(strings.TrimSpace(c.Analysis.SentimentProvider))
	if c.Analysis.SentimentProvider == "" {
		c.Analysis.SentimentProvider = ProviderCatalog
	}
	c.Analysis.APIKey = strings.TrimSpace(c.Analysis.APIKey)
	if c.Analysis.HistoryLimit <= 0 {
		c.Analysis.HistoryLimit = defaultHistoryLimit
	}
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Log.RetentionDays <= 0 {
		c.Log.RetentionDays = 7
	}
	c.Maintenance.SessionRetention = strings.TrimSpace(c.Maintenance.SessionRetention)
	if c.Maintenance.SessionRetention == "" {
		c.Maintenance.SessionRetention = defaultSessionRetention
	}
	if strings.TrimSpace(c.Maintenance.Schedule) == "" {
		c.Maintenance.Schedule = defaultPruneSchedule
	}
}

// Validate checks enumerated settings. A missing API key is not an error;
// see SentimentUsesModel.
func (c *Config) Validate() error {
	if _, ok := storageBackends[c.Storage.Backend]; !ok {
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if _, ok := riskProviders[c.Analysis.RiskProvider]; !ok {
		return fmt.Errorf("analysis.risk_provider %q is not supported", c.Analysis.RiskProvider)
	}
	if _, ok := sentimentProviders[c.Analysis.SentimentProvider]; !ok {
		return fmt.Errorf("analysis.sentiment_provider %q is not supported", c.Analysis.SentimentProvider)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if _, err := c.SessionRetention(); err != nil {
		return err
	}
	return nil
}

// SessionRetention returns how long an idle conversation is kept. Zero
// disables pruning.
func (c *Config) SessionRetention() (time.Duration, error) {
	d, err := time.ParseDuration(c.Maintenance.SessionRetention)
	if err != nil {
		return 0, fmt.Errorf("maintenance.session_retention: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("maintenance.session_retention %s is negative", d)
	}
	return d, nil
}

// SentimentUsesModel reports whether sentiment should come from a language
// model. Without an API key the catalog stays in use.
func (c *Config) SentimentUsesModel() bool {
	return c.Analysis.SentimentProvider != ProviderCatalog && c.Analysis.APIKey != ""
}

// ResolveDataDir returns the data directory, creating it if needed.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		d, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ResolveDBPath returns the SQLite path: the configured one, or
// finguard.db inside the data directory.
func (c *Config) ResolveDBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBName), nil
}

// DefaultConfigPath is config.yaml inside the per-user application directory.
func DefaultConfigPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func appConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "FinGuard"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "FinGuard"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "finguard"), nil
	}
	return filepath.Join(configDir, "finguard"), nil
}
