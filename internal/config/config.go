// Package config loads affkit settings from ~/.config/affkit/config.yaml
// with environment variable overrides.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"affkit/internal/niche"
)

// AIConfig selects the model endpoint used for content briefs.
type AIConfig struct {
	BaseURL string `yaml:"base_url" env:"AFFKIT_AI_BASE_URL"`
	Model   string `yaml:"model" env:"AFFKIT_AI_MODEL"`
	// APIKey falls back to OPENAI_API_KEY when unset.
	APIKey string `yaml:"api_key" env:"AFFKIT_AI_API_KEY"`
}

// ServerConfig holds the redirect/API server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"AFFKIT_SERVER_ADDR"`
}

// TargetsConfig carries the revenue goals projections measure against.
type TargetsConfig struct {
	Weekly  float64 `yaml:"weekly" env:"AFFKIT_TARGET_WEEKLY"`
	Monthly float64 `yaml:"monthly" env:"AFFKIT_TARGET_MONTHLY"`
}

// TrendsConfig configures the research feed ingestor.
type TrendsConfig struct {
	Feeds           []string `yaml:"feeds"`
	TimeoutSec      int      `yaml:"timeout" env:"AFFKIT_TRENDS_TIMEOUT"`
	MaxItemsPerFeed int      `yaml:"max_items_per_feed" env:"AFFKIT_TRENDS_MAX_ITEMS"`
	IntervalMin     int      `yaml:"interval_min" env:"AFFKIT_TRENDS_INTERVAL"`
}

// QueueConfig controls the scheduled-post worker.
type QueueConfig struct {
	// PostCommand is run with the caption and media path as arguments
	// when a scheduled post comes due. Empty leaves posts pending for
	// manual publishing.
	PostCommand   string `yaml:"post_command" env:"AFFKIT_POST_COMMAND"`
	MaxDailyPosts int    `yaml:"max_daily_posts" env:"AFFKIT_MAX_DAILY_POSTS"`
}

type Config struct {
	// DataDir holds the SQLite databases. Defaults per-OS.
	DataDir string `yaml:"data_dir" env:"AFFKIT_DATA_DIR"`

	Server  ServerConfig  `yaml:"server"`
	Targets TargetsConfig `yaml:"targets"`
	Trends  TrendsConfig  `yaml:"trends"`
	Queue   QueueConfig   `yaml:"queue"`
	AI      AIConfig      `yaml:"ai"`

	// Programs overrides the built-in affiliate program catalog.
	Programs map[string][]niche.Program `yaml:"programs"`
}

// Load reads the YAML config if present, then applies environment
// overrides. A missing config file is not an error.
func Load() (Config, error) {
	var cfg Config

	if path, err := DefaultConfigPath(); err == nil {
		if b, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}

	// Defaults live here so env overrides never clobber YAML values.
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Targets.Weekly <= 0 {
		cfg.Targets.Weekly = 10000
	}
	if cfg.Targets.Monthly <= 0 {
		cfg.Targets.Monthly = 40000
	}
	if cfg.Trends.TimeoutSec <= 0 {
		cfg.Trends.TimeoutSec = 30
	}
	if cfg.Trends.MaxItemsPerFeed <= 0 {
		cfg.Trends.MaxItemsPerFeed = 100
	}
	if cfg.Trends.IntervalMin <= 0 {
		cfg.Trends.IntervalMin = 60
	}
	if cfg.Queue.MaxDailyPosts <= 0 {
		cfg.Queue.MaxDailyPosts = 5
	}
	if cfg.DataDir == "" {
		cfg.DataDir = FallbackDataDir()
	}
	cfg.DataDir = expandPath(cfg.DataDir)
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Programs == nil {
		cfg.Programs = niche.DefaultPrograms()
	}
	return cfg, nil
}

// DefaultConfigPath returns ~/.config/affkit/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "affkit", "config.yaml"), nil
}

// FallbackDataDir picks a per-OS data directory.
func FallbackDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Affkit")
	}
	return filepath.Join(home, ".local", "share", "affkit")
}

// TrackerDBPath is the links/clicks/conversions/queue database.
func (c Config) TrackerDBPath() string {
	return filepath.Join(c.DataDir, "tracker.db")
}

// PerfDBPath is the content-performance database.
func (c Config) PerfDBPath() string {
	return filepath.Join(c.DataDir, "performance.db")
}

// TrendsDBPath is the trend article cache.
func (c Config) TrendsDBPath() string {
	return filepath.Join(c.DataDir, "trends.db")
}

// EnsureDataDir creates the data directory if needed.
func (c Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

// expandPath expands leading ~ and environment variables in a path.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
