package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elonfeng/feedsim/pkg/ranking"
)

// Config is the root configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Server  ServerConfig  `yaml:"server"`
	Sources SourcesConfig `yaml:"sources"`
	Filter  FilterConfig  `yaml:"filter"`
	Profile ProfileConfig `yaml:"profile"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// StoreConfig configures where ranking runs are kept.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "redis" or "none"
	Path   string `yaml:"path"`   // sqlite database file
	TTL    string `yaml:"ttl"`    // redis expiry, e.g. "720h"; empty keeps runs forever
}

// ParseTTL returns the run expiry as time.Duration. Invalid or empty values
// disable expiry.
func (s StoreConfig) ParseTTL() time.Duration {
	if s.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(s.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SourcesConfig lists the default input files.
type SourcesConfig struct {
	CSV   []string   `yaml:"csv"`
	Feeds []FeedFile `yaml:"feeds"`
}

// FeedFile is a single local RSS/Atom feed.
type FeedFile struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// FilterConfig configures content filtering.
type FilterConfig struct {
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// ProfileConfig describes the simulated viewer.
type ProfileConfig struct {
	CurrentUser      string          `yaml:"current_user"`
	FollowedUsers    []string        `yaml:"followed_users"`
	FollowedHashtags []string        `yaml:"followed_hashtags"`
	Weights          ranking.Weights `yaml:"weights"`
	Recency          RecencyConfig   `yaml:"recency"`
	Promoted         PromotedConfig  `yaml:"promoted"`
	MaxMatches       int             `yaml:"max_matches"` // 0 = unbounded
}

// RecencyConfig maps posts to elapsed days, by ordinal index or by user.
type RecencyConfig struct {
	ByIndex map[int]float64    `yaml:"by_index"`
	ByUser  map[string]float64 `yaml:"by_user"`
}

// PromotedConfig marks posts as paid promotions.
type PromotedConfig struct {
	Users   []string `yaml:"users"`
	Indexes []int    `yaml:"indexes"`
}

// Options converts the profile into scoring options.
func (p ProfileConfig) Options() ranking.Options {
	return ranking.Options{
		CurrentUser:      p.CurrentUser,
		FollowedUsers:    append([]string(nil), p.FollowedUsers...),
		FollowedHashtags: append([]string(nil), p.FollowedHashtags...),
		Weights:          p.Weights,
		RecencyByIndex:   p.Recency.ByIndex,
		RecencyByUser:    p.Recency.ByUser,
		PromotedIndexes:  append([]int(nil), p.Promoted.Indexes...),
		PromotedUsers:    append([]string(nil), p.Promoted.Users...),
		MaxMatches:       p.MaxMatches,
	}.Sanitize()
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Driver: DriverSQLite, Path: "./feedsim.db"},
		Redis:  RedisConfig{Addr: "127.0.0.1:6379"},
		Server: ServerConfig{Port: 8080},
		Profile: ProfileConfig{
			CurrentUser: "Mo",
			Weights:     ranking.DefaultWeights(),
		},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	switch cfg.Store.Driver {
	case DriverSQLite, DriverRedis, DriverNone:
	case "":
		cfg.Store.Driver = DriverSQLite
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FEEDSIM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FEEDSIM_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("FEEDSIM_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FEEDSIM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FEEDSIM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FEEDSIM_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("FEEDSIM_CURRENT_USER"); v != "" {
		cfg.Profile.CurrentUser = v
	}
}
