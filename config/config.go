// Package config loads sidifa settings from defaults, an optional file and SIDIFA_* variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sidifa/querycache/eviction"
)

const envPrefix = "SIDIFA"

// Config is the whole application configuration.
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// APIConfig points at the SI-DIFA REST API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig sizes the query cache and its background revalidation.
type CacheConfig struct {
	Shards         int           `mapstructure:"shards"`
	Capacity       int           `mapstructure:"capacity"`
	Eviction       string        `mapstructure:"eviction"`
	Freshness      time.Duration `mapstructure:"freshness"`
	RefreshWorkers int           `mapstructure:"refresh_workers"`
	RefreshQueue   int           `mapstructure:"refresh_queue"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // gin mode: release, debug, test
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 10*time.Second)

	v.SetDefault("cache.shards", 8)
	v.SetDefault("cache.capacity", 0)
	v.SetDefault("cache.eviction", string(eviction.LRU))
	v.SetDefault("cache.freshness", 30*time.Second)
	v.SetDefault("cache.refresh_workers", 2)
	v.SetDefault("cache.refresh_queue", 256)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

/*
Load builds the configuration.

Precedence, lowest first: defaults, config file, SIDIFA_* environment variables
(SIDIFA_API_BASE_URL, SIDIFA_CACHE_FRESHNESS, ...).

With an empty path a "sidifa.{yaml,toml,json}" is looked up in the working
directory and in $XDG_CONFIG_HOME/sidifa; a missing file is not an error there.
An explicit path must exist.
*/
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sidifa")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sidifa"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sidifa"), nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url must be set"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}

	if c.Cache.Shards <= 0 {
		errs = append(errs, fmt.Errorf("cache.shards must be positive, got %d", c.Cache.Shards))
	}
	if c.Cache.Capacity < 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity))
	}
	if _, err := eviction.ParsePolicyType(c.Cache.Eviction); err != nil {
		errs = append(errs, fmt.Errorf("cache.eviction: %w", err))
	}
	if c.Cache.Freshness <= 0 {
		errs = append(errs, fmt.Errorf("cache.freshness must be positive, got %s", c.Cache.Freshness))
	}
	if c.Cache.RefreshWorkers <= 0 {
		errs = append(errs, fmt.Errorf("cache.refresh_workers must be positive, got %d", c.Cache.RefreshWorkers))
	}
	if c.Cache.RefreshQueue < 0 {
		errs = append(errs, fmt.Errorf("cache.refresh_queue must not be negative, got %d", c.Cache.RefreshQueue))
	}

	return errors.Join(errs...)
}

// EvictionPolicy returns the parsed eviction policy. Call after Validate.
func (c CacheConfig) EvictionPolicy() eviction.PolicyType {
	p, _ := eviction.ParsePolicyType(c.Eviction)
	return p
}
