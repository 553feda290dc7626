package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joeblew999/plat-leaflet/internal/leaflet"
)

// Config holds settings that are not process flags: logging, rendering and
// the shared view registry.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Render RenderConfig `mapstructure:"render"`
	Valkey ValkeyConfig `mapstructure:"valkey"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type RenderConfig struct {
	DefaultPreset string        `mapstructure:"default_preset"`
	ActivePolicy  string        `mapstructure:"active_policy"`
	Registry      string        `mapstructure:"registry"`
	RegistrySize  int           `mapstructure:"registry_size"`
	RegistryTTL   time.Duration `mapstructure:"registry_ttl"`
}

type ValkeyConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

// Load reads configuration from file and environment variables. path may
// name a config file; when empty, config.yaml is looked up in . and ./configs.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 64)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("render.default_preset", "osm")
	v.SetDefault("render.active_policy", string(leaflet.FirstWins))
	v.SetDefault("render.registry", "memory")
	v.SetDefault("render.registry_size", 1024)
	v.SetDefault("render.registry_ttl", time.Hour)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.prefix", "leafletmap:view:")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig() // OK if missing
	}

	// Environment variables: LEAFLETMAP_RENDER_REGISTRY → render.registry
	v.SetEnvPrefix("LEAFLETMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	switch leaflet.ActivePolicy(c.Render.ActivePolicy) {
	case leaflet.FirstWins, leaflet.ExplicitFlag:
	default:
		errs = append(errs, fmt.Sprintf("render.active_policy must be first_wins or explicit_flag, got %q", c.Render.ActivePolicy))
	}
	switch c.Render.Registry {
	case "memory":
	case "valkey":
		if c.Valkey.Addr == "" {
			errs = append(errs, "valkey.addr is required when render.registry is valkey")
		}
	default:
		errs = append(errs, fmt.Sprintf("render.registry must be memory or valkey, got %q", c.Render.Registry))
	}
	if c.Render.RegistrySize <= 0 {
		errs = append(errs, "render.registry_size must be positive")
	}
	if c.Render.RegistryTTL <= 0 {
		errs = append(errs, "render.registry_ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
