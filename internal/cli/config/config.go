package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OPCONVERT_LOG_LEVEL
const EnvPrefix = "OPCONVERT"

// Config represents the opconvert configuration
type Config struct {
	Pattern PatternConfig `mapstructure:"pattern"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
	Convert ConvertConfig `mapstructure:"convert"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// PatternConfig bounds the repeated-pattern scan
type PatternConfig struct {
	MinLength      int `mapstructure:"min_length"`
	MaxLength      int `mapstructure:"max_length"`
	ReuseThreshold int `mapstructure:"reuse_threshold"`
	// Store is the SQLite pattern library path; empty disables recording
	Store string `mapstructure:"store"`
}

// OutputConfig represents generated source configuration
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	ClassName string `mapstructure:"class_name"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ConvertConfig represents conversion behavior
type ConvertConfig struct {
	// OnUnsupported is one of abort, skip or prompt
	OnUnsupported string `mapstructure:"on_unsupported"`
}

// CacheConfig selects where generated sources are cached
type CacheConfig struct {
	// Backend is one of none, memory or redis
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Load loads the configuration. An empty path searches the working
// directory for opconvert.yml or opconvert.yaml; a missing file there is not
// an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("pattern.min_length", 2)
	v.SetDefault("pattern.max_length", 8)
	v.SetDefault("pattern.reuse_threshold", 2)
	v.SetDefault("pattern.store", "")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.class_name", "Model")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("convert.on_unsupported", "abort")
	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", "24h")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("opconvert")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// OutputPath returns the file the generated class is written to
func (c *Config) OutputPath() string {
	return filepath.Join(c.Output.Dir, strings.ToLower(c.Output.ClassName)+".py")
}

// EnsureOutputDir creates the output directory if needed
func (c *Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	p := cfg.Pattern
	if p.MinLength < 1 {
		return fmt.Errorf("pattern.min_length must be at least 1, got: %d", p.MinLength)
	}
	if p.MaxLength != 0 && p.MaxLength < p.MinLength {
		return fmt.Errorf("pattern.max_length must be 0 or >= pattern.min_length, got: %d", p.MaxLength)
	}
	if p.ReuseThreshold < 2 {
		return fmt.Errorf("pattern.reuse_threshold must be at least 2, got: %d", p.ReuseThreshold)
	}

	switch strings.ToLower(cfg.Convert.OnUnsupported) {
	case "abort", "skip", "prompt":
	default:
		return fmt.Errorf("convert.on_unsupported must be abort, skip or prompt, got: %s", cfg.Convert.OnUnsupported)
	}

	switch strings.ToLower(cfg.Cache.Backend) {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be none, memory or redis, got: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", cfg.Cache.TTL)
	}

	if cfg.Output.ClassName == "" {
		return fmt.Errorf("output.class_name must not be empty")
	}
	return nil
}
