// Package config loads layered crawl configuration via Viper:
// built-in defaults < config file < CRAWL_* environment < flag overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config captures all engine and bridge knobs.
type Config struct {
	DefaultThreadCount    int      `mapstructure:"default-thread-count"`
	CommandTimeoutSeconds int      `mapstructure:"command-timeout-seconds"`
	MaxRecursionDepth     int      `mapstructure:"max-recursion-depth"`
	TempDir               string   `mapstructure:"temp-dir"`
	OCRLanguages          []string `mapstructure:"ocr-languages"`
	OCRMinText            int      `mapstructure:"ocr-min-text"`
	OCRMaxImages          int      `mapstructure:"ocr-max-images"`
	OCRDisabled           bool     `mapstructure:"ocr-disabled"`
	AudioDisabled         bool     `mapstructure:"audio-disabled"`
	ImagesDir             string   `mapstructure:"images-dir"`
	ExcludeDirs           string   `mapstructure:"exclude-dirs"`
	DedupeEnabled         bool     `mapstructure:"dedupe-enabled"`
	DedupeHash            string   `mapstructure:"dedupe-hash"`
	CSVBufferBytes        int      `mapstructure:"csv-buffer-bytes"`
	SessionBackend        string   `mapstructure:"session-backend"`
	LogLevel              string   `mapstructure:"log-level"`
	LogFile               string   `mapstructure:"log-file"`
	Index                 Index    `mapstructure:"index"`
}

// Index configures the full-text search target.
type Index struct {
	Backend   string   `mapstructure:"backend"` // "es" or "bleve"
	Addresses []string `mapstructure:"addresses"`
	Name      string   `mapstructure:"name"`
	BlevePath string   `mapstructure:"bleve-path"`
	BatchSize int      `mapstructure:"batch-size"`
}

// ExcludeList splits the comma-separated exclude-dirs key.
func (c *Config) ExcludeList() []string {
	var out []string
	for _, s := range strings.Split(c.ExcludeDirs, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default-thread-count", 4)
	v.SetDefault("command-timeout-seconds", 60)
	v.SetDefault("max-recursion-depth", 5)
	v.SetDefault("temp-dir", "/tmp/crawl")
	v.SetDefault("ocr-languages", []string{"eng"})
	v.SetDefault("ocr-min-text", 100)
	v.SetDefault("ocr-max-images", 8)
	v.SetDefault("ocr-disabled", false)
	v.SetDefault("audio-disabled", false)
	v.SetDefault("dedupe-enabled", false)
	v.SetDefault("dedupe-hash", "md5")
	v.SetDefault("csv-buffer-bytes", 64*1024)
	v.SetDefault("session-backend", "sqlite")
	v.SetDefault("log-level", "INFO")
	v.SetDefault("index.backend", "es")
	v.SetDefault("index.addresses", []string{"https://localhost:9200"})
	v.SetDefault("index.batch-size", 500)
}

// Load builds the configuration. cfgFile forces a specific file; otherwise
// the documented search paths are tried and a missing file is not an error.
// flags, when non-nil, are bound as the highest-precedence layer.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("crawl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/crawl")
		v.AddConfigPath("/etc/crawl")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DedupeHash {
	case "md5", "sha1", "sha256":
	default:
		return fmt.Errorf("invalid dedupe-hash: %s (want md5, sha1 or sha256)", c.DedupeHash)
	}
	switch c.SessionBackend {
	case "sqlite", "text":
	default:
		return fmt.Errorf("invalid session-backend: %s (want sqlite or text)", c.SessionBackend)
	}
	if c.DefaultThreadCount < 1 {
		return fmt.Errorf("default-thread-count must be at least 1")
	}
	return nil
}
