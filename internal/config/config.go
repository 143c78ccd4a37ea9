// config.go — daemon configuration with priority cascade.
// Priority: defaults < config file < environment variables < flags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config holds every resolved configuration value the daemon needs.
type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	RingCapacity  int    `yaml:"ring_capacity"`
	SiteAppendDir string `yaml:"site_append_dir"`
	LogLevel      string `yaml:"log_level"`
	HighWaterMark int    `yaml:"high_water_mark"`
}

// FlagOverrides holds values explicitly set via command-line flags.
// A nil pointer means the flag was not passed, so lower-priority
// values are left untouched.
type FlagOverrides struct {
	ListenAddr    *string
	RingCapacity  *int
	SiteAppendDir *string
	LogLevel      *string
	HighWaterMark *int
}

// Defaults returns the base configuration before any file, env, or flag overrides.
func Defaults() Config {
	return Config{
		ListenAddr:    ":5480",
		RingCapacity:  65536,
		SiteAppendDir: "",
		LogLevel:      "info",
		HighWaterMark: 1024,
	}
}

// Load builds the final configuration: defaults < configPath (if non-empty
// and present) < POND_* environment variables < flags.
func Load(configPath string, flags *FlagOverrides) (Config, error) {
	cfg := Defaults()

	if configPath != "" {
		if err := loadFile(&cfg, configPath); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", configPath, err)
		}
	}

	loadEnv(&cfg)

	if flags != nil {
		applyFlags(&cfg, flags)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fileCfg fileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if fileCfg.ListenAddr != nil {
		cfg.ListenAddr = *fileCfg.ListenAddr
	}
	if fileCfg.RingCapacity != nil {
		cfg.RingCapacity = *fileCfg.RingCapacity
	}
	if fileCfg.SiteAppendDir != nil {
		cfg.SiteAppendDir = *fileCfg.SiteAppendDir
	}
	if fileCfg.LogLevel != nil {
		cfg.LogLevel = *fileCfg.LogLevel
	}
	if fileCfg.HighWaterMark != nil {
		cfg.HighWaterMark = *fileCfg.HighWaterMark
	}
	return nil
}

// fileConfig uses pointers so an absent YAML key never overwrites a default.
type fileConfig struct {
	ListenAddr    *string `yaml:"listen_addr"`
	RingCapacity  *int    `yaml:"ring_capacity"`
	SiteAppendDir *string `yaml:"site_append_dir"`
	LogLevel      *string `yaml:"log_level"`
	HighWaterMark *int    `yaml:"high_water_mark"`
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("POND_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("POND_RING_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RingCapacity = n
		}
	}
	if v, ok := os.LookupEnv("POND_SITE_APPEND_DIR"); ok {
		cfg.SiteAppendDir = v
	}
	if v := os.Getenv("POND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("POND_HIGH_WATER_MARK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HighWaterMark = n
		}
	}
}

func applyFlags(cfg *Config, flags *FlagOverrides) {
	if flags.ListenAddr != nil {
		cfg.ListenAddr = *flags.ListenAddr
	}
	if flags.RingCapacity != nil {
		cfg.RingCapacity = *flags.RingCapacity
	}
	if flags.SiteAppendDir != nil {
		cfg.SiteAppendDir = *flags.SiteAppendDir
	}
	if flags.LogLevel != nil {
		cfg.LogLevel = *flags.LogLevel
	}
	if flags.HighWaterMark != nil {
		cfg.HighWaterMark = *flags.HighWaterMark
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c Config) Validate() error {
	if c.RingCapacity <= 0 {
		return fmt.Errorf("ring_capacity must be positive, got %d", c.RingCapacity)
	}
	if c.HighWaterMark <= 0 {
		return fmt.Errorf("high_water_mark must be positive, got %d", c.HighWaterMark)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}
