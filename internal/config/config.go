// Package config loads settings from defaults, an optional YAML file, a
// .env file and the environment, in that order. Later sources win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	DiscordToken      string `yaml:"discord_token" env:"DISCORD_TOKEN"`
	InitSlashCommands bool   `yaml:"init_slash_commands" env:"INIT_SLASH_COMMANDS"`

	DatabasePath       string `yaml:"database_path" env:"DATABASE_PATH"`
	VolumeSettingsPath string `yaml:"volume_settings_path" env:"VOLUME_SETTINGS_PATH"`
	CommandCachePath   string `yaml:"command_cache_path" env:"COMMAND_CACHE_PATH"`

	ReminderInterval time.Duration `yaml:"reminder_interval" env:"REMINDER_INTERVAL"`
	ReminderWorkers  int           `yaml:"reminder_workers" env:"REMINDER_WORKERS"`
	DispatchTimeout  time.Duration `yaml:"dispatch_timeout" env:"DISPATCH_TIMEOUT"`
	StoreTimeout     time.Duration `yaml:"store_timeout" env:"STORE_TIMEOUT"`

	ResolveTimeout time.Duration `yaml:"resolve_timeout" env:"RESOLVE_TIMEOUT"`
	VoiceTimeout   time.Duration `yaml:"voice_timeout" env:"VOICE_TIMEOUT"`
	DefaultVolume  float64       `yaml:"default_volume" env:"DEFAULT_VOLUME"`
	YouTubeProxy   string        `yaml:"youtube_proxy" env:"YOUTUBE_PROXY"`
	YTDLPPath      string        `yaml:"ytdlp_path" env:"YTDLP_PATH"`
	FFmpegPath     string        `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`

	Timezone string `yaml:"timezone" env:"TIMEZONE"`

	HealthEnabled bool   `yaml:"health_enabled" env:"HEALTH_ENABLED"`
	Port          string `yaml:"port" env:"PORT"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile  string `yaml:"log_file" env:"LOG_FILE"`
}

func Default() *Config {
	return &Config{
		InitSlashCommands:  true,
		DatabasePath:       "data/schedule.db",
		VolumeSettingsPath: "data/volume_settings.json",
		CommandCachePath:   "data/commands.json",
		ReminderInterval:   60 * time.Second,
		ReminderWorkers:    4,
		DispatchTimeout:    10 * time.Second,
		StoreTimeout:       5 * time.Second,
		ResolveTimeout:     20 * time.Second,
		VoiceTimeout:       15 * time.Second,
		DefaultVolume:      0.1,
		YTDLPPath:          "yt-dlp",
		FFmpegPath:         "ffmpeg",
		Timezone:           "Local",
		HealthEnabled:      true,
		Port:               "10000",
		LogLevel:           "info",
	}
}

// Load reads .env (if present), then the file named by CONFIG_FILE (if
// set), then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse(os.Getenv("CONFIG_FILE"))
}

// Parse applies the YAML file at path (skipped when empty) and the
// environment over the defaults.
func Parse(path string) (*Config, error) {
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
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks what the bot process needs to start.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DiscordToken) == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if c.ReminderInterval <= 0 {
		errs = append(errs, fmt.Errorf("REMINDER_INTERVAL must be positive, got %s", c.ReminderInterval))
	}
	if c.ReminderWorkers < 1 {
		errs = append(errs, fmt.Errorf("REMINDER_WORKERS must be at least 1, got %d", c.ReminderWorkers))
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_VOLUME must be within 0..1, got %v", c.DefaultVolume))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// HealthAddr is the listen address of the health server, or "" when it
// is disabled.
func (c *Config) HealthAddr() string {
	if !c.HealthEnabled || strings.TrimSpace(c.Port) == "" {
		return ""
	}
	return ":" + strings.TrimPrefix(c.Port, ":")
}
