// Package config loads cadence settings from TOML files, a .env file and
// CADENCE_* environment variables, in increasing priority.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	appName   = "cadence"
	envPrefix = "CADENCE_"
)

type Config struct {
	LibrarySources []string `koanf:"library_sources" env:"LIBRARY_SOURCES"` // folders granted on startup
	DBPath         string   `koanf:"db_path"         env:"DB_PATH"`         // empty means the XDG data dir

	Log         LogConfig         `koanf:"log"         envPrefix:"LOG_"`
	Playback    PlaybackConfig    `koanf:"playback"    envPrefix:"PLAYBACK_"`
	MPRIS       MPRISConfig       `koanf:"mpris"       envPrefix:"MPRIS_"`
	Artwork     ArtworkConfig     `koanf:"artwork"     envPrefix:"ARTWORK_"`
	Library     LibraryConfig     `koanf:"library"     envPrefix:"LIBRARY_"`
	Permissions PermissionsConfig `koanf:"permissions" envPrefix:"PERMISSIONS_"`
}

// LogConfig controls the rotated log file.
type LogConfig struct {
	Level      string `koanf:"level"        env:"LEVEL"`
	File       string `koanf:"file"         env:"FILE"`
	MaxSizeMB  int    `koanf:"max_size_mb"  env:"MAX_SIZE_MB"`
	MaxBackups int    `koanf:"max_backups"  env:"MAX_BACKUPS"`
	MaxAgeDays int    `koanf:"max_age_days" env:"MAX_AGE_DAYS"`
}

type PlaybackConfig struct {
	HistoryLimit     int           `koanf:"history_limit"     env:"HISTORY_LIMIT"`
	RestartThreshold time.Duration `koanf:"restart_threshold" env:"RESTART_THRESHOLD"` // e.g. "3s"
	Preload          bool          `koanf:"preload"           env:"PRELOAD"`
}

// MPRISConfig controls the desktop now-playing integration (Linux only).
type MPRISConfig struct {
	Enabled bool   `koanf:"enabled" env:"ENABLED"`
	Name    string `koanf:"name"    env:"NAME"` // bus name suffix
}

type ArtworkConfig struct {
	Size int    `koanf:"size" env:"SIZE"` // max edge in pixels
	Dir  string `koanf:"dir"  env:"DIR"`
}

type LibraryConfig struct {
	Watch         bool          `koanf:"watch"          env:"WATCH"`
	WatchDebounce time.Duration `koanf:"watch_debounce" env:"WATCH_DEBOUNCE"`
}

// PermissionsConfig controls folder read prompts. With AutoGrant every
// prompt is answered yes, which suits scripted use.
type PermissionsConfig struct {
	AutoGrant bool `koanf:"auto_grant" env:"AUTO_GRANT"`
}

// Default returns the configuration used for keys that are not set.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(xdg.StateHome, appName, appName+".log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Playback: PlaybackConfig{
			HistoryLimit:     100,
			RestartThreshold: 3 * time.Second,
			Preload:          true,
		},
		MPRIS: MPRISConfig{
			Enabled: true,
			Name:    appName,
		},
		Artwork: ArtworkConfig{
			Size: 512,
			Dir:  filepath.Join(xdg.CacheHome, appName, "artwork"),
		},
		Library: LibraryConfig{
			Watch:         true,
			WatchDebounce: 2 * time.Second,
		},
	}
}

func Load() (*Config, error) {
	return load(getConfigPaths(), ".env")
}

func load(configPaths []string, dotenv string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// normalize expands paths and replaces out-of-range values with defaults.
func (c *Config) normalize() {
	def := Default()

	for i, src := range c.LibrarySources {
		c.LibrarySources[i] = expandPath(src)
	}
	c.DBPath = expandPath(c.DBPath)
	c.Log.File = expandPath(c.Log.File)
	c.Artwork.Dir = expandPath(c.Artwork.Dir)

	if c.Playback.HistoryLimit <= 0 {
		c.Playback.HistoryLimit = def.Playback.HistoryLimit
	}
	if c.Playback.RestartThreshold <= 0 {
		c.Playback.RestartThreshold = def.Playback.RestartThreshold
	}
	if c.Artwork.Size <= 0 {
		c.Artwork.Size = def.Artwork.Size
	}
	if c.Artwork.Dir == "" {
		c.Artwork.Dir = def.Artwork.Dir
	}
	if c.MPRIS.Name == "" {
		c.MPRIS.Name = def.MPRIS.Name
	}
	if c.Library.WatchDebounce <= 0 {
		c.Library.WatchDebounce = def.Library.WatchDebounce
	}
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/cadence/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
