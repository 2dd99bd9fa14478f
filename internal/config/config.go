// Package config loads the settings shared by the admin API, the public site
// and the CLI from cms.yaml and CMS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the decoded configuration.
type Config struct {
	Admin   AdminConfig   `mapstructure:"admin"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Uploads UploadsConfig `mapstructure:"uploads"`
	Render  RenderConfig  `mapstructure:"render"`
	Log     LogConfig     `mapstructure:"log"`
}

type AdminConfig struct {
	Addr string `mapstructure:"addr"`
	// CSRF enables token checks on state-changing admin requests.
	CSRF bool `mapstructure:"csrf"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	// Driver is "json" (one file per record) or "sqlite".
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type UploadsConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
	MaxBytes  int64  `mapstructure:"max_bytes"`
}

type RenderConfig struct {
	// Sanitize passes every substituted value through the HTML sanitizer.
	Sanitize bool `mapstructure:"sanitize"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel parses Level, falling back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// SetDefaults registers a default for every key so environment overrides are
// picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("admin.addr", ":8081")
	v.SetDefault("admin.csrf", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.path", "data")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.url_prefix", "/uploads")
	v.SetDefault("uploads.max_bytes", 10<<20)
	v.SetDefault("render.sanitize", false)
	v.SetDefault("log.level", "info")
}

// Loader owns the viper instance behind a Config.
type Loader struct {
	v      *viper.Viper
	logger *slog.Logger
}

// NewLoader prepares a loader. An empty file searches for cms.yaml in the
// working directory and tolerates its absence; an explicit file must exist.
func NewLoader(file string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("CMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("cms")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return &Loader{v: v, logger: logger}
}

// Viper exposes the underlying instance, used by the CLI to bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the config file, if any, and decodes the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		l.logger.Debug("No config file found, using defaults and environment")
	} else {
		l.logger.Info("Loaded config file", "path", l.v.ConfigFileUsed())
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case "json", "sqlite", "sqlite3":
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want json or sqlite)", cfg.Storage.Driver)
	}
	return &cfg, nil
}

// Watch reloads the config file when it changes, applies the log level to
// level and hands the new Config to onChange. Invalid edits are logged and
// ignored. Without a config file there is nothing to watch.
func (l *Loader) Watch(level *slog.LevelVar, onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.reload(e, level, onChange)
	})
	l.v.WatchConfig()
}

func (l *Loader) reload(e fsnotify.Event, level *slog.LevelVar, onChange func(*Config)) {
	cfg, err := l.decode()
	if err != nil {
		l.logger.Error("Ignoring invalid config change", "file", e.Name, "error", err)
		return
	}
	if level != nil {
		level.Set(cfg.Log.SlogLevel())
	}
	l.logger.Info("Config reloaded", "file", e.Name, "op", e.Op.String(), "logLevel", cfg.Log.SlogLevel())
	if onChange != nil {
		onChange(cfg)
	}
}

// NewLogger builds the text logger used by every binary, its level held by
// level so Watch can change it.
func NewLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
