// Package config loads padmap settings from flags, PADMAP_ environment
// variables, an optional .env file and an optional YAML/TOML/JSON config
// file, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soar/padmap/gamepad"
)

const EnvPrefix = "PADMAP"

// Source names.
const (
	SourceSDL     = "sdl"
	SourceEvdev   = "evdev"
	SourceBrowser = "browser"
)

// Strategy names.
const (
	StrategyManual   = "manual"
	StrategyInterval = "interval"
)

type LogConfig struct {
	Level     string `mapstructure:"level"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type MDNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Instance string `mapstructure:"instance"`
}

type EvdevConfig struct {
	Glob string `mapstructure:"glob"`
}

// ProfileConfig overrides or adds a mapping profile. Names are listed in
// raw index order; an empty name leaves that index unmapped.
type ProfileConfig struct {
	ID      string   `mapstructure:"id"`
	Buttons []string `mapstructure:"buttons"`
	Axes    []string `mapstructure:"axes"`
}

// Config is the full application configuration.
type Config struct {
	Listen         string          `mapstructure:"listen"`
	Source         string          `mapstructure:"source"`
	Strategy       string          `mapstructure:"strategy"`
	Interval       time.Duration   `mapstructure:"interval"`
	Deadzone       float64         `mapstructure:"deadzone"`
	PressThreshold float64         `mapstructure:"press_threshold"`
	Tray           bool            `mapstructure:"tray"`
	Log            LogConfig       `mapstructure:"log"`
	History        HistoryConfig   `mapstructure:"history"`
	MDNS           MDNSConfig      `mapstructure:"mdns"`
	Evdev          EvdevConfig     `mapstructure:"evdev"`
	Profiles       []ProfileConfig `mapstructure:"profiles"`
	Rules          []gamepad.Rule  `mapstructure:"rules"`
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	switch c.Source {
	case SourceSDL, SourceEvdev, SourceBrowser:
	default:
		return errors.Errorf("unknown source %q", c.Source)
	}
	switch c.Strategy {
	case StrategyManual, StrategyInterval:
	default:
		return errors.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.Interval <= 0 {
		return errors.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Deadzone < 0 || c.Deadzone >= 1 {
		return errors.Errorf("deadzone must be in [0, 1), got %v", c.Deadzone)
	}
	if c.PressThreshold <= 0 || c.PressThreshold > 1 {
		return errors.Errorf("press_threshold must be in (0, 1], got %v", c.PressThreshold)
	}
	for _, r := range c.Rules {
		if r.Profile == "" {
			return errors.New("rule without profile")
		}
	}
	return nil
}

// Registry returns the built-in profiles with the configured overrides
// applied.
func (c Config) Registry() (*gamepad.Registry, error) {
	overrides := make([]*gamepad.Profile, 0, len(c.Profiles))
	for _, pc := range c.Profiles {
		p, err := gamepad.NewProfile(pc.ID, gamepad.Seq(pc.Buttons...), gamepad.Seq(pc.Axes...))
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, p)
	}
	return gamepad.DefaultRegistry().With(overrides...), nil
}

// ResolverRules returns the configured rules followed by the defaults.
func (c Config) ResolverRules() []gamepad.Rule {
	rules := make([]gamepad.Rule, 0, len(c.Rules))
	rules = append(rules, c.Rules...)
	return append(rules, gamepad.DefaultRules()...)
}

// Detector returns the change detector settings.
func (c Config) Detector() gamepad.Detector {
	return gamepad.Detector{PressThreshold: c.PressThreshold, Deadzone: c.Deadzone}
}

// UsesHostPump reports whether the source pumps updates itself. SDL events
// must be pumped on the thread that initialized SDL, so the sdl source
// always runs a manual strategy.
func (c Config) UsesHostPump() bool {
	return c.Source == SourceSDL || c.Strategy == StrategyManual
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("source", SourceSDL)
	v.SetDefault("strategy", StrategyInterval)
	v.SetDefault("interval", gamepad.DefaultInterval)
	v.SetDefault("deadzone", 0.05)
	v.SetDefault("press_threshold", gamepad.DefaultPressThreshold)
	v.SetDefault("tray", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("history.path", "")
	v.SetDefault("mdns.enabled", false)
	v.SetDefault("mdns.instance", "padmap")
	v.SetDefault("evdev.glob", "/dev/input/event*")
}

// Flags returns the command line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("padmap", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "config file (default: padmap.{yaml,toml,json} in . or the user config dir)")
	fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	fs.StringP("listen", "l", ":8080", "HTTP listen address")
	fs.StringP("source", "s", SourceSDL, "platform source: sdl, evdev or browser")
	fs.String("strategy", StrategyInterval, "update strategy: manual or interval")
	fs.Duration("interval", gamepad.DefaultInterval, "update interval for the interval strategy")
	fs.Float64("deadzone", 0.05, "axis deadzone")
	fs.Float64("press-threshold", gamepad.DefaultPressThreshold, "button press threshold")
	fs.Bool("tray", false, "show a system tray icon")
	fs.String("log-level", "info", "log level")
	fs.String("log-file", "", "also write logs to this file, rotated")
	fs.String("history", "", "device history database, empty disables")
	fs.Bool("mdns", false, "advertise the server over mDNS")
	return fs
}

var flagKeys = map[string]string{
	"listen":          "listen",
	"source":          "source",
	"strategy":        "strategy",
	"interval":        "interval",
	"deadzone":        "deadzone",
	"press-threshold": "press_threshold",
	"tray":            "tray",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"history":         "history.path",
	"mdns":            "mdns.enabled",
}

// Loader holds the viper instance behind a loaded Config so the config
// file can be watched.
type Loader struct {
	v  *viper.Viper
	mu sync.Mutex // serializes reloads
}

// Load parses args and reads every configuration layer.
func Load(args []string) (*Loader, Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, Config{}, err
	}

	envFile, _ := fs.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, Config{}, errors.Wrapf(err, "load %s", envFile)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, Config{}, errors.Wrapf(err, "bind flag %s", name)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("padmap")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "padmap"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, Config{}, errors.Wrap(err, "read config")
		}
	}

	l := &Loader{v: v}
	cfg, err := l.decode()
	if err != nil {
		return nil, Config{}, err
	}
	return l, cfg, nil
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// File returns the config file in use, or "" if none was found.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the new configuration whenever the config file
// changes. Invalid edits are logged and skipped. It does nothing when no
// config file is in use.
func (l *Loader) Watch(fn func(Config)) {
	if l.File() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.mu.Lock()
		defer l.mu.Unlock()
		cfg, err := l.decode()
		if err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("config reload failed")
			return
		}
		log.Info().Str("file", e.Name).Msg("config reloaded")
		fn(cfg)
	})
	l.v.WatchConfig()
}
