package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr      = "127.0.0.1:25842"
	DefaultDevpodBinary    = "devpod"
	DefaultDaemonInterval  = time.Second
	DefaultRefreshInterval = 5 * time.Second

	LogModeFull    = "full"
	LogModeMinimal = "minimal"
	LogModeOff     = "off"

	envPrefix = "PODSUP"
)

// Keys lists every setting accepted by Set and the config file.
var Keys = []string{
	"listen_addr",
	"devpod_bin",
	"devpod_home",
	"daemon_interval",
	"refresh_interval",
	"log_mode",
	"debug",
	"releases_path",
}

type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	DevpodBinary    string        `mapstructure:"devpod_bin"`
	DevpodHome      string        `mapstructure:"devpod_home"`
	DaemonInterval  time.Duration `mapstructure:"daemon_interval"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	LogMode         string        `mapstructure:"log_mode"`
	Debug           bool          `mapstructure:"debug"`
	ReleasesPath    string        `mapstructure:"releases_path"`
}

// fileConfig is the on-disk shape. Durations are written as strings so the
// file stays readable.
type fileConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	DevpodBinary    string `yaml:"devpod_bin"`
	DevpodHome      string `yaml:"devpod_home,omitempty"`
	DaemonInterval  string `yaml:"daemon_interval"`
	RefreshInterval string `yaml:"refresh_interval"`
	LogMode         string `yaml:"log_mode,omitempty"`
	Debug           bool   `yaml:"debug,omitempty"`
	ReleasesPath    string `yaml:"releases_path,omitempty"`
}

func Default() *Config {
	return &Config{
		ListenAddr:      DefaultListenAddr,
		DevpodBinary:    DefaultDevpodBinary,
		DaemonInterval:  DefaultDaemonInterval,
		RefreshInterval: DefaultRefreshInterval,
		LogMode:         LogModeFull,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("devpod_bin", d.DevpodBinary)
	v.SetDefault("devpod_home", "")
	v.SetDefault("daemon_interval", d.DaemonInterval)
	v.SetDefault("refresh_interval", d.RefreshInterval)
	v.SetDefault("log_mode", d.LogMode)
	v.SetDefault("debug", false)
	v.SetDefault("releases_path", "")
	return v
}

// Load reads config.yaml from Dir, applies PODSUP_* environment overrides
// and fills in defaults. A missing file is not an error.
func Load() (*Config, error) {
	v := newViper()

	if _, err := os.Stat(Path()); err == nil {
		v.SetConfigFile(Path())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.ReleasesPath == "" {
		cfg.ReleasesPath = DefaultReleasesPath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Save() error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	fc := fileConfig{
		ListenAddr:      c.ListenAddr,
		DevpodBinary:    c.DevpodBinary,
		DevpodHome:      c.DevpodHome,
		DaemonInterval:  c.DaemonInterval.String(),
		RefreshInterval: c.RefreshInterval.String(),
		LogMode:         c.LogMode,
		Debug:           c.Debug,
	}
	if c.ReleasesPath != DefaultReleasesPath() {
		fc.ReleasesPath = c.ReleasesPath
	}

	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(Path(), data, 0644)
}

// Set assigns one setting by its file key.
func (c *Config) Set(key string, value string) error {
	switch key {
	case "listen_addr":
		c.ListenAddr = value
	case "devpod_bin":
		c.DevpodBinary = value
	case "devpod_home":
		c.DevpodHome = value
	case "daemon_interval", "refresh_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if key == "daemon_interval" {
			c.DaemonInterval = d
		} else {
			c.RefreshInterval = d
		}
	case "log_mode":
		if err := ValidateLogMode(value); err != nil {
			return err
		}
		c.LogMode = normalizeLogMode(value)
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid debug value %q: %w", value, err)
		}
		c.Debug = b
	case "releases_path":
		c.ReleasesPath = value
	default:
		return fmt.Errorf("unknown config key %q: must be one of %s", key, strings.Join(Keys, ", "))
	}
	return nil
}

func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen_addr %q: %w", c.ListenAddr, err)
	}
	if strings.TrimSpace(c.DevpodBinary) == "" {
		return fmt.Errorf("devpod_bin cannot be empty")
	}
	if c.DaemonInterval <= 0 {
		return fmt.Errorf("invalid daemon_interval %s: must be positive", c.DaemonInterval)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("invalid refresh_interval %s: must be positive", c.RefreshInterval)
	}
	return ValidateLogMode(c.LogMode)
}

func ValidateLogMode(mode string) error {
	switch normalizeLogMode(mode) {
	case LogModeFull, LogModeMinimal, LogModeOff:
		return nil
	default:
		return fmt.Errorf("invalid log mode %q: must be one of full|minimal|off", mode)
	}
}

func normalizeLogMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return LogModeFull
	}
	return mode
}

func (c *Config) EffectiveLogMode() string {
	return normalizeLogMode(c.LogMode)
}
