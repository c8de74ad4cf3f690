// Package config loads the outlet configuration from defaults, an optional
// TOML or YAML file, OUTLET_* environment variables and command line flags,
// in increasing order of precedence.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/wifi-outlet/internal/gpio"
	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/solar"
)

// EnvPrefix is the prefix of environment variables, e.g. OUTLET_BROKER or
// OUTLET_SITE_LATITUDE.
const EnvPrefix = "OUTLET"

// Config holds the daemon configuration.
type Config struct {
	Name         string         `mapstructure:"name"`
	Poll         time.Duration  `mapstructure:"poll"`
	Debounce     time.Duration  `mapstructure:"debounce"`
	Heartbeat    string         `mapstructure:"heartbeat"`
	Broker       string         `mapstructure:"broker"`
	HTTPAddr     string         `mapstructure:"http"`
	DBPath       string         `mapstructure:"db"`
	Timezone     string         `mapstructure:"timezone"`
	AssumeSynced bool           `mapstructure:"assume_synced"`
	EnvFile      string         `mapstructure:"env_file"`
	LogLevel     string         `mapstructure:"log_level"`
	Pins         PinsConfig     `mapstructure:"pins"`
	Site         SiteConfig     `mapstructure:"site"`
	Schedule     ScheduleConfig `mapstructure:"schedule"`
}

// PinsConfig selects BCM GPIO lines.
type PinsConfig struct {
	Relay  int `mapstructure:"relay"`
	LED    int `mapstructure:"led"`
	Button int `mapstructure:"button"`
}

// SiteConfig is the observing site for sunrise and sunset.
type SiteConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Elevation float64 `mapstructure:"elevation"`
}

// ScheduleConfig seeds the schedule on first boot. Once rules have been
// saved to the database the stored rules take over.
type ScheduleConfig struct {
	Enabled bool                `mapstructure:"enabled"`
	Cycles  []schedule.RuleSpec `mapstructure:"cycles"`
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value '%v': %s", e.Field, e.Value, e.Message)
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"name":          "name",
	"poll":          "poll",
	"debounce":      "debounce",
	"heartbeat":     "heartbeat",
	"broker":        "broker",
	"http":          "http",
	"db":            "db",
	"timezone":      "timezone",
	"assume-synced": "assume_synced",
	"env-file":      "env_file",
	"log-level":     "log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "outlet")
	v.SetDefault("poll", 100*time.Millisecond)
	v.SetDefault("debounce", 50*time.Millisecond)
	v.SetDefault("heartbeat", "@every 15m")
	v.SetDefault("broker", "tcp://192.168.1.200:1883")
	v.SetDefault("http", ":80")
	v.SetDefault("db", "/var/lib/wifi-outlet/outlet.db")
	v.SetDefault("timezone", "Local")
	v.SetDefault("assume_synced", false)
	v.SetDefault("env_file", "/run/pi-helper.env")
	v.SetDefault("log_level", "info")
	v.SetDefault("pins.relay", gpio.DefaultPinRelay)
	v.SetDefault("pins.led", gpio.DefaultPinLED)
	v.SetDefault("pins.button", gpio.DefaultPinButton)
	v.SetDefault("site.latitude", 51.5074)
	v.SetDefault("site.longitude", -0.1278)
	v.SetDefault("site.elevation", 11.0)
	v.SetDefault("schedule.enabled", true)
}

// RegisterFlags adds the command line flags that override configuration keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("name", "outlet", "device name, used in MQTT topics")
	fs.Duration("poll", 100*time.Millisecond, "poll interval")
	fs.Duration("debounce", 50*time.Millisecond, "button debounce duration")
	fs.String("heartbeat", "@every 15m", "heartbeat cadence (cron spec, duration, or off)")
	fs.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	fs.String("http", ":80", "HTTP status server address (empty to disable)")
	fs.String("db", "/var/lib/wifi-outlet/outlet.db", "SQLite database path")
	fs.String("timezone", "Local", "IANA time zone for schedule times")
	fs.Bool("assume-synced", false, "treat the system clock as synchronized")
	fs.String("env-file", "/run/pi-helper.env", "pi-helper network env file")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// Load resolves the configuration. configFile may be empty. fs may be nil;
// only flags that were set on the command line override other sources.
func Load(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks every field.
func (c *Config) Validate() error {
	if !validName.MatchString(c.Name) {
		return ValidationError{"name", c.Name, "must be letters, digits, '-' or '_'"}
	}
	if c.Poll <= 0 {
		return ValidationError{"poll", c.Poll, "must be positive"}
	}
	if c.Poll > time.Second {
		return ValidationError{"poll", c.Poll, "must be at most 1s to catch every minute"}
	}
	if c.Debounce < 0 {
		return ValidationError{"debounce", c.Debounce, "must not be negative"}
	}
	if _, err := logic.NewHeartbeat(c.Heartbeat, time.Time{}); err != nil {
		return ValidationError{"heartbeat", c.Heartbeat, err.Error()}
	}
	if c.Broker == "" {
		return ValidationError{"broker", c.Broker, "must not be empty"}
	}
	if c.DBPath == "" {
		return ValidationError{"db", c.DBPath, "must not be empty"}
	}
	if _, err := c.Location(); err != nil {
		return ValidationError{"timezone", c.Timezone, err.Error()}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return ValidationError{"log_level", c.LogLevel, err.Error()}
	}

	p := c.Pins
	for _, pin := range []int{p.Relay, p.LED, p.Button} {
		if pin < 0 || pin > 53 {
			return ValidationError{"pins", pin, "must be a BCM line between 0 and 53"}
		}
	}
	if p.Relay == p.LED || p.Relay == p.Button || p.LED == p.Button {
		return ValidationError{"pins", p, "relay, led and button must differ"}
	}

	if err := c.SolarSite().Validate(); err != nil {
		return ValidationError{"site", c.Site, err.Error()}
	}
	if _, err := c.ScheduleSeed(); err != nil {
		return ValidationError{"schedule", len(c.Schedule.Cycles), err.Error()}
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// GPIOPins returns the pin assignment.
func (c *Config) GPIOPins() gpio.Pins {
	return gpio.Pins{Relay: c.Pins.Relay, LED: c.Pins.LED, Button: c.Pins.Button}
}

// SolarSite returns the observing site.
func (c *Config) SolarSite() solar.Site {
	return solar.Site{Latitude: c.Site.Latitude, Longitude: c.Site.Longitude, Elevation: c.Site.Elevation}
}

// ScheduleSeed converts the configured rules into a schedule configuration.
func (c *Config) ScheduleSeed() (schedule.Config, error) {
	if len(c.Schedule.Cycles) > schedule.MaxCycles {
		return schedule.Config{}, fmt.Errorf("%w: %d > %d", schedule.ErrTooManyCycles, len(c.Schedule.Cycles), schedule.MaxCycles)
	}
	out := schedule.Config{
		Enabled: c.Schedule.Enabled,
		Site:    c.SolarSite(),
		Cycles:  make([]schedule.Rule, 0, len(c.Schedule.Cycles)),
	}
	for i, spec := range c.Schedule.Cycles {
		r, err := spec.Rule()
		if err != nil {
			return schedule.Config{}, fmt.Errorf("cycle %d: %w", i, err)
		}
		out.Cycles = append(out.Cycles, r)
	}
	return out, nil
}
