package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/huefri/internal/hub"
)

// ErrConfig marks a configuration that is missing, unreadable, malformed or invalid.
var ErrConfig = errors.New("invalid configuration")

// UsageTemplate is printed when the configuration cannot be used.
const UsageTemplate = `The configuration file should contain:

hue:
  address: "${HUE_ADDRESS}"         # bridge host or IP
  secret: "${HUE_SECRET}"           # bridge username
  main: 1                           # watched light id
  controlled: [1, 2, 3]             # light ids to control
tradfri:
  address: "${TRADFRI_ADDRESS}"     # gateway host or IP
  secret: "${TRADFRI_SECRET}"       # pre-shared key
  identity: "Client_identity"
  main: 0                           # watched light position
  controlled: [0, 1, 2]             # light positions to control
sync:
  interval: 1s
  echo_window: 5s
  brightness_steps: 8
`

// Config represents the application configuration
type Config struct {
	Hue             HueConfig     `yaml:"hue"`
	Tradfri         TradfriConfig `yaml:"tradfri"`
	Sync            SyncConfig    `yaml:"sync"`
	Log             LogConfig     `yaml:"log"`
	Ledger          LedgerConfig  `yaml:"ledger"`
	HTTP            HTTPConfig    `yaml:"http"`
	ShutdownTimeout Duration      `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HubConfig is what both hub sections share.
type HubConfig struct {
	Address    string   `yaml:"address"`
	Secret     string   `yaml:"secret"`
	Main       int      `yaml:"main"`
	Controlled []int    `yaml:"controlled"`
	Timeout    Duration `yaml:"timeout"` // Per-request timeout
}

// Hub converts the section into the adapter configuration.
func (c HubConfig) Hub() hub.Config {
	return hub.Config{
		Address:    c.Address,
		Secret:     c.Secret,
		Main:       c.Main,
		Controlled: append([]int(nil), c.Controlled...),
	}
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	HubConfig    `yaml:",inline"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// TradfriConfig contains Tradfri gateway connection settings
type TradfriConfig struct {
	HubConfig      `yaml:",inline"`
	Identity       string   `yaml:"identity"`
	ObserveTimeout Duration `yaml:"observe_timeout"`
}

// SyncConfig holds the named timing constants of the sync loop
type SyncConfig struct {
	Interval        Duration `yaml:"interval"`
	EchoWindow      Duration `yaml:"echo_window"`
	BrightnessSteps int      `yaml:"brightness_steps"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors *bool  `yaml:"colors"` // nil follows the terminal
}

// LedgerConfig contains sync ledger settings. An empty path disables the ledger.
type LedgerConfig struct {
	Path            string   `yaml:"path"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// HTTPConfig contains control and health server settings
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads a .env file if present, then parses and validates the
// configuration file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return Parse(data)
}

// Parse parses and validates configuration data.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Hub defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(5 * time.Second)
	}
	if cfg.Hue.RateLimitRPS == 0 {
		cfg.Hue.RateLimitRPS = 10.0 // 10 requests per second
	}
	if cfg.Tradfri.Timeout == 0 {
		cfg.Tradfri.Timeout = Duration(5 * time.Second)
	}
	if cfg.Tradfri.ObserveTimeout == 0 {
		cfg.Tradfri.ObserveTimeout = Duration(1 * time.Second)
	}
	if cfg.Tradfri.Identity == "" {
		cfg.Tradfri.Identity = "Client_identity"
	}

	// Sync defaults
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = Duration(1 * time.Second)
	}
	if cfg.Sync.EchoWindow == 0 {
		cfg.Sync.EchoWindow = Duration(hub.DefaultEchoWindow)
	}
	if cfg.Sync.BrightnessSteps == 0 {
		cfg.Sync.BrightnessSteps = hub.DefaultBrightnessSteps
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// HTTP defaults
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 9090
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate reports every problem at once, wrapped in ErrConfig.
func (cfg *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	for _, section := range []struct {
		name string
		hub  HubConfig
	}{{"hue", cfg.Hue.HubConfig}, {"tradfri", cfg.Tradfri.HubConfig}} {
		check(section.hub.Address != "", "%s.address is required", section.name)
		check(section.hub.Secret != "", "%s.secret is required", section.name)
		check(len(section.hub.Controlled) > 0, "%s.controlled needs at least one light", section.name)
		check(section.hub.Timeout > 0, "%s.timeout must be positive", section.name)
	}
	check(cfg.Hue.RateLimitRPS > 0, "hue.rate_limit_rps must be positive")
	check(cfg.Tradfri.ObserveTimeout > 0, "tradfri.observe_timeout must be positive")
	check(cfg.Sync.Interval > 0, "sync.interval must be positive")
	check(cfg.Sync.EchoWindow > 0, "sync.echo_window must be positive")
	check(cfg.Sync.BrightnessSteps > 0, "sync.brightness_steps must be positive")
	check(cfg.Ledger.RetentionDays > 0, "ledger.retention_days must be positive")
	if cfg.Ledger.Path != "" {
		check(cfg.Ledger.CleanupInterval > 0, "ledger.cleanup_interval must be positive")
	}
	check(cfg.ShutdownTimeout > 0, "shutdown_timeout must be positive")

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

var envVarRe = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarRe.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
