package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment fallbacks honored when the config file defines no lights.
const (
	EnvLights    = "ELGATO_LIGHT_IPS"
	EnvLightPort = "ELGATO_LIGHT_PORT"
)

// Light defaults applied to entries that omit the optional fields.
const (
	DefaultBrightness  = 100
	DefaultTemperature = 5600 // Kelvin
	DefaultPort        = 9123
)

// Config represents the application configuration
type Config struct {
	Lights          []LightConfig     `yaml:"lights"`
	Elgato          ElgatoConfig      `yaml:"elgato"`
	Reconciler      ReconcilerConfig  `yaml:"reconciler"`
	Camera          CameraConfig      `yaml:"camera"`
	Webhook         WebhookConfig     `yaml:"webhook"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	Log             LogConfig         `yaml:"log"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LightConfig describes one Elgato light on the local network.
// Optional fields are pointers so an explicit 0 survives parsing.
type LightConfig struct {
	Address     string `yaml:"address"`
	Brightness  *int   `yaml:"brightness"`  // 0-100 (default 100)
	Temperature *int   `yaml:"temperature"` // Kelvin, 2900-7000 (default 5600)
}

// GetBrightness returns the configured brightness with default
func (l *LightConfig) GetBrightness() int {
	if l.Brightness == nil {
		return DefaultBrightness
	}
	return *l.Brightness
}

// GetTemperature returns the configured color temperature in Kelvin with default
func (l *LightConfig) GetTemperature() int {
	if l.Temperature == nil {
		return DefaultTemperature
	}
	return *l.Temperature
}

// ElgatoConfig contains settings for talking to the lights
type ElgatoConfig struct {
	Port    int      `yaml:"port"`    // Accessory HTTP port (default: 9123)
	Timeout Duration `yaml:"timeout"` // Per-request timeout (default: 3s)
}

// ReconcilerConfig contains reconciler settings
type ReconcilerConfig struct {
	OffDelay Duration `yaml:"off_delay"` // Debounce before the lights go off (default: 1s)
}

// CameraConfig contains camera event source settings
type CameraConfig struct {
	Source string `yaml:"source"` // "cmio" or "webhook" (default: cmio)

	// Source restart settings
	MinRetryBackoff Duration `yaml:"min_retry_backoff"` // Minimum backoff between restarts (default: 1s)
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"` // Maximum backoff between restarts (default: 2m)
	RetryMultiplier float64  `yaml:"retry_multiplier"`  // Backoff multiplier (default: 2.0)
	MaxRestarts     int      `yaml:"max_restarts"`      // Max restart attempts, 0 = infinite (default: 0)
}

// WebhookConfig contains webhook event source settings
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LedgerConfig contains audit ledger settings. An empty path disables the ledger.
type LedgerConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"` // Prune entries older than this, 0 keeps forever
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
	File    string `yaml:"file"` // Optional log file, appended in addition to stderr
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 64)
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 64
	}
	return c.QueueSize
}

// GetShutdownTimeout returns the general shutdown timeout
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
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

// Load reads, parses and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills unset fields, falling back to the ELGATO_* environment
// variables for the light list when the file defines none.
func (c *Config) applyDefaults() error {
	if len(c.Lights) == 0 {
		if env := os.Getenv(EnvLights); env != "" {
			c.Lights = ParseLightsEnv(env)
		}
	}

	// Elgato defaults
	if c.Elgato.Port == 0 {
		if env := os.Getenv(EnvLightPort); env != "" {
			port, err := strconv.Atoi(env)
			if err != nil {
				return fmt.Errorf("%s: invalid port %q", EnvLightPort, env)
			}
			c.Elgato.Port = port
		} else {
			c.Elgato.Port = DefaultPort
		}
	}
	if c.Elgato.Timeout == 0 {
		c.Elgato.Timeout = Duration(3 * time.Second)
	}

	// Reconciler defaults
	if c.Reconciler.OffDelay == 0 {
		c.Reconciler.OffDelay = Duration(1 * time.Second)
	}

	// Camera source defaults
	if c.Camera.Source == "" {
		c.Camera.Source = "cmio"
	}
	if c.Camera.MinRetryBackoff == 0 {
		c.Camera.MinRetryBackoff = Duration(1 * time.Second)
	}
	if c.Camera.MaxRetryBackoff == 0 {
		c.Camera.MaxRetryBackoff = Duration(2 * time.Minute)
	}
	if c.Camera.RetryMultiplier == 0 {
		c.Camera.RetryMultiplier = 2.0
	}
	// MaxRestarts defaults to 0 (infinite), no need to set

	// Webhook defaults; selecting the webhook source implies the server
	if c.Camera.Source == "webhook" {
		c.Webhook.Enabled = true
	}
	if c.Webhook.Host == "" {
		c.Webhook.Host = "0.0.0.0"
	}
	if c.Webhook.Port == 0 {
		c.Webhook.Port = 8080
	}

	// Healthcheck defaults
	if c.Healthcheck.Host == "" {
		c.Healthcheck.Host = "0.0.0.0"
	}
	if c.Healthcheck.Port == 0 {
		c.Healthcheck.Port = 9090
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// General shutdown timeout
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(5 * time.Second)
	}

	return nil
}

// Validate checks the configuration and returns a descriptive error for the
// first problem found. A config that fails validation must not be used.
func (c *Config) Validate() error {
	if len(c.Lights) == 0 {
		return fmt.Errorf("no lights configured: define a lights list or set %s", EnvLights)
	}
	for i, light := range c.Lights {
		if err := validateAddress(light.Address); err != nil {
			return fmt.Errorf("light %d: %w", i, err)
		}
		if b := light.GetBrightness(); b < 0 || b > 100 {
			return fmt.Errorf("light %d (%s): brightness %d out of range 0-100", i, light.Address, b)
		}
		if k := light.GetTemperature(); k < 2900 || k > 7000 {
			return fmt.Errorf("light %d (%s): temperature %dK out of range 2900-7000", i, light.Address, k)
		}
	}

	if c.Elgato.Port < 1 || c.Elgato.Port > 65535 {
		return fmt.Errorf("elgato: port %d out of range 1-65535", c.Elgato.Port)
	}
	if c.Elgato.Timeout.Duration() <= 0 {
		return fmt.Errorf("elgato: timeout must be positive")
	}
	if c.Reconciler.OffDelay.Duration() <= 0 {
		return fmt.Errorf("reconciler: off_delay must be positive")
	}
	if c.Ledger.Retention.Duration() < 0 {
		return fmt.Errorf("ledger: retention must not be negative")
	}

	switch c.Camera.Source {
	case "cmio", "webhook":
	default:
		return fmt.Errorf("camera: unknown source %q (expected cmio or webhook)", c.Camera.Source)
	}

	return nil
}

// ParseLightsEnv parses the ELGATO_LIGHT_IPS format: a comma-separated list
// of light addresses. Empty entries are skipped; brightness and temperature
// take their defaults.
func ParseLightsEnv(s string) []LightConfig {
	var lights []LightConfig
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		lights = append(lights, LightConfig{Address: entry})
	}
	return lights
}

func validateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	if strings.ContainsAny(addr, " \t") {
		return fmt.Errorf("address %q must not contain whitespace", addr)
	}
	if strings.Contains(addr, "://") || strings.Contains(addr, "/") {
		return fmt.Errorf("address %q must be a bare host or IP, not a URL", addr)
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
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
