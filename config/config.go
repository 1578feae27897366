package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// EndpointConfig describes how to reach the backend service.
type EndpointConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// IntervalConfig holds the recurring poller cadences.
type IntervalConfig struct {
	Dashboard Duration `yaml:"dashboard,omitempty"`
	History   Duration `yaml:"history,omitempty"`
}

// ThresholdConfig overrides a single acceptable sensor range.
type ThresholdConfig struct {
	Key   string  `yaml:"key"`
	Label string  `yaml:"label,omitempty"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
}

// RuleConfig declares a free-form alert rule evaluated against the latest
// sensor snapshot.
type RuleConfig struct {
	ID      string `yaml:"id"`
	Expr    string `yaml:"expr"`
	Message string `yaml:"message,omitempty"`
}

// LokiConfig enables shipping of log entries to a Loki instance.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Labels  map[string]string `yaml:"labels,omitempty"`
}

// LoggingConfig controls the zerolog root logger.
type LoggingConfig struct {
	Level  string     `yaml:"level,omitempty"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki,omitempty"`
}

// TelemetryConfig toggles Prometheus metric registration.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// NotifyConfig configures the optional MQTT alert notifier.
type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Broker   string `yaml:"broker,omitempty"`
	Topic    string `yaml:"topic,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`
}

// LiveViewConfig configures the JSON surface the presentation layer polls.
type LiveViewConfig struct {
	Listen         string   `yaml:"listen,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Endpoint     EndpointConfig    `yaml:"endpoint"`
	Intervals    IntervalConfig    `yaml:"intervals,omitempty"`
	HistoryLimit int               `yaml:"history_limit,omitempty"`
	Thresholds   []ThresholdConfig `yaml:"thresholds,omitempty"`
	Rules        []RuleConfig      `yaml:"rules,omitempty"`
	Logging      LoggingConfig     `yaml:"logging,omitempty"`
	Telemetry    TelemetryConfig   `yaml:"telemetry,omitempty"`
	Notify       NotifyConfig      `yaml:"notify,omitempty"`
	LiveView     LiveViewConfig    `yaml:"live_view,omitempty"`
}

const (
	defaultDashboardInterval = 5 * time.Second
	defaultHistoryInterval   = 10 * time.Second
	defaultHistoryLimit      = 50
	defaultTimeout           = 5 * time.Second
	defaultListen            = ":18090"
)

// Load reads, schema-validates and decodes the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := validateSchema(path, data); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Endpoint.Timeout.Duration <= 0 {
		c.Endpoint.Timeout.Duration = defaultTimeout
	}
	if c.Intervals.Dashboard.Duration <= 0 {
		c.Intervals.Dashboard.Duration = defaultDashboardInterval
	}
	if c.Intervals.History.Duration <= 0 {
		c.Intervals.History.Duration = defaultHistoryInterval
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.LiveView.Listen == "" {
		c.LiveView.Listen = defaultListen
	}
}

// Validate checks semantic constraints not expressible in the schema.
func (c *Config) Validate() error {
	if c.Endpoint.BaseURL == "" {
		return fmt.Errorf("endpoint base_url is required")
	}
	parsed, err := url.Parse(c.Endpoint.BaseURL)
	if err != nil {
		return fmt.Errorf("parse endpoint base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint base_url must be http or https, got %q", c.Endpoint.BaseURL)
	}
	seen := make(map[string]struct{}, len(c.Thresholds))
	for _, threshold := range c.Thresholds {
		if threshold.Key == "" {
			return fmt.Errorf("threshold entry is missing a sensor key")
		}
		if _, ok := seen[threshold.Key]; ok {
			return fmt.Errorf("duplicate threshold for sensor %q", threshold.Key)
		}
		seen[threshold.Key] = struct{}{}
		if threshold.Min > threshold.Max {
			return fmt.Errorf("threshold %s: min %v exceeds max %v", threshold.Key, threshold.Min, threshold.Max)
		}
	}
	rules := make(map[string]struct{}, len(c.Rules))
	for _, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("alert rule is missing an id")
		}
		if _, ok := rules[rule.ID]; ok {
			return fmt.Errorf("duplicate alert rule %q", rule.ID)
		}
		rules[rule.ID] = struct{}{}
		if rule.Expr == "" {
			return fmt.Errorf("alert rule %s: expression must not be empty", rule.ID)
		}
	}
	if c.Notify.Enabled && c.Notify.Broker == "" {
		return fmt.Errorf("notify is enabled but no broker is configured")
	}
	return nil
}
