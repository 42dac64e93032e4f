package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"weather-contract-tester/internal/types"
)

// DefaultPath is read when no config file is named explicitly. It may be absent.
const DefaultPath = "config/config.yaml"

// ErrMissingCredential means the API key environment variable is unset or empty.
var ErrMissingCredential = errors.New("missing API credential")

// Config holds the application configuration
type Config struct {
	Environment Environment     `yaml:"environment"`
	Test        TestConfig      `yaml:"test"`
	Reporting   ReportingConfig `yaml:"reporting"`
	Log         LogConfig       `yaml:"log"`
}

// Environment holds the service location and credential source
type Environment struct {
	BaseURL string     `yaml:"base_url"`
	Auth    AuthConfig `yaml:"auth"`
}

// AuthConfig names the environment variable holding the API key. The key
// itself is never read from the config file.
type AuthConfig struct {
	EnvVar string `yaml:"env_var"`
	Token  string `yaml:"-"`
}

// EndpointConfig holds per-endpoint limits
type EndpointConfig struct {
	// Timeout bounds the whole request.
	Timeout time.Duration `yaml:"timeout"`
	// LatencyBudget is the round trip time above which a latency finding is reported.
	LatencyBudget time.Duration `yaml:"latency_budget"`
}

// TestConfig holds test execution configuration
type TestConfig struct {
	MaxWorkers int            `yaml:"max_workers"`
	Current    EndpointConfig `yaml:"current"`
	Forecast   EndpointConfig `yaml:"forecast"`
	// LatencySoft keeps latency findings out of the failure count.
	LatencySoft bool   `yaml:"latency_soft"`
	SuiteFile   string `yaml:"suite_file"`
}

// ReportingConfig holds reporting configuration
type ReportingConfig struct {
	FailureDir string `yaml:"failure_dir"`
	// OutputDir receives the run summary. Empty disables it.
	OutputDir string   `yaml:"output_dir"`
	Formats   []string `yaml:"formats"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	// Dir receives a copy of the run log. Empty logs to stderr only.
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Environment: Environment{
			BaseURL: "https://api.openweathermap.org/data/2.5",
			Auth:    AuthConfig{EnvVar: "OPENWEATHER_API_KEY"},
		},
		Test: TestConfig{
			MaxWorkers: 1,
			Current:    EndpointConfig{Timeout: 10 * time.Second, LatencyBudget: 4 * time.Second},
			Forecast:   EndpointConfig{Timeout: 12 * time.Second, LatencyBudget: 6 * time.Second},
		},
		Reporting: ReportingConfig{FailureDir: "logs", Formats: []string{"json"}},
		Log:       LogConfig{Level: "info"},
	}
}

// Endpoint returns the limits for e.
func (c *Config) Endpoint(e types.Endpoint) EndpointConfig {
	if e == types.EndpointForecast {
		return c.Test.Forecast
	}
	return c.Test.Current
}

// LoadConfig loads the configuration from the config file and the environment.
// An empty path reads DefaultPath if it exists. A .env file in the working
// directory is loaded first; variables already set take precedence.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}

	config.fillDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// fillDefaults restores defaults for values a file set to zero.
func (c *Config) fillDefaults() {
	d := Default()
	c.Environment.BaseURL = strings.TrimRight(c.Environment.BaseURL, "/")
	if c.Environment.BaseURL == "" {
		c.Environment.BaseURL = d.Environment.BaseURL
	}
	if c.Environment.Auth.EnvVar == "" {
		c.Environment.Auth.EnvVar = d.Environment.Auth.EnvVar
	}
	if c.Test.MaxWorkers <= 0 {
		c.Test.MaxWorkers = d.Test.MaxWorkers
	}
	fillEndpoint(&c.Test.Current, d.Test.Current)
	fillEndpoint(&c.Test.Forecast, d.Test.Forecast)
	if c.Reporting.FailureDir == "" {
		c.Reporting.FailureDir = d.Reporting.FailureDir
	}
	if len(c.Reporting.Formats) == 0 {
		c.Reporting.Formats = d.Reporting.Formats
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

func fillEndpoint(e *EndpointConfig, d EndpointConfig) {
	if e.Timeout <= 0 {
		e.Timeout = d.Timeout
	}
	if e.LatencyBudget <= 0 {
		e.LatencyBudget = d.LatencyBudget
	}
}

func (c *Config) validate() error {
	for name, e := range map[string]EndpointConfig{"current": c.Test.Current, "forecast": c.Test.Forecast} {
		if e.LatencyBudget > e.Timeout {
			return fmt.Errorf("test.%s: latency budget %s exceeds timeout %s", name, e.LatencyBudget, e.Timeout)
		}
	}
	for _, f := range c.Reporting.Formats {
		if f != "json" && f != "yaml" {
			return fmt.Errorf("reporting.formats: unsupported format %q", f)
		}
	}
	if !strings.HasPrefix(c.Environment.BaseURL, "http://") && !strings.HasPrefix(c.Environment.BaseURL, "https://") {
		return fmt.Errorf("environment.base_url %q is not an http(s) URL", c.Environment.BaseURL)
	}
	return nil
}

// ResolveCredential reads the API key from the environment. A missing key is
// fatal to the whole run.
func (c *Config) ResolveCredential() error {
	token := strings.TrimSpace(os.Getenv(c.Environment.Auth.EnvVar))
	if token == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingCredential, c.Environment.Auth.EnvVar)
	}
	c.Environment.Auth.Token = token
	return nil
}
