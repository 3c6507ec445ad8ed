package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig
const (
	EnvBaseURL        = "SMILE_VIEWER_BASE_URL"
	EnvPollInterval   = "SMILE_VIEWER_POLL_INTERVAL"
	EnvRequestTimeout = "SMILE_VIEWER_REQUEST_TIMEOUT"
	EnvStallThreshold = "SMILE_VIEWER_STALL_THRESHOLD"
	EnvStopOnExit     = "SMILE_VIEWER_STOP_ON_EXIT"
	EnvLogLevel       = "SMILE_VIEWER_LOG_LEVEL"
	EnvLogFile        = "SMILE_VIEWER_LOG_FILE"
	EnvMetricsAddr    = "SMILE_VIEWER_METRICS_ADDR"
)

// DefaultConfigFile is looked up in the home directory when --config is not given
const DefaultConfigFile = ".smile-viewer.yaml"

// Config holds the viewer settings
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// StallThreshold is the number of consecutive failed ticks before the
	// feed is reported as stalled. Zero disables the indicator.
	StallThreshold int    `yaml:"stall_threshold"`
	StopOnExit     bool   `yaml:"stop_on_exit"`
	LogLevel       string `yaml:"log_level"`
	LogFile        string `yaml:"log_file,omitempty"`
	MetricsAddr    string `yaml:"metrics_addr,omitempty"`
}

// DefaultConfig returns a local service polled once per second
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:5000",
		PollInterval:   1000 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
		StallThreshold: 3,
		StopOnExit:     true,
		LogLevel:       "info",
	}
}

// LoadConfig layers defaults, the YAML file, the .env file and the process
// environment, in that order. An empty path falls back to ~/.smile-viewer.yaml
// when it exists.
func LoadConfig(path, envFile string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, DefaultConfigFile)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, &ConfigError{Path: path, Err: err}
			}
			LogDebug("Loaded config from %s", path)
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return cfg, &ConfigError{Path: path, Err: err}
		}
	}

	env := map[string]string{}
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, &ConfigError{Path: envFile, Err: err}
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, key := range []string{
		EnvBaseURL, EnvPollInterval, EnvRequestTimeout, EnvStallThreshold,
		EnvStopOnExit, EnvLogLevel, EnvLogFile, EnvMetricsAddr,
	} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(env map[string]string) error {
	if v, ok := env[EnvBaseURL]; ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := env[EnvPollInterval]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Path: EnvPollInterval, Err: err}
		}
		c.PollInterval = d
	}
	if v, ok := env[EnvRequestTimeout]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Path: EnvRequestTimeout, Err: err}
		}
		c.RequestTimeout = d
	}
	if v, ok := env[EnvStallThreshold]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Path: EnvStallThreshold, Err: err}
		}
		c.StallThreshold = n
	}
	if v, ok := env[EnvStopOnExit]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigError{Path: EnvStopOnExit, Err: err}
		}
		c.StopOnExit = b
	}
	if v, ok := env[EnvLogLevel]; ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := env[EnvLogFile]; ok {
		c.LogFile = v
	}
	if v, ok := env[EnvMetricsAddr]; ok {
		c.MetricsAddr = v
	}
	return nil
}

// Validate checks the settings that would otherwise fail later at runtime
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return &ConfigError{Path: "base_url", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return &ConfigError{Path: "base_url", Err: fmt.Errorf("need an absolute http(s) URL, got %q", c.BaseURL)}
	}
	if c.PollInterval <= 0 {
		return &ConfigError{Path: "poll_interval", Err: fmt.Errorf("must be positive, got %s", c.PollInterval)}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Path: "request_timeout", Err: fmt.Errorf("must be positive, got %s", c.RequestTimeout)}
	}
	if c.StallThreshold < 0 {
		return &ConfigError{Path: "stall_threshold", Err: fmt.Errorf("must not be negative, got %d", c.StallThreshold)}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ConfigError{Path: "log_level", Err: err}
	}
	return nil
}
