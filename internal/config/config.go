// Package config loads and validates confexport configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Config represents the application configuration.
type Config struct {
	Confluence ConfluenceConfig `yaml:"confluence"`
	Retry      RetryConfig      `yaml:"retry"`
	Export     ExportConfig     `yaml:"export"`
	Manifest   ManifestConfig   `yaml:"manifest"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Notify     NotifyConfig     `yaml:"notify"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Logging    LoggingConfig    `yaml:"logging"`

	// baseDir resolves relative paths (token file) against the config file location.
	baseDir string
}

// ConfluenceConfig describes the content API and how to authenticate against it.
type ConfluenceConfig struct {
	BaseURL       string        `yaml:"base_url"`
	RootPageID    string        `yaml:"root_page_id"`
	TokenFile     string        `yaml:"token_file"`
	TokenKey      string        `yaml:"token_key"`
	PageSize      int           `yaml:"page_size"`
	Timeout       time.Duration `yaml:"timeout"`
	SkipMalformed bool          `yaml:"skip_malformed"` // drop children missing required fields instead of aborting
}

// RetryConfig configures retries of transient API failures.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// ExportConfig controls what is written and where.
type ExportConfig struct {
	Mode          Mode   `yaml:"mode"`
	OutputDir     string `yaml:"output_dir"`
	ChunkBytes    int64  `yaml:"chunk_bytes"`
	NameMaxLength int    `yaml:"name_max_length"`
	MaxDepth      int    `yaml:"max_depth"` // 0 = unlimited
}

// ManifestConfig enables the SQLite run manifest when Path is set.
type ManifestConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig enables a Prometheus text exposition dump after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// NotifyConfig enables NATS run notifications when NATSURL is set.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ScheduleConfig configures the schedule command.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from configPath. Environment references (${VAR})
// are expanded before parsing. Required fields are not checked here so CLI
// overrides can fill them in; call Validate afterwards.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath) // #nosec G304 -- path supplied by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	if abs, err := filepath.Abs(filepath.Dir(configPath)); err == nil {
		cfg.baseDir = abs
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadOrDefault loads configPath when set, otherwise returns Default().
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}
	return Load(configPath)
}

// ApplyDefaults fills every zero-valued field with its default.
func (c *Config) ApplyDefaults() {
	if c.Confluence.TokenFile == "" {
		c.Confluence.TokenFile = DefaultTokenFile
	}
	if c.Confluence.TokenKey == "" {
		c.Confluence.TokenKey = DefaultTokenKey
	}
	if c.Confluence.PageSize <= 0 {
		c.Confluence.PageSize = DefaultPageSize
	}
	if c.Confluence.Timeout <= 0 {
		c.Confluence.Timeout = DefaultTimeout
	}

	if c.Retry.Mode == "" {
		c.Retry.Mode = RetryBackoffLinear
	}
	if c.Retry.Initial <= 0 {
		c.Retry.Initial = time.Second
	}
	if c.Retry.Max <= 0 {
		c.Retry.Max = 30 * time.Second
	}
	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = 0
	}

	if c.Export.Mode == "" {
		c.Export.Mode = ModeChunked
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = "."
	}
	if c.Export.ChunkBytes <= 0 {
		c.Export.ChunkBytes = DefaultChunkBytes
	}
	if c.Export.NameMaxLength <= 0 {
		c.Export.NameMaxLength = DefaultNameMaxLength
	}

	if c.Notify.Subject == "" {
		c.Notify.Subject = DefaultNotifySubject
	}
	if c.Schedule.Interval <= 0 {
		c.Schedule.Interval = time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}

// Normalize converts free-form enum values into their canonical form.
func (c *Config) Normalize() error {
	mode, err := modeNormalizer.NormalizeWithError(string(c.Export.Mode))
	if err != nil {
		return errors.ValidationError(err.Error()).WithContext("field", "export.mode").Build()
	}
	c.Export.Mode = mode

	backoff, err := retryBackoffNormalizer.NormalizeWithError(string(c.Retry.Mode))
	if err != nil {
		return errors.ValidationError(err.Error()).WithContext("field", "retry.mode").Build()
	}
	c.Retry.Mode = backoff

	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	return nil
}

// TokenPath returns the credential file path, resolved against the config
// file directory when relative and a config file was loaded.
func (c *Config) TokenPath() string {
	p := c.Confluence.TokenFile
	if filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// Init writes a sample configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Default()
	example.Confluence.BaseURL = "https://confluence.example.com"
	example.Confluence.RootPageID = "123456"

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Fatal().Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return nil
}
