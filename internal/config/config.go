// Package config holds the surfacesync configuration model, its defaults,
// YAML persistence and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/logging"
)

// Ingest modes.
const (
	ModeReconcile = "reconcile"
	ModeCreate    = "create"
)

// Duplicate hostname policies.
const (
	DuplicateFirst = "first"
	DuplicateError = "error"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600
)

// Config represents the complete surfacesync configuration
type Config struct {
	// Document store configuration
	Store StoreConfig `yaml:"store" json:"store"`

	// Scan report input
	Input InputConfig `yaml:"input" json:"input"`

	// Pipeline behaviour
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics output
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// StoreConfig holds document store settings
type StoreConfig struct {
	// Base URL of the store, e.g. http://localhost:9200
	Host string `yaml:"host" json:"host" validate:"required,url"`

	// Target index name
	Index string `yaml:"index" json:"index" validate:"required,excludesall=/*?<>0x7C"`

	// Tag written to newly created documents
	Subsidiary string `yaml:"subsidiary" json:"subsidiary" validate:"required"`

	// HTTP client timeout, zero keeps the transport default
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

// InputConfig holds report input settings
type InputConfig struct {
	// Path of the nmap XML report
	Path string `yaml:"path" json:"path" validate:"required"`
}

// IngestConfig holds pipeline settings
type IngestConfig struct {
	// reconcile looks up existing documents, create always indexes new ones
	Mode string `yaml:"mode" json:"mode" validate:"oneof=reconcile create"`

	// What to do when several documents share a hostname
	OnDuplicate string `yaml:"on_duplicate" json:"on_duplicate" validate:"oneof=first error"`

	// Skip host entries without an address instead of aborting
	SkipInvalidHosts bool `yaml:"skip_invalid_hosts" json:"skip_invalid_hosts"`

	// Reconcile and print the plan without submitting the batch
	DryRun bool `yaml:"dry_run" json:"dry_run"`

	// Cron expression for repeated runs, empty runs once
	Schedule string `yaml:"schedule" json:"schedule"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output" validate:"required"`

	// Log file rotation
	Rotation logging.Rotation `yaml:"rotation" json:"rotation"`
}

// MetricsConfig holds metrics output settings
type MetricsConfig struct {
	// Node exporter textfile to write after each run, empty disables it
	Textfile string `yaml:"textfile" json:"textfile"`

	// Address of the status server in scheduled mode, empty disables it
	Listen string `yaml:"listen" json:"listen" validate:"omitempty,hostname_port"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Host:       "http://localhost:9200",
			Index:      "attack-surface",
			Subsidiary: "Evil Corp",
		},
		Input: InputConfig{
			Path: "nmap.xml",
		},
		Ingest: IngestConfig{
			Mode:        ModeReconcile,
			OnDuplicate: DuplicateFirst,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			Rotation: logging.Rotation{
				Enabled:    false,
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 30,
				Compress:   true,
			},
		},
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
// The result is not validated; callers apply their overrides first and then
// call Validate.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator supplied config path
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// JSON is a subset of YAML, so one decoder covers both extensions.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config %s", filepath.Base(path)), err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate validates the configuration. The first failing field is
// reported as a ConfigError naming its yaml path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return errors.WrapConfigError(errors.CodeValidation, "invalid configuration", err)
	}

	fe := validationErrs[0]
	field := fieldPath(fe.Namespace())
	if fe.Tag() == "required" {
		return errors.ErrConfigMissing(field)
	}
	return errors.ErrConfigInvalid(field, fe.Value())
}

// fieldPath turns a validator namespace such as Config.Store.Host into the
// matching yaml key path store.host.
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = toSnake(part)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LoggingSettings converts the logging section for the logging package.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:     logging.LogLevel(c.Logging.Level),
		Format:    logging.LogFormat(c.Logging.Format),
		Output:    c.Logging.Output,
		AddSource: c.Logging.Level == "debug",
		Rotation:  c.Logging.Rotation,
	}
}
