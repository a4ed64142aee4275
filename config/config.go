// Package config loads prime calculator settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the default prefix for environment overrides, e.g. PRIMES_THREADS.
const EnvPrefix = "PRIMES"

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every tunable of a calculation run.
type Config struct {
	// Threads is the worker count; 0 selects the hardware parallelism.
	Threads   int           `yaml:"threads"`
	BatchSize int           `yaml:"batch_size"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Log       LogConfig     `yaml:"log"`
	Report    ReportConfig  `yaml:"report"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// ReportConfig controls the final report.
type ReportConfig struct {
	Format string `yaml:"format"`
	Rows   int    `yaml:"rows"` // detailed result rows in text output
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Threads:   0,
		BatchSize: 1000,
		Metrics:   MetricsConfig{Namespace: "primes"},
		Log:       LogConfig{Level: "info"},
		Report:    ReportConfig{Format: FormatText, Rows: 100},
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	// #nosec G304 -- path comes from the operator's command line.
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables named
// PREFIX_<yaml key path>, e.g. PRIMES_METRICS_ADDR. Unset or empty variables
// leave the field alone.
func (c *Config) ApplyEnv(prefix string) error {
	if prefix == "" {
		prefix = EnvPrefix
	}
	return applyEnvToStruct(prefix, reflect.ValueOf(c).Elem())
}

func applyEnvToStruct(prefix string, val reflect.Value) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !field.CanSet() {
			continue
		}

		name, _, _ := strings.Cut(fieldType.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		envKey := prefix + "_" + strings.ToUpper(name)

		if field.Kind() == reflect.Struct {
			if err := applyEnvToStruct(envKey, field); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envKey, err)
		}
	}
	return nil
}

func setFieldFromEnv(field reflect.Value, envValue string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(envValue))
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", envValue)
		}
		field.SetInt(int64(n))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads must be >= 0, got %d", c.Threads))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be > 0, got %d", c.BatchSize))
	}
	if c.Report.Rows < 0 {
		errs = append(errs, fmt.Errorf("report.rows must be >= 0, got %d", c.Report.Rows))
	}
	switch c.Report.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("report.format must be %q or %q, got %q", FormatText, FormatJSON, c.Report.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
