// Package config loads the engine configuration from YAML with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/matrixstore"
	"github.com/signalsfoundry/constellation-resilience/model"
	"github.com/signalsfoundry/constellation-resilience/timectrl"
)

// Config is the full engine configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Store    StoreConfig    `yaml:"store"`
	Timeline TimelineConfig `yaml:"timeline"`

	// Catalog is the path of the constellation catalogue.
	Catalog string `yaml:"catalog" validate:"required"`
	// Predictor is the path of a linear latency model. Required only for
	// stability runs.
	Predictor string `yaml:"predictor"`

	Workers int `yaml:"workers" validate:"gte=0"`

	Users     []User            `yaml:"users" validate:"dive"`
	Scenarios []ScenarioConfig  `yaml:"scenarios" validate:"dive"`
	Stability []StabilityConfig `yaml:"stability" validate:"dive"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `yaml:"format" validate:"omitempty,oneof=text json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// TracingConfig selects where run spans are exported. Tracing stays off
// unless Enabled is set.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter" validate:"omitempty,oneof=stdout otlp"`
	Endpoint    string  `yaml:"endpoint" validate:"omitempty,hostname_port"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// StoreConfig locates the matrix store.
type StoreConfig struct {
	Path       string `yaml:"path" validate:"required_without=InMemory"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// TimelineConfig anchors timeslot 1 and sets the slot length.
type TimelineConfig struct {
	Epoch time.Time     `yaml:"epoch"`
	Step  time.Duration `yaml:"step" validate:"gt=0"`
}

// User is a named ground location.
type User struct {
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

// ScenarioConfig is one failure simulation.
type ScenarioConfig struct {
	Shell    string `yaml:"shell" validate:"required"`
	Timeslot int    `yaml:"timeslot" validate:"gte=1"`
	Source   string `yaml:"source" validate:"required"`
	Target   string `yaml:"target" validate:"required"`
}

// StabilityConfig is one multi-timeslot jitter run.
type StabilityConfig struct {
	Shell  string `yaml:"shell" validate:"required"`
	From   int    `yaml:"from" validate:"gte=1"`
	To     int    `yaml:"to" validate:"gtefield=From"`
	Source string `yaml:"source" validate:"required"`
	Target string `yaml:"target" validate:"required"`
}

var validate = validator.New()

// Default returns the configuration used when a field is not set.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Store:    StoreConfig{Path: "data/matrices"},
		Timeline: TimelineConfig{Step: time.Minute},
		Workers:  4,
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "constellation-resilience",
			SampleRatio: 1,
		},
	}
}

// Load reads path, applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default, applies environment overrides and
// validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ENGINE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
		cfg.Store.InMemory = false
	}
	if v := os.Getenv("ENGINE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("ENGINE_CATALOG"); v != "" {
		cfg.Catalog = v
	}
	if v := os.Getenv("ENGINE_PREDICTOR"); v != "" {
		cfg.Predictor = v
	}
	if v := os.Getenv("ENGINE_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("ENGINE_TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
	if v := os.Getenv("ENGINE_TRACING_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv("ENGINE_TRACING_SAMPLE_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRatio = f
		}
	}
	if v := os.Getenv("ENGINE_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// Validate checks field constraints and that scenarios reference known users.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	users := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if users[u.Name] {
			return fmt.Errorf("invalid config: duplicate user %q", u.Name)
		}
		users[u.Name] = true
	}
	for i, s := range c.Scenarios {
		if !users[s.Source] || !users[s.Target] {
			return fmt.Errorf("invalid config: scenario %d references unknown user", i)
		}
	}
	for i, s := range c.Stability {
		if !users[s.Source] || !users[s.Target] {
			return fmt.Errorf("invalid config: stability run %d references unknown user", i)
		}
	}
	return nil
}

// User returns the ground user with the given name.
func (c Config) User(name string) (model.GroundUser, bool) {
	for _, u := range c.Users {
		if u.Name == name {
			return model.GroundUser{
				Name:     u.Name,
				Location: model.GeoPoint{Latitude: u.Latitude, Longitude: u.Longitude},
			}, true
		}
	}
	return model.GroundUser{}, false
}

// LoggingConfig converts the log section for logging.New.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		AddSource: true,
		File: logging.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   true,
		},
	}
}

// StoreOptions converts the store section for matrixstore.Open.
func (c Config) StoreOptions(log logging.Logger) matrixstore.Config {
	return matrixstore.Config{
		Path:       c.Store.Path,
		InMemory:   c.Store.InMemory,
		SyncWrites: c.Store.SyncWrites,
		Logger:     log,
	}
}

// NewTimeline builds the configured timeline.
func (c Config) NewTimeline() (timectrl.Timeline, error) {
	return timectrl.NewTimeline(c.Timeline.Epoch, c.Timeline.Step)
}
