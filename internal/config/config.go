// Package config loads the daemon configuration from defaults, an
// optional YAML file, and environment variables, in that order. The
// scanner table is a separate JSON file, see devices.go.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied before the file and environment are read.
const (
	DefaultListenAddr    = ":8001"
	DefaultMongoURI      = "mongodb://localhost:27017"
	DefaultDatabaseName  = "teacher_app_offline"
	DefaultDevicePath    = "devices_config.json"
	DefaultTimezone      = "Africa/Cairo"
	DefaultLogLevel      = "info"
	DefaultSyncInterval  = 60 * time.Second
	DefaultDeviceTimeout = 5 * time.Second
)

// ErrBadConfig indicates the configuration file does not parse.
var ErrBadConfig = errors.New("invalid configuration")

// Duration decodes YAML values like "60s" or "5m" into a duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrBadConfig, value.Value)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the daemon configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr"`

	// MongoURI is the local MongoDB connection string.
	MongoURI string `yaml:"mongo_uri"`

	// DatabaseName selects the database holding the four collections.
	DatabaseName string `yaml:"database_name"`

	// RemoteURL is the central backend base URL. Empty means the
	// coordinator runs purely offline.
	RemoteURL string `yaml:"remote_url"`

	// DevicePath locates the scanner table JSON file.
	DevicePath string `yaml:"device_config"`

	// DeviceTimeout bounds scanner connect attempts.
	DeviceTimeout Duration `yaml:"device_timeout"`

	// CommKey is the scanner communication password, shared by all
	// configured devices. Zero means unset.
	CommKey uint32 `yaml:"comm_key"`

	// SyncInterval is the background sync worker period.
	SyncInterval Duration `yaml:"sync_interval"`

	// Timezone names the location used to stamp capture events.
	Timezone string `yaml:"timezone"`

	// LogLevel is the logrus level name.
	LogLevel string `yaml:"log_level"`

	// TracePath enables protocol tracing to the given file when set.
	TracePath string `yaml:"trace_path"`

	// AllowedOrigins lists the operator UI origins for CORS.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:    DefaultListenAddr,
		MongoURI:      DefaultMongoURI,
		DatabaseName:  DefaultDatabaseName,
		DevicePath:    DefaultDevicePath,
		DeviceTimeout: Duration(DefaultDeviceTimeout),
		SyncInterval:  Duration(DefaultSyncInterval),
		Timezone:      DefaultTimezone,
		LogLevel:      DefaultLogLevel,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file
// at path (skipped when path is empty), and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays the binding environment variables. These win over
// the file so deployments can keep secrets out of it.
func (c *Config) applyEnv() {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		c.DatabaseName = v
	}
	if v := os.Getenv("HOST_REMOTE_URL"); v != "" {
		c.RemoteURL = v
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrBadConfig, c.Timezone)
	}
	return loc, nil
}
