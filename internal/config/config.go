package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SHARERECEIVER_STORE_BACKEND.
const EnvPrefix = "SHARERECEIVER"

// Config holds all configuration for the share receiver.
type Config struct {
	Listen    string `mapstructure:"listen"`
	DataDir   string `mapstructure:"data_dir"`
	LogLevel  string `mapstructure:"log_level"`
	ServerURL string `mapstructure:"server_url"`

	Store   StoreConfig   `mapstructure:"store"`
	Primary PrimaryConfig `mapstructure:"primary"`
	Capture CaptureConfig `mapstructure:"capture"`
	Events  EventsConfig  `mapstructure:"events"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig selects the preferences backend behind the shared store.
type StoreConfig struct {
	Backend             string `mapstructure:"backend"` // memory, file, badger, pebble, sqlite, firestore
	Namespace           string `mapstructure:"namespace"`
	FirestoreProject    string `mapstructure:"firestore_project"`
	FirestoreCollection string `mapstructure:"firestore_collection"`
}

// PrimaryConfig controls the primary entry point's auto-return.
type PrimaryConfig struct {
	AutoReturn  bool          `mapstructure:"auto_return"`
	ReturnDelay time.Duration `mapstructure:"return_delay"`
}

// CaptureConfig picks the default capture variant.
type CaptureConfig struct {
	Variant string `mapstructure:"variant"` // quick, receiver
}

// EventsConfig enables Pub/Sub share events.
type EventsConfig struct {
	Enable    bool   `mapstructure:"enable"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool `mapstructure:"enable"`
}

// Backends lists the accepted store.backend values.
var Backends = []string{"memory", "file", "badger", "pebble", "sqlite", "firestore"}

// Load loads configuration from defaults, flags, an optional config file and
// the environment.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if flag := cmd.Flags().Lookup("config"); flag != nil && flag.Value.String() != "" {
		v.SetConfigFile(flag.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8090")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_level", "info")
	v.SetDefault("server_url", "http://localhost:8090")

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.namespace", "shared_content")
	v.SetDefault("store.firestore_project", "")
	v.SetDefault("store.firestore_collection", "preferences")

	v.SetDefault("primary.auto_return", true)
	v.SetDefault("primary.return_delay", 5*time.Second)

	v.SetDefault("capture.variant", "quick")

	v.SetDefault("events.enable", false)
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "share-events")

	v.SetDefault("metrics.enable", true)
}

// bindFlags binds whichever of the known flags the command defines.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"listen":      "listen",
		"data-dir":    "data_dir",
		"log-level":   "log_level",
		"server":      "server_url",
		"backend":     "store.backend",
		"namespace":   "store.namespace",
		"auto-return": "primary.auto_return",
		"variant":     "capture.variant",
		"events":      "events.enable",
		"metrics":     "metrics.enable",
	}

	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func validate(cfg *Config) error {
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}

	switch cfg.Store.Backend {
	case "memory":
	case "file", "badger", "pebble", "sqlite":
		if cfg.DataDir == "" {
			return fmt.Errorf("data_dir is required for the %s backend: specify via --data-dir flag, config file, or %s_DATA_DIR environment variable", cfg.Store.Backend, EnvPrefix)
		}
	case "firestore":
		if cfg.Store.FirestoreProject == "" {
			return fmt.Errorf("store.firestore_project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q, expected one of %s", cfg.Store.Backend, strings.Join(Backends, ", "))
	}
	if cfg.Store.Namespace == "" {
		return fmt.Errorf("store.namespace must not be empty")
	}

	if cfg.Primary.ReturnDelay <= 0 {
		return fmt.Errorf("primary.return_delay must be positive, got %s", cfg.Primary.ReturnDelay)
	}

	switch cfg.Capture.Variant {
	case "quick", "receiver":
	default:
		return fmt.Errorf("unknown capture.variant %q, expected quick or receiver", cfg.Capture.Variant)
	}

	if cfg.Events.Enable {
		if cfg.Events.ProjectID == "" {
			cfg.Events.ProjectID = cfg.Store.FirestoreProject
		}
		if cfg.Events.ProjectID == "" {
			return fmt.Errorf("events.project_id is required when events are enabled")
		}
		if cfg.Events.Topic == "" {
			return fmt.Errorf("events.topic must not be empty when events are enabled")
		}
	}
	return nil
}

// Level returns the parsed log level; Load has already validated it.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
