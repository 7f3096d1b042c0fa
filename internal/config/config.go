package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/panowalk/internal/panorama"
	"github.com/sells-group/panowalk/internal/region"
	"github.com/sells-group/panowalk/internal/resilience"
	"github.com/sells-group/panowalk/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Google   GoogleConfig   `yaml:"google" mapstructure:"google"`
	Ring     RingConfig     `yaml:"ring" mapstructure:"ring"`
	Imagery  ImageryConfig  `yaml:"imagery" mapstructure:"imagery"`
	Routing  RoutingConfig  `yaml:"routing" mapstructure:"routing"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Download DownloadConfig `yaml:"download" mapstructure:"download"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// GoogleConfig holds the Maps Platform key and per-API endpoints.
type GoogleConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	DirectionsBaseURL string  `yaml:"directions_base_url" mapstructure:"directions_base_url"`
	StreetViewBaseURL string  `yaml:"streetview_base_url" mapstructure:"streetview_base_url"`
	TravelMode        string  `yaml:"travel_mode" mapstructure:"travel_mode"`
	DirectionsRPS     float64 `yaml:"directions_rps" mapstructure:"directions_rps"`
	StreetViewRPS     float64 `yaml:"streetview_rps" mapstructure:"streetview_rps"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-request HTTP timeout.
func (g GoogleConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// RingConfig controls the destination rings around a center.
type RingConfig struct {
	RadiiMiles  []float64 `yaml:"radii_miles" mapstructure:"radii_miles"`
	Bearings    int       `yaml:"bearings" mapstructure:"bearings"`
	StepDegrees float64   `yaml:"step_degrees" mapstructure:"step_degrees"`
}

// ImageryConfig controls Street View lookups and image fetches.
type ImageryConfig struct {
	MissingPolicy   string `yaml:"missing_policy" mapstructure:"missing_policy"`
	RetryIntervalMs int    `yaml:"retry_interval_ms" mapstructure:"retry_interval_ms"`
	MaxAttempts     int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	ImageSize       string `yaml:"image_size" mapstructure:"image_size"`
	FOV             int    `yaml:"fov" mapstructure:"fov"`
}

// Retry returns the fixed-interval policy for metadata and image calls.
func (i ImageryConfig) Retry() resilience.RetryConfig {
	return resilience.FixedRetryConfig(time.Duration(i.RetryIntervalMs)*time.Millisecond, i.MaxAttempts)
}

// RoutingConfig controls Directions retries.
type RoutingConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// Retry returns the exponential policy for route requests.
func (r RoutingConfig) Retry() resilience.RetryConfig {
	return resilience.FromRetryConfig(r.MaxAttempts, r.InitialBackoffMs, 0, 0, -1)
}

// StoreConfig configures the record sink.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DataDir     string           `yaml:"data_dir" mapstructure:"data_dir"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// Options converts the section to store.Options.
func (s StoreConfig) Options() store.Options {
	pool := s.Pool
	return store.Options{Driver: s.Driver, DataDir: s.DataDir, DatabaseURL: s.DatabaseURL, Pool: &pool}
}

// DownloadConfig configures the image download command.
type DownloadConfig struct {
	ImagesDir string `yaml:"images_dir" mapstructure:"images_dir"`
}

// ServerConfig configures the results API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// Load reads configuration from config.yaml and PANOWALK_ environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PANOWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.directions_base_url", "https://maps.googleapis.com")
	v.SetDefault("google.streetview_base_url", "https://maps.googleapis.com")
	v.SetDefault("google.travel_mode", "walking")
	v.SetDefault("google.directions_rps", 10.0)
	v.SetDefault("google.streetview_rps", 10.0)
	v.SetDefault("google.timeout_secs", 30)
	v.SetDefault("ring.radii_miles", []float64{0.25})
	v.SetDefault("ring.bearings", 90)
	v.SetDefault("ring.step_degrees", 4.0)
	v.SetDefault("imagery.missing_policy", "keep")
	v.SetDefault("imagery.retry_interval_ms", int(panorama.DefaultRetryInterval/time.Millisecond))
	v.SetDefault("imagery.max_attempts", resilience.UnlimitedAttempts)
	v.SetDefault("imagery.image_size", "1200x800")
	v.SetDefault("imagery.fov", 80)
	v.SetDefault("routing.max_attempts", 3)
	v.SetDefault("routing.initial_backoff_ms", 500)
	v.SetDefault("store.driver", store.DriverCSV)
	v.SetDefault("store.data_dir", ".")
	v.SetDefault("store.database_url", "")
	v.SetDefault("download.images_dir", "images")
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// RegionConfig converts the ring and imagery sections to a region.Config.
func (c *Config) RegionConfig() (region.Config, error) {
	policy, err := region.ParseMissingPolicy(c.Imagery.MissingPolicy)
	if err != nil {
		return region.Config{}, eris.Wrap(err, "config: imagery.missing_policy")
	}
	return region.Config{
		RadiiMiles:    c.Ring.RadiiMiles,
		Bearings:      c.Ring.Bearings,
		StepDegrees:   c.Ring.StepDegrees,
		MissingPolicy: policy,
	}, nil
}

// Validate checks the keys a command needs. Mode is one of region, batch,
// segments, download or serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	needsGoogle := false
	needsRing := false
	needsStore := false
	switch mode {
	case "region", "batch":
		needsGoogle, needsRing, needsStore = true, true, true
	case "segments":
		needsGoogle, needsRing = true, true
	case "download":
		needsGoogle, needsStore = true, true
	case "serve":
		needsStore = true
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needsGoogle && c.Google.APIKey == "" {
		errs = append(errs, "google.api_key is required")
	}

	if needsRing {
		if len(c.Ring.RadiiMiles) == 0 {
			errs = append(errs, "ring.radii_miles must not be empty")
		}
		for _, r := range c.Ring.RadiiMiles {
			if r <= 0 {
				errs = append(errs, "ring.radii_miles values must be > 0")
				break
			}
		}
		if c.Ring.Bearings < 1 {
			errs = append(errs, "ring.bearings must be >= 1")
		}
		if c.Ring.StepDegrees <= 0 || c.Ring.StepDegrees > 360 {
			errs = append(errs, "ring.step_degrees must be between 0 and 360")
		}
		if _, err := region.ParseMissingPolicy(c.Imagery.MissingPolicy); err != nil {
			errs = append(errs, "imagery.missing_policy must be keep or skip")
		}
	}

	if needsStore {
		switch c.Store.Driver {
		case store.DriverCSV, "":
		case store.DriverSQLite, store.DriverPostgres:
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for driver "+c.Store.Driver)
			}
		default:
			errs = append(errs, "store.driver must be csv, sqlite or postgres")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
