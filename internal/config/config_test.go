package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/panowalk/internal/region"
	"github.com/sells-group/panowalk/internal/resilience"
	"github.com/sells-group/panowalk/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://maps.googleapis.com", cfg.Google.DirectionsBaseURL)
	assert.Equal(t, "https://maps.googleapis.com", cfg.Google.StreetViewBaseURL)
	assert.Equal(t, "walking", cfg.Google.TravelMode)
	assert.InDelta(t, 10.0, cfg.Google.DirectionsRPS, 0.001)
	assert.Equal(t, 30*time.Second, cfg.Google.Timeout())
	assert.Equal(t, []float64{0.25}, cfg.Ring.RadiiMiles)
	assert.Equal(t, 90, cfg.Ring.Bearings)
	assert.InDelta(t, 4.0, cfg.Ring.StepDegrees, 0.001)
	assert.Equal(t, "keep", cfg.Imagery.MissingPolicy)
	assert.Equal(t, 5000, cfg.Imagery.RetryIntervalMs)
	assert.Equal(t, resilience.UnlimitedAttempts, cfg.Imagery.MaxAttempts)
	assert.Equal(t, "1200x800", cfg.Imagery.ImageSize)
	assert.Equal(t, 80, cfg.Imagery.FOV)
	assert.Equal(t, 3, cfg.Routing.MaxAttempts)
	assert.Equal(t, "csv", cfg.Store.Driver)
	assert.Equal(t, ".", cfg.Store.DataDir)
	assert.Equal(t, "images", cfg.Download.ImagesDir)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: file:panowalk.db
log:
  level: debug
  format: console
ring:
  radii_miles: [0.25, 0.5]
  bearings: 45
  step_degrees: 8
imagery:
  missing_policy: skip
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "file:panowalk.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []float64{0.25, 0.5}, cfg.Ring.RadiiMiles)
	assert.Equal(t, 45, cfg.Ring.Bearings)
	assert.Equal(t, "skip", cfg.Imagery.MissingPolicy)
	// Defaults still apply for unset values
	assert.Equal(t, 80, cfg.Imagery.FOV)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PANOWALK_STORE_DRIVER", "postgres")
	t.Setenv("PANOWALK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("PANOWALK_SERVER_PORT", "3000")
	t.Setenv("PANOWALK_GOOGLE_API_KEY", "maps-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "maps-key", cfg.Google.APIKey)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Google.APIKey = "maps-key"
	cfg.Ring.RadiiMiles = []float64{0.25}
	cfg.Ring.Bearings = 90
	cfg.Ring.StepDegrees = 4
	cfg.Imagery.MissingPolicy = "keep"
	cfg.Store.Driver = "csv"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRegion_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("region"))
	assert.NoError(t, cfg.Validate("batch"))
	assert.NoError(t, cfg.Validate("segments"))
	assert.NoError(t, cfg.Validate("download"))
}

func TestValidateRegion_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Google.APIKey = ""
	cfg.Ring.RadiiMiles = nil
	cfg.Ring.Bearings = 0
	cfg.Imagery.MissingPolicy = "drop"

	err := cfg.Validate("region")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "google.api_key is required")
	assert.Contains(t, err.Error(), "ring.radii_miles must not be empty")
	assert.Contains(t, err.Error(), "ring.bearings must be >= 1")
	assert.Contains(t, err.Error(), "imagery.missing_policy")
}

func TestValidateRing_Bounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Ring.RadiiMiles = []float64{0.25, -1}
	err := cfg.Validate("segments")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ring.radii_miles values must be > 0")

	cfg.Ring.RadiiMiles = []float64{0.25}
	cfg.Ring.StepDegrees = 0
	err = cfg.Validate("segments")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ring.step_degrees")

	cfg.Ring.StepDegrees = 4
	assert.NoError(t, cfg.Validate("segments"))
}

func TestValidateStore_DatabaseURL(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "postgres"
	err := cfg.Validate("region")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required for driver postgres")

	cfg.Store.DatabaseURL = "postgres://localhost/panowalk"
	assert.NoError(t, cfg.Validate("region"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be csv, sqlite or postgres")
}

func TestValidateSegments_NoStoreNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	assert.NoError(t, cfg.Validate("segments"))
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Google.APIKey = ""
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestRegionConfig(t *testing.T) {
	cfg := validDefaults()
	cfg.Imagery.MissingPolicy = "skip"

	rc, err := cfg.RegionConfig()
	require.NoError(t, err)
	assert.Equal(t, region.Config{
		RadiiMiles:    []float64{0.25},
		Bearings:      90,
		StepDegrees:   4,
		MissingPolicy: region.MissingSkip,
	}, rc)

	cfg.Imagery.MissingPolicy = "drop"
	_, err = cfg.RegionConfig()
	assert.Error(t, err)
}

func TestImageryRetry(t *testing.T) {
	rc := ImageryConfig{RetryIntervalMs: 5000, MaxAttempts: resilience.UnlimitedAttempts}.Retry()
	assert.Equal(t, resilience.UnlimitedAttempts, rc.MaxAttempts)
	assert.Equal(t, 5*time.Second, rc.InitialBackoff)
	assert.Equal(t, 5*time.Second, rc.MaxBackoff)
	assert.Zero(t, rc.JitterFraction)
}

func TestRoutingRetry(t *testing.T) {
	rc := RoutingConfig{MaxAttempts: 4, InitialBackoffMs: 250}.Retry()
	assert.Equal(t, 4, rc.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, rc.InitialBackoff)
	assert.InDelta(t, 2.0, rc.Multiplier, 0.001)
}

func TestStoreOptions(t *testing.T) {
	opts := StoreConfig{
		Driver:      "sqlite",
		DataDir:     "out",
		DatabaseURL: "file:x.db",
		Pool:        store.PoolConfig{MaxConns: 8},
	}.Options()
	assert.Equal(t, "sqlite", opts.Driver)
	assert.Equal(t, "out", opts.DataDir)
	assert.Equal(t, "file:x.db", opts.DatabaseURL)
	require.NotNil(t, opts.Pool)
	assert.Equal(t, int32(8), opts.Pool.MaxConns)
}
