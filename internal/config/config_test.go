package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/forager/internal/config"
	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FORAGER_PLACES_KEY", "testAPIKey")
	t.Setenv("DB_HOST", "testHost")
	t.Setenv("DB_PASSWORD", "adminpass")
}

func Test_LoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.Interval)
	assert.Equal(t, "rest", cfg.Provider.Type)
	assert.Equal(t, "testAPIKey", cfg.Provider.APIKey)
	assert.Equal(t, 10, cfg.Provider.RateLimit)
	assert.Equal(t, config.DefaultTargets(), cfg.Search.Targets)
	assert.Equal(t, []string{"vegan", "gluten free"}, cfg.Search.Keywords)
	assert.Equal(t, uint(25000), cfg.Search.Radius)
	assert.Equal(t, "en", cfg.Search.Language)
	assert.Equal(t, 2*time.Second, cfg.Search.PageDelay)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 50, cfg.Loader.BatchSize)
	assert.Equal(t, "places", cfg.Loader.Table)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Snapshot.Endpoint)
	assert.Empty(t, cfg.Metrics.Pushgateway)
}

func Test_LoadFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("FORAGER_ENV", "local")
	t.Setenv("FORAGER_INTERVAL", "10m")
	t.Setenv("FORAGER_PROVIDER", "google")
	t.Setenv("FORAGER_KEYWORDS", "vegan, halal ,")
	t.Setenv("FORAGER_BATCH_SIZE", "25")
	t.Setenv("DB_PORT", "12345")
	t.Setenv("DB_USERNAME", "admin")
	t.Setenv("DB_NAME", "testName")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, "google", cfg.Provider.Type)
	assert.Equal(t, []string{"vegan", "halal"}, cfg.Search.Keywords)
	assert.Equal(t, 25, cfg.Loader.BatchSize)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "testName", cfg.Database.Name)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "minio:9000", cfg.Snapshot.Endpoint)
	assert.True(t, cfg.Snapshot.UseSSL)
}

func Test_LoadFromFile(t *testing.T) {
	defer filet.CleanUp(t)
	setRequired(t)
	t.Setenv("FORAGER_LANGUAGE", "ja")

	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "forager.yaml")
	filet.File(t, path, `
search:
  language: en
  keywords:
    - vegan
  targets:
    - city: CityA
      lat: 10.5
      lng: 20.25
loader:
  table: restaurants
`)

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, []models.Target{{City: "CityA", Latitude: 10.5, Longitude: 20.25}}, cfg.Search.Targets)
	assert.Equal(t, []string{"vegan"}, cfg.Search.Keywords)
	assert.Equal(t, "restaurants", cfg.Loader.Table)
	assert.Equal(t, "ja", cfg.Search.Language, "environment overrides the file")
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("FORAGER_PLACES_KEY", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PASSWORD", "")

	cfg, err := config.Load("")

	require.Nil(t, cfg)
	require.ErrorIs(t, err, config.ErrMissingSetting)
	assert.ErrorContains(t, err, "FORAGER_PLACES_KEY")
	assert.ErrorContains(t, err, "DB_HOST")
	assert.ErrorContains(t, err, "DB_PASSWORD")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("interval", func(t *testing.T) {
		setRequired(t)
		t.Setenv("FORAGER_INTERVAL", "error_value")

		_, err := config.Load("")

		require.ErrorContains(t, err, "failed to decode configuration")
	})

	t.Run("batch size", func(t *testing.T) {
		setRequired(t)
		t.Setenv("FORAGER_BATCH_SIZE", "0")

		_, err := config.Load("")

		require.ErrorContains(t, err, "batch size must be positive")
	})

	t.Run("malformed .env file", func(t *testing.T) {
		defer filet.CleanUp(t)
		setRequired(t)
		dir := filet.TmpDir(t, "")
		filet.File(t, filepath.Join(dir, ".env"), "BAD-KEY=1\n")
		t.Chdir(dir)

		_, err := config.Load("")

		require.ErrorContains(t, err, "failed to load .env file")
	})

	t.Run("absent .env file is ignored", func(t *testing.T) {
		setRequired(t)
		t.Chdir(t.TempDir())

		cfg, err := config.Load("")

		require.NoError(t, err)
		assert.Equal(t, "testHost", cfg.Database.Host)
	})

	t.Run("missing config file", func(t *testing.T) {
		setRequired(t)

		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

		require.ErrorContains(t, err, "failed to read config file")
	})
}
