package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgxfeed/internal/model"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CATALOG_DRIVER", "sqlite")
	t.Setenv("FEED_HOLIDAYS", "2025-12-25, 2026-01-01,")
	t.Setenv("FEED_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("PIPELINE_STORE_UNCHANGED_COPY", "true")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Storage.MinIO.UseSSL)
	assert.Equal(t, []string{"2025-12-25", "2026-01-01"}, cfg.Feed.Holidays)
	assert.Equal(t, 0.5, cfg.Feed.RequestsPerSecond)
	assert.True(t, cfg.Pipeline.StoreUnchangedCopy)
	assert.True(t, cfg.Pipeline.ExtractArchives)
	assert.Equal(t, "0 7 * * *", cfg.Schedule.Cron)
	assert.Equal(t, time.Minute, cfg.Feed.FetchTimeout())
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Singapore"}
	assert.Equal(t, "Asia/Singapore", cfg.Location().String())

	cfg.Timezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestLoadSpecs(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		specs, err := LoadSpecs("")
		require.NoError(t, err)
		require.Len(t, specs, 4)
		assert.NoError(t, ValidateSpecs(specs))
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "specs.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
files:
  - name: TC
    category: raw
    kind: flat
    remote:
      pattern: "TC_{date}.txt"
      date_format: "20060102"
      business_day_offset: 1
  - name: TC_structure
    category: reference
    kind: flat
    remote:
      pattern: TC_structure.dat
`), 0o644))

		specs, err := LoadSpecs(path)
		require.NoError(t, err)
		require.Len(t, specs, 2)
		assert.Equal(t, model.CategoryRaw, specs[0].Category)
		assert.Equal(t, 1, specs[0].Remote.BusinessDayOffset)
		assert.True(t, specs[1].IsReference())
	})

	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "specs.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[[files]]
name = "WEBPXTICK_DT"
category = "raw"
kind = "archive"

[files.remote]
pattern = "WEBPXTICK_DT-{date}.zip"
date_format = "20060102"
business_day_offset = 1
`), 0o644))

		specs, err := LoadSpecs(path)
		require.NoError(t, err)
		require.Len(t, specs, 1)
		assert.True(t, specs[0].IsArchive())
		assert.Equal(t, "WEBPXTICK_DT-{date}.zip", specs[0].Remote.Pattern)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "specs.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
		_, err := LoadSpecs(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSpecs(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateSpecs(t *testing.T) {
	valid := model.FileSpec{Name: "TC", Category: model.CategoryRaw, Kind: model.KindFlat, Remote: model.NamingRule{Pattern: "TC.txt"}}

	tests := []struct {
		name  string
		specs []model.FileSpec
	}{
		{name: "empty", specs: nil},
		{name: "duplicate", specs: []model.FileSpec{valid, valid}},
		{name: "no name", specs: []model.FileSpec{{Category: model.CategoryRaw, Kind: model.KindFlat, Remote: valid.Remote}}},
		{name: "slash in name", specs: []model.FileSpec{{Name: "a/b", Category: model.CategoryRaw, Kind: model.KindFlat, Remote: valid.Remote}}},
		{name: "bad category", specs: []model.FileSpec{{Name: "x", Category: "daily", Kind: model.KindFlat, Remote: valid.Remote}}},
		{name: "bad kind", specs: []model.FileSpec{{Name: "x", Category: model.CategoryRaw, Kind: "tar", Remote: valid.Remote}}},
		{name: "no pattern", specs: []model.FileSpec{{Name: "x", Category: model.CategoryRaw, Kind: model.KindFlat}}},
		{name: "date without format", specs: []model.FileSpec{{Name: "x", Category: model.CategoryRaw, Kind: model.KindFlat, Remote: model.NamingRule{Pattern: "x_{date}"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateSpecs(tt.specs), ErrInvalidSpec)
		})
	}

	assert.NoError(t, ValidateSpecs([]model.FileSpec{valid}))
}
