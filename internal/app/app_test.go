package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgxfeed/internal/config"
	"sgxfeed/internal/logging"
	"sgxfeed/internal/model"
	"sgxfeed/internal/storage"
)

func testConfig(t *testing.T, upstream string) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		Timezone: "UTC",
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
		},
		Storage: config.StorageConfig{Backend: storage.BackendMemory, PresignExpirySec: 60},
		Feed: config.FeedConfig{
			FileURLTemplate: upstream + "/{filename}",
			UserAgent:       "sgxfeed-test",
			FetchTimeoutSec: 5,
			BusinessDateLag: 1,
		},
		Pipeline: config.PipelineConfig{FetchConcurrency: 2, ExtractArchives: true},
	}
}

func TestBuild_RunAgainstUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/TC_structure.dat":
			w.Write([]byte("col1,col2\n"))
		case "/TC_20250918.txt":
			w.Write([]byte("trade\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	a, err := Build(ctx, testConfig(t, srv.URL), logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Specs, 4)

	report, err := a.Ingest.Run(ctx, time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, report.Success)

	counts := report.Counts()
	assert.Equal(t, 1, counts[model.OutcomeStoredNewVersion])
	assert.Equal(t, 1, counts[model.OutcomeStoredRaw])
	assert.Equal(t, 2, counts[model.OutcomeSkippedUnavailable])

	cur, err := a.Catalog.Current(ctx, "TC_structure")
	require.NoError(t, err)
	assert.Equal(t, 1, cur.VersionNumber)
	assert.Equal(t, "derivative_reference/TC_structure/v1/TC_structure.dat", cur.StoragePath)

	objs, err := a.Catalog.Objects(ctx, storage.RawPrefix)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "raw/2025-09-17/TC_20250918.txt", objs[0].Key)

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sgxfeed_runs_total")
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("bad holiday", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Feed.Holidays = []string{"not-a-date"}
		_, err := Build(ctx, cfg, logging.Discard())
		assert.ErrorContains(t, err, "holidays")
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Database.Driver = "oracle"
		_, err := Build(ctx, cfg, logging.Discard())
		assert.ErrorContains(t, err, "connect catalog")
	})

	t.Run("unknown storage backend", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Storage.Backend = "floppy"
		_, err := Build(ctx, cfg, logging.Discard())
		assert.ErrorContains(t, err, "connect object store")
	})

	t.Run("missing specs file", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Feed.SpecsFile = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := Build(ctx, cfg, logging.Discard())
		assert.Error(t, err)
	})
}

func TestParseHolidays(t *testing.T) {
	days, err := ParseHolidays([]string{"2025-12-25", "01/01/2026"})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), days[1])

	_, err = ParseHolidays([]string{"2025-12-25", "nope"})
	assert.Error(t, err)
}
