package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sgxfeed/internal/logging"
	"sgxfeed/internal/model"
	"sgxfeed/internal/service"
	serviceMocks "sgxfeed/internal/service/mocks"
	"sgxfeed/internal/storage"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusRoot(t *testing.T) {
	app := fiber.New()
	app.Get("/", StatusRoot())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "running", body["status"])
}

func TestTriggerRun(t *testing.T) {
	sept17 := time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC)

	stored := &model.RunReport{
		RunID:        "r1",
		BusinessDate: "2025-09-17",
		Success:      true,
		Files:        []model.FileResult{{FileName: "TC_structure", Outcome: model.OutcomeStoredNewVersion, Version: 1}},
	}

	t.Run("explicit date", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockIngestionService)
		mockSvc.On("Run", mock.Anything, sept17).Return(stored, nil).Once()

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs?date=2025-09-17", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report model.RunReport
		json.NewDecoder(resp.Body).Decode(&report)
		assert.Equal(t, "r1", report.RunID)
		require.Len(t, report.Files, 1)
		assert.Equal(t, model.OutcomeStoredNewVersion, report.Files[0].Outcome)
		mockSvc.AssertExpectations(t)
	})

	t.Run("alternate date format", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockIngestionService)
		mockSvc.On("Run", mock.Anything, sept17).Return(stored, nil).Once()

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs?date=17/09/2025", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("default date", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockIngestionService)
		mockSvc.On("CurrentBusinessDate").Return(sept17).Once()
		mockSvc.On("Run", mock.Anything, sept17).Return(stored, nil).Once()

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid date", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockIngestionService)

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs?date=2025-13-45", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_DATE", body.Error.Code)
		assert.Equal(t, "date must be YYYY-MM-DD, DD/MM/YYYY or DD Mon YYYY", body.Error.Message)
		mockSvc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("index date format", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockIngestionService)
		mockSvc.On("Run", mock.Anything, sept17).Return(&model.RunReport{RunID: "r4", Success: true}, nil).Once()

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs?date=17%20Sep%202025", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("run in progress", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockIngestionService)
		mockSvc.On("Run", mock.Anything, sept17).Return(nil, service.ErrRunInProgress).Once()

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs?date=2025-09-17", nil))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "RUN_IN_PROGRESS", body.Error.Code)
	})

	t.Run("every file failed", func(t *testing.T) {
		failed := &model.RunReport{
			RunID: "r2",
			Files: []model.FileResult{{FileName: "TC", Outcome: model.OutcomeFailed, ErrorKind: model.ErrorKindTransport}},
		}
		mockSvc := new(serviceMocks.MockIngestionService)
		mockSvc.On("Run", mock.Anything, sept17).Return(failed, nil).Once()

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs?date=2025-09-17", nil))
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var report model.RunReport
		json.NewDecoder(resp.Body).Decode(&report)
		assert.Equal(t, "r2", report.RunID)
	})

	t.Run("nothing published", func(t *testing.T) {
		holiday := &model.RunReport{
			RunID: "r3",
			Files: []model.FileResult{{FileName: "TC", Outcome: model.OutcomeSkippedUnavailable}},
		}
		mockSvc := new(serviceMocks.MockIngestionService)
		mockSvc.On("Run", mock.Anything, sept17).Return(holiday, nil).Once()

		app := fiber.New()
		app.Post("/runs", TriggerRun(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/runs?date=2025-09-17", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report model.RunReport
		json.NewDecoder(resp.Body).Decode(&report)
		assert.False(t, report.Success)
		assert.Empty(t, report.Paths)
	})
}

func TestListFiles(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockCatalogService)
		mockSvc.On("Files", mock.Anything).Return([]service.FileStatus{
			{Spec: model.FileSpec{Name: "TC", Category: model.CategoryRaw}},
			{Spec: model.FileSpec{Name: "TC_structure", Category: model.CategoryReference}, Current: &model.VersionRecord{VersionNumber: 2}},
		}, nil).Once()

		app := fiber.New()
		app.Get("/files", ListFiles(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data  []service.FileStatus `json:"data"`
			Total int                  `json:"total"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, 2, body.Total)
		require.Len(t, body.Data, 2)
		require.NotNil(t, body.Data[1].Current)
		assert.Equal(t, 2, body.Data[1].Current.VersionNumber)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockCatalogService)
		mockSvc.On("Files", mock.Anything).Return(nil, errors.New("db down")).Once()

		app := fiber.New()
		app.Get("/files", ListFiles(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestListVersions(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/files/:name/versions", ListVersions(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("History", mock.Anything, "TC_structure").Return([]model.VersionRecord{
			{FileName: "TC_structure", VersionNumber: 2, IsCurrent: true},
			{FileName: "TC_structure", VersionNumber: 1},
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/TC_structure/versions", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data  []model.VersionRecord `json:"data"`
			Total int                   `json:"total"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, 2, body.Total)
		assert.True(t, body.Data[0].IsCurrent)
	})

	t.Run("unknown file", func(t *testing.T) {
		mockSvc.On("History", mock.Anything, "nope").Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/nope/versions", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("History", mock.Anything, "TC").Return(nil, errors.New("db down")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/TC/versions", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestCurrentVersion(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/files/:name/versions/current", CurrentVersion(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Current", mock.Anything, "TC_structure").Return(&model.VersionRecord{
			FileName: "TC_structure", VersionNumber: 3, ContentDigest: "abc", IsCurrent: true,
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/TC_structure/versions/current", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var v model.VersionRecord
		json.NewDecoder(resp.Body).Decode(&v)
		assert.Equal(t, 3, v.VersionNumber)
		assert.Equal(t, "abc", v.ContentDigest)
	})

	t.Run("no version yet", func(t *testing.T) {
		mockSvc.On("Current", mock.Anything, "TC").Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/TC/versions/current", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDownloadVersion(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/files/:name/versions/:version/download", DownloadVersion(mockSvc))

	t.Run("redirects to presigned url", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, "TC_structure", 2).Return("https://store.example/signed", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/TC_structure/versions/2/download", nil))
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Equal(t, "https://store.example/signed", resp.Header.Get("Location"))
	})

	t.Run("invalid version", func(t *testing.T) {
		for _, v := range []string{"abc", "0", "-1"} {
			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/TC_structure/versions/"+v+"/download", nil))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, v)

			var body errorPayload
			json.NewDecoder(resp.Body).Decode(&body)
			assert.Equal(t, "INVALID_VERSION", body.Error.Code)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, "TC_structure", 9).Return("", service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/TC_structure/versions/9/download", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestListObjects(t *testing.T) {
	mockSvc := new(serviceMocks.MockCatalogService)
	app := fiber.New()
	app.Get("/objects", ListObjects(mockSvc))

	t.Run("with prefix", func(t *testing.T) {
		mockSvc.On("Objects", mock.Anything, "raw/2025-09-17/").Return([]storage.ObjectInfo{
			{Key: "raw/2025-09-17/TC_20250918.txt", Size: 10},
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/objects?prefix=raw/2025-09-17/", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data  []storage.ObjectInfo `json:"data"`
			Total int                  `json:"total"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, 1, body.Total)
		assert.Equal(t, "raw/2025-09-17/TC_20250918.txt", body.Data[0].Key)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Objects", mock.Anything, "").Return(nil, errors.New("bucket gone")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/objects", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestRouting(t *testing.T) {
	var logs bytes.Buffer
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logging.New(&logs, time.UTC, slog.LevelInfo)),
	})

	RegisterRoutes(app, nil, new(serviceMocks.MockIngestionService), new(serviceMocks.MockCatalogService))
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("secret connection string")
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("internal errors are logged, not returned", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.NotContains(t, string(body), "secret")
		assert.Contains(t, string(body), "INTERNAL_ERROR")
		assert.Contains(t, logs.String(), "secret connection string")
	})
}
