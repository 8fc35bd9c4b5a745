package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/confirmation"
	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/metrics"
	"github.com/preventive-care-server/internal/service"
)

var testNow = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

// fakeConfigManager serves a fixed configuration
type fakeConfigManager struct {
	config *domain.Config
}

func (f *fakeConfigManager) GetConfig() *domain.Config                 { return f.config }
func (f *fakeConfigManager) GetDatabaseConfig() *domain.DatabaseConfig { return &f.config.Database }
func (f *fakeConfigManager) GetServerConfig() *domain.ServerConfig     { return &f.config.Server }
func (f *fakeConfigManager) Reload() error                             { return nil }
func (f *fakeConfigManager) Validate() error                           { return nil }
func (f *fakeConfigManager) GetDatabaseConnectionString() string       { return "" }
func (f *fakeConfigManager) IsProduction() bool                        { return false }
func (f *fakeConfigManager) IsDevelopment() bool                       { return true }

func testConfig() *domain.Config {
	return &domain.Config{
		Environment: "test",
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"https://care.example.org"},
		},
		Logging: domain.LoggingConfig{Level: "error"},
	}
}

type testEnv struct {
	server *Server
	store  confirmation.Store
}

func setupTestServer(t *testing.T, withStore bool, checks map[string]HealthCheck) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing

	opts := service.ServiceOptions{
		Metrics: metrics.New(),
		Clock:   func() time.Time { return testNow },
	}

	env := &testEnv{}
	if withStore {
		store, err := confirmation.NewSQLiteStore(filepath.Join(t.TempDir(), "confirmations.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		opts.Confirmations = store
		env.store = store
	}

	svc, err := service.NewRecommendationService(logger, catalog.Default(), opts)
	require.NoError(t, err)

	env.server = NewServer(&fakeConfigManager{config: testConfig()}, Dependencies{
		Service: svc,
		Bridge:  service.NewSchedulingBridge(map[string]string{"cancer": "loc-oncology"}),
		Metrics: opts.Metrics,
		Logger:  logger,
		Checks:  checks,
	})
	env.server.clock = func() time.Time { return testNow }
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func femaleAnswers(dob string) *domain.RawAnswers {
	return &domain.RawAnswers{
		DateOfBirth:      dob,
		SexAtBirth:       "female",
		SmokingStatus:    "never",
		AlcoholFrequency: "never",
		SexuallyActive:   "no",
	}
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t, false, map[string]HealthCheck{
		"cache": func(ctx context.Context) error { return nil },
	})

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, catalog.DefaultVersion, body["catalog_version"])
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestHealth_Degraded(t *testing.T) {
	env := setupTestServer(t, false, map[string]HealthCheck{
		"database": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, w, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Checks["database"])
}

func TestRecommendations(t *testing.T) {
	env := setupTestServer(t, false, nil)

	w := env.do(t, http.MethodPost, "/api/v1/recommendations", RecommendationRequest{
		Profile: femaleAnswers("1975-01-15"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body RecommendationResponse
	decode(t, w, &body)
	require.NotNil(t, body.Checklist)
	assert.Equal(t, catalog.DefaultVersion, body.CatalogVersion)
	assert.False(t, body.Cached)

	rec, ok := body.Find("breast-cancer-screening")
	require.True(t, ok)
	assert.Equal(t, domain.STATUS_UNKNOWN, rec.Status)

	_, ok = body.Find("prostate-cancer-screening")
	assert.False(t, ok)
}

func TestRecommendations_AsOf(t *testing.T) {
	env := setupTestServer(t, false, nil)

	// 44 on the given date, so colorectal screening does not apply yet
	w := env.do(t, http.MethodPost, "/api/v1/recommendations", RecommendationRequest{
		Profile: femaleAnswers("1980-06-02"),
		AsOf:    "2025-06-01",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body RecommendationResponse
	decode(t, w, &body)
	_, ok := body.Find("colorectal-cancer-screening")
	assert.False(t, ok)
}

func TestRecommendations_Errors(t *testing.T) {
	env := setupTestServer(t, false, nil)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"Malformed_JSON", "{not json", http.StatusBadRequest, domain.ErrCodeInvalidInput},
		{"Missing_Profile", RecommendationRequest{}, http.StatusBadRequest, domain.ErrCodeValidation},
		{"Missing_DOB", RecommendationRequest{Profile: &domain.RawAnswers{SexAtBirth: "male"}}, http.StatusBadRequest, domain.ErrCodeValidation},
		{"Bad_AsOf", RecommendationRequest{Profile: femaleAnswers("1975-01-15"), AsOf: "06/01/2025"}, http.StatusBadRequest, domain.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/recommendations", tt.body)
			assert.Equal(t, tt.status, w.Code)

			var apiErr domain.APIError
			decode(t, w, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, w.Header().Get("X-Correlation-ID"), apiErr.RequestID)
		})
	}
}

func TestExplain(t *testing.T) {
	env := setupTestServer(t, false, nil)

	w := env.do(t, http.MethodPost, "/api/v1/recommendations/explain", RecommendationRequest{
		Profile: femaleAnswers("1975-01-15"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body ExplainResponse
	decode(t, w, &body)
	assert.Equal(t, catalog.DefaultVersion, body.CatalogVersion)
	assert.Len(t, body.Decisions, len(catalog.Default().Rules))

	var prostate *domain.Decision
	for i := range body.Decisions {
		if body.Decisions[i].ScreeningID == "prostate-cancer-screening" {
			prostate = &body.Decisions[i]
		}
	}
	require.NotNil(t, prostate)
	assert.False(t, prostate.Applicable)
	assert.Equal(t, domain.NOT_APPLICABLE, prostate.Status)
}

func TestValidateScheduling(t *testing.T) {
	env := setupTestServer(t, false, nil)

	checklist := &domain.Checklist{
		Recommendations: []domain.Recommendation{
			{ScreeningID: "colorectal-cancer-screening", Title: "Colorectal cancer screening", Category: "cancer", Status: domain.DUE_NOW},
		},
	}

	w := env.do(t, http.MethodPost, "/api/v1/scheduling/validate", SchedulingRequest{
		Checklist:   checklist,
		ScreeningID: "colorectal-cancer-screening",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var target service.SchedulingTarget
	decode(t, w, &target)
	assert.Equal(t, "loc-oncology", target.LocationID)
	assert.Equal(t, domain.DUE_NOW, target.Status)

	w = env.do(t, http.MethodPost, "/api/v1/scheduling/validate", SchedulingRequest{
		Checklist:   checklist,
		ScreeningID: "aaa-screening",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/scheduling/validate", map[string]string{"screeningId": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalog(t *testing.T) {
	env := setupTestServer(t, false, nil)

	w := env.do(t, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body CatalogResponse
	decode(t, w, &body)
	assert.Equal(t, catalog.DefaultVersion, body.Version)
	assert.Len(t, body.Rules, len(catalog.Default().Rules))
	assert.NotEmpty(t, body.Categories)
	assert.Equal(t, catalog.Default().PregnancySensitive(), body.PregnancySensitive)
}

func TestOnboardingSteps(t *testing.T) {
	env := setupTestServer(t, false, nil)

	w := env.do(t, http.MethodPost, "/api/v1/onboarding/steps", OnboardingRequest{
		Answers: &domain.RawAnswers{DateOfBirth: "1990-03-01", SexAtBirth: "female", SmokingStatus: "current"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Steps []struct {
			ID     string `json:"id"`
			Number int    `json:"number"`
			Total  int    `json:"total"`
		} `json:"steps"`
	}
	decode(t, w, &body)

	ids := make([]string, 0, len(body.Steps))
	for _, s := range body.Steps {
		ids = append(ids, s.ID)
		assert.Equal(t, len(body.Steps), s.Total)
	}
	assert.Contains(t, ids, "pregnancy")
	assert.Contains(t, ids, "smoking_details")
	assert.NotContains(t, ids, "cancer_details")
	assert.Equal(t, 1, body.Steps[0].Number)
}

func TestConfirmations(t *testing.T) {
	env := setupTestServer(t, true, nil)

	w := env.do(t, http.MethodPost, "/api/v1/patients/p-1/confirmations", map[string]interface{}{
		"screeningKey":   "mammogram",
		"lastScreenedOn": "2024-12-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var saved confirmation.Confirmation
	decode(t, w, &saved)
	assert.Equal(t, "p-1", saved.PatientID)
	assert.Equal(t, confirmation.SourcePatient, saved.Source)

	w = env.do(t, http.MethodGet, "/api/v1/patients/p-1/confirmations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Confirmations []confirmation.Confirmation `json:"confirmations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Confirmations, 1)
	assert.Equal(t, domain.KEY_MAMMOGRAM, list.Confirmations[0].ScreeningKey)

	// the stored date fills the unanswered mammogram question
	w = env.do(t, http.MethodPost, "/api/v1/recommendations", RecommendationRequest{
		Profile:   femaleAnswers("1975-01-15"),
		PatientID: "p-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body RecommendationResponse
	decode(t, w, &body)
	rec, ok := body.Find("breast-cancer-screening")
	require.True(t, ok)
	assert.Equal(t, domain.UP_TO_DATE, rec.Status)
}

func TestConfirmations_Errors(t *testing.T) {
	env := setupTestServer(t, true, nil)

	w := env.do(t, http.MethodPost, "/api/v1/patients/p-1/confirmations", map[string]interface{}{
		"screeningKey":   "mammogram",
		"lastScreenedOn": "2030-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/patients/p-1/confirmations", map[string]interface{}{
		"screeningKey":   "xray",
		"lastScreenedOn": nil,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/patients/p-1/confirmations", map[string]interface{}{
		"screeningKey":   "mammogram",
		"lastScreenedOn": "December 2024",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/patients/nobody/confirmations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"patientId":"nobody","confirmations":[]}`, w.Body.String())
}

func TestConfirmations_Disabled(t *testing.T) {
	env := setupTestServer(t, false, nil)

	w := env.do(t, http.MethodGet, "/api/v1/patients/p-1/confirmations", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var apiErr domain.APIError
	decode(t, w, &apiErr)
	assert.Equal(t, domain.ErrCodeUnavailable, apiErr.Code)
}

func TestCORS(t *testing.T) {
	env := setupTestServer(t, false, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/catalog", nil)
	req.Header.Set("Origin", "https://care.example.org")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://care.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, false, nil)

	env.do(t, http.MethodPost, "/api/v1/recommendations", RecommendationRequest{Profile: femaleAnswers("1975-01-15")})

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checklists_computed_total")
}
