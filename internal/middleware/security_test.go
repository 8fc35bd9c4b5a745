package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := perform(r, "GET", "/", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "HSTS only in release mode")
}

func TestCorrelationID(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CorrelationIDKey)) })

	t.Run("Generated", func(t *testing.T) {
		rec := perform(r, "GET", "/", nil)
		id := rec.Header().Get("X-Correlation-ID")
		assert.Len(t, id, 36)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("Propagated", func(t *testing.T) {
		rec := perform(r, "GET", "/", map[string]string{"X-Correlation-ID": "abc-123"})
		assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
		assert.Equal(t, "abc-123", rec.Body.String())
	})
}

func TestRequestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID(), RequestTimeout(20*time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusRequestTimeout, perform(r, "GET", "/slow", nil).Code)
	assert.Equal(t, http.StatusNoContent, perform(r, "GET", "/fast", nil).Code)
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := gin.DefaultWriter
	gin.DefaultWriter = &buf
	defer func() { gin.DefaultWriter = previous }()

	r := gin.New()
	r.Use(CorrelationID(), AuditLogger())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, "GET", "/health", map[string]string{"X-Correlation-ID": "audit-1"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit-1", line["correlation_id"])
	assert.Equal(t, "/health", line["path"])
	assert.Equal(t, float64(200), line["status"])
}

func TestClientRateLimiter(t *testing.T) {
	limiter := NewClientRateLimiter(1, 2)

	r := gin.New()
	r.Use(CorrelationID(), limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, from("10.0.0.1").Code)

	rejected := from("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.Equal(t, "1", rejected.Header().Get("Retry-After"))

	var body domain.APIError
	require.NoError(t, json.Unmarshal(rejected.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrCodeRateLimit, body.Code)
	assert.NotEmpty(t, body.RequestID)

	assert.Equal(t, http.StatusOK, from("10.0.0.2").Code, "clients have separate budgets")
}

func TestClientRateLimiter_ReusesLimiter(t *testing.T) {
	limiter := NewClientRateLimiter(5, 0)
	first := limiter.Limiter("a")
	assert.Same(t, first, limiter.Limiter("a"))
	assert.NotSame(t, first, limiter.Limiter("b"))
	assert.Equal(t, 1, first.Burst())
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, "GET", "/items/1", nil)
	perform(r, "GET", "/items/2", nil)
	perform(r, "GET", "/missing", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}
