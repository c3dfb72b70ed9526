package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/backoffice/internal/auth"
	"github.com/abduss/backoffice/internal/config"
	"github.com/abduss/backoffice/internal/metrics"
	"github.com/abduss/backoffice/internal/objectstore"
	"github.com/abduss/backoffice/internal/product"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type unreachableStore struct{ objectstore.Store }

func (unreachableStore) Get(context.Context, string) ([]byte, objectstore.ObjectInfo, error) {
	return nil, objectstore.ObjectInfo{}, errors.New("dial tcp: connection refused")
}

func testConfig() config.Config {
	return config.Config{
		Metrics: config.MetricsConfig{PrometheusPath: "/metrics"},
		Auth: config.AuthConfig{
			AccessTokenSecret: "test-secret-test-secret-test-secret",
			AccessTokenTTL:    time.Minute,
		},
	}
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	cases := []struct {
		name      string
		deps      Dependencies
		status    int
		component string
	}{
		{
			name:   "healthy",
			deps:   Dependencies{DB: fakePinger{}, ObjectStore: objectstore.NewMemoryStore()},
			status: http.StatusOK,
		},
		{
			name:      "postgres down",
			deps:      Dependencies{DB: fakePinger{err: errors.New("timeout")}, ObjectStore: objectstore.NewMemoryStore()},
			status:    http.StatusServiceUnavailable,
			component: "postgres",
		},
		{
			name:      "object store down",
			deps:      Dependencies{DB: fakePinger{}, ObjectStore: unreachableStore{}},
			status:    http.StatusServiceUnavailable,
			component: "object_store",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.deps.Config = testConfig()
			rec := get(NewRouter(tc.deps), "/health/ready")
			assert.Equal(t, tc.status, rec.Code)
			if tc.component != "" {
				assert.Contains(t, rec.Body.String(), tc.component)
			}
		})
	}
}

func TestLivenessAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	router := NewRouter(Dependencies{Config: testConfig()})

	rec := get(router, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	rec = get(router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRecordRoutesRequireBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	cfg := testConfig()
	router := NewRouter(Dependencies{
		Config:         cfg,
		AuthService:    auth.NewService(nil, cfg.Auth),
		ProductService: product.NewService(nil, nil),
	})

	assert.Equal(t, http.StatusUnauthorized, get(router, "/v1/products").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/v1/customers").Code)
}
