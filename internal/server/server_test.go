package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/derickschaefer/blockhtml"
	"github.com/derickschaefer/blockhtml/internal/cache"
	"github.com/derickschaefer/blockhtml/internal/logger"
	"github.com/derickschaefer/blockhtml/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const paragraphDoc = `{"blocks":[{"type":"paragraph","data":{"text":"Hi"}}]}`

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router  *gin.Engine
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, mutate func(*Options)) fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	var logs bytes.Buffer
	opts := Options{
		Engine:   blockhtml.New(blockhtml.WithObserver(m)),
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger.NewLogger(logger.Config{Level: "debug", Output: &logs}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return fixture{router: New(opts).Router(), metrics: m, logs: &logs}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	f.router.ServeHTTP(w, req)
	return w
}

func TestRender(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/render", paragraphDoc)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, blockhtml.ContainerOpen+"<p>Hi</p>"+blockhtml.ContainerClose, w.Body.String())
	require.Equal(t, "rendered", w.Header().Get(OutcomeHeader))
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DocumentsTotal.WithLabelValues("rendered")))
}

func TestRenderPassthrough(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/render", "not json")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "not json", w.Body.String())
	require.Equal(t, "passthrough", w.Header().Get(OutcomeHeader))
	require.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestRenderTooLarge(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxBodyBytes = 16 })

	w := f.do(http.MethodPost, "/api/render", paragraphDoc)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	logs := f.logs.String()
	require.Contains(t, logs, `"level":"warn"`)
	require.Contains(t, logs, "request body too large")
	require.Contains(t, logs, `"limit":16`)
}

func TestRequestLogCarriesRoute(t *testing.T) {
	f := newFixture(t, nil)

	f.do(http.MethodPost, "/api/render", paragraphDoc)
	logs := f.logs.String()
	require.Contains(t, logs, `"component":"http"`)
	require.Contains(t, logs, `"route":"/api/render"`)
}

func TestRenderMemoryCache(t *testing.T) {
	c := cache.NewMemoryCache(0)
	f := newFixture(t, func(o *Options) { o.Cache = c; o.CacheTTL = time.Minute })

	first := f.do(http.MethodPost, "/api/render", paragraphDoc)
	second := f.do(http.MethodPost, "/api/render", paragraphDoc)

	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, c.Len())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheMissesTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheHitsTotal))
	// the engine only ran once
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DocumentsTotal.WithLabelValues("rendered")))
}

func TestRenderRedisCache(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	c := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: m.Addr()}), "test:")
	f := newFixture(t, func(o *Options) { o.Cache = c; o.CacheTTL = time.Minute })

	w := f.do(http.MethodPost, "/api/render", paragraphDoc)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := m.Get("test:" + cache.Key(paragraphDoc))
	require.NoError(t, err)
	require.Equal(t, w.Body.String(), stored)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("down")
}
func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("down")
}
func (failingCache) Backend() string { return "failing" }

func TestRenderCacheFailureStillRenders(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Cache = failingCache{} })

	w := f.do(http.MethodPost, "/api/render", paragraphDoc)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<p>Hi</p>")
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CacheErrorsTotal))
	require.Contains(t, f.logs.String(), "cache lookup failed")
}

func TestValidate(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		body    string
		valid   bool
		unknown []string
	}{
		{`{"blocks":[{"type":"paragraph"},{"type":"foo"}]}`, true, []string{"foo"}},
		{`{}`, true, []string{}},
		{`[]`, false, nil},
		{`{"blocks":[{"data":{}}]}`, true, []string{""}},
		{`{"blocks":[{"type":5}]}`, true, []string{"5"}},
		{`{"blocks":[7]}`, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/validate", tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			var resp struct {
				Valid        bool     `json:"valid"`
				Error        string   `json:"error"`
				UnknownTypes []string `json:"unknownTypes"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tt.valid, resp.Valid)
			if tt.valid {
				require.Equal(t, tt.unknown, resp.UnknownTypes)
			} else {
				require.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestBlockTypes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/block-types", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Types []string `json:"types"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Types, 13)
	require.Contains(t, resp.Types, "linkTool")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)
	f.do(http.MethodPost, "/api/render", paragraphDoc)

	w := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", w.Body.String())

	w = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `blockhtml_blocks_total{type="paragraph"} 1`)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RateLimit = &RateLimit{RPS: 0.1, Burst: 1} })

	w1 := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
	require.Equal(t, "1", w2.Header().Get("Retry-After"))

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RateLimitAllowed))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RateLimitRejected))
}

func TestRequestLogging(t *testing.T) {
	f := newFixture(t, nil)
	f.do(http.MethodPost, "/api/render", paragraphDoc)

	require.Contains(t, f.logs.String(), `"path":"/api/render"`)
	require.Contains(t, f.logs.String(), `"message":"document rendered"`)
}
