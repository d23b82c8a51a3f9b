// Package server exposes the render engine over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/derickschaefer/blockhtml"
	"github.com/derickschaefer/blockhtml/internal/cache"
	"github.com/derickschaefer/blockhtml/internal/logger"
	"github.com/derickschaefer/blockhtml/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeHeader tells clients whether the body is rendered HTML or the
// input passed through unchanged.
const OutcomeHeader = "X-Blockhtml-Outcome"

// Options configures a Server. Cache, Metrics and Gatherer are optional.
type Options struct {
	Engine       *blockhtml.Engine
	Cache        cache.Cache
	CacheTTL     time.Duration
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Logger       *logger.Logger
	MaxBodyBytes int64
	RateLimit    *RateLimit
}

// RateLimit enables per-client rate limiting.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Server serves render requests.
type Server struct {
	opts Options
	log  *logger.Logger
}

// New creates a Server. A nil Engine gets a default one.
func New(opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = blockhtml.New()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Server{opts: opts, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if rl := s.opts.RateLimit; rl != nil {
		r.Use(RateLimitMiddleware(rl.RPS, rl.Burst, s.opts.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	if s.opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.POST("/render", s.handleRender)
	api.POST("/validate", s.handleValidate)
	api.GET("/block-types", s.handleBlockTypes)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.HTTPLogger(c.FullPath()).LogRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) readBody(c *gin.Context) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.log.HTTPLogger(c.FullPath()).WithFields(map[string]interface{}{"limit": tooLarge.Limit}).Warn("request body too large")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
			return "", false
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return string(body), true
}

func (s *Server) handleRender(c *gin.Context) {
	start := time.Now()
	input, ok := s.readBody(c)
	if !ok {
		return
	}

	out, cached := s.render(c, input)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}
	s.log.LogRender(len(input), len(out), cached, time.Since(start))

	// A rendered document always starts with the container markup, so it
	// can never equal its JSON input.
	if out == input {
		c.Header(OutcomeHeader, string(blockhtml.OutcomePassthrough))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(out))
		return
	}
	c.Header(OutcomeHeader, string(blockhtml.OutcomeRendered))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// render consults the cache before rendering. Cache failures are logged and
// never fail the request.
func (s *Server) render(c *gin.Context, input string) (string, bool) {
	if s.opts.Cache == nil {
		return s.opts.Engine.Render(input), false
	}
	ctx := c.Request.Context()
	clog := s.log.CacheLogger(s.opts.Cache.Backend())
	key := cache.Key(input)

	html, hit, err := s.opts.Cache.Get(ctx, key)
	switch {
	case err != nil:
		clog.Error("cache lookup failed", err)
		s.countCache(func(m *metrics.Metrics) { m.CacheErrorsTotal.Inc() })
	case hit:
		s.countCache(func(m *metrics.Metrics) { m.CacheHitsTotal.Inc() })
		return html, true
	default:
		s.countCache(func(m *metrics.Metrics) { m.CacheMissesTotal.Inc() })
	}

	out := s.opts.Engine.Render(input)
	if err := s.opts.Cache.Set(ctx, key, out, s.opts.CacheTTL); err != nil {
		clog.Error("cache store failed", err)
		s.countCache(func(m *metrics.Metrics) { m.CacheErrorsTotal.Inc() })
	}
	return out, false
}

func (s *Server) countCache(fn func(*metrics.Metrics)) {
	if s.opts.Metrics != nil {
		fn(s.opts.Metrics)
	}
}

func (s *Server) handleValidate(c *gin.Context) {
	input, ok := s.readBody(c)
	if !ok {
		return
	}
	if !blockhtml.IsValidDocument(input) {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "input is not a JSON object"})
		return
	}
	doc, err := blockhtml.DecodeString(input)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	unknown := make([]string, 0)
	_ = blockhtml.Walk(doc, func(_ int, b *blockhtml.Block) error {
		if !blockhtml.IsKnown(b.Type) {
			unknown = append(unknown, string(b.Type))
		}
		return nil
	})
	c.JSON(http.StatusOK, gin.H{"valid": true, "blocks": len(doc.Blocks), "unknownTypes": unknown})
}

func (s *Server) handleBlockTypes(c *gin.Context) {
	types := blockhtml.BlockTypes()
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	c.JSON(http.StatusOK, gin.H{"types": out})
}
