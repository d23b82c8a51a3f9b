package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/derickschaefer/blockhtml"
	"github.com/derickschaefer/blockhtml/internal/cache"
	"github.com/derickschaefer/blockhtml/internal/config"
	"github.com/derickschaefer/blockhtml/internal/logger"
	"github.com/derickschaefer/blockhtml/internal/metrics"
	"github.com/derickschaefer/blockhtml/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const usage = `Usage: blockhtml <command> [arguments]

Commands:
  render [file]     render a saved editor document to HTML (stdin when no file)
  validate [file]   exit 0 if the document can be rendered, 1 otherwise
  serve             run the HTTP render service
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:], os.Stdout)
	case "validate":
		var ok bool
		ok, err = runValidate(os.Args[2:], os.Stdout)
		if err == nil && !ok {
			os.Exit(1)
		}
	case "serve":
		err = runServe(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "blockhtml:", err)
		os.Exit(1)
	}
}

func readInput(args []string) (string, error) {
	var r io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func runRender(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "log fallbacks and pass-through to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input, err := readInput(fs.Args())
	if err != nil {
		return err
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.NewLogger(logger.Config{Level: level, Pretty: true, Output: os.Stderr})
	eng := blockhtml.New(blockhtml.WithLogger(log.EngineLogger()))

	_, err = fmt.Fprint(out, eng.Render(input))
	return err
}

func runValidate(args []string, out io.Writer) (bool, error) {
	input, err := readInput(args)
	if err != nil {
		return false, err
	}
	if !blockhtml.IsValidDocument(input) {
		fmt.Fprintln(out, "invalid: input is not a JSON object")
		return false, nil
	}
	doc, err := blockhtml.DecodeString(input)
	if err != nil {
		fmt.Fprintln(out, "invalid:", err)
		return false, nil
	}
	fmt.Fprintf(out, "valid: %d blocks\n", len(doc.Blocks))
	return true, nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	envFile := fs.String("env", ".env", "optional .env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		return err
	}

	logger.InitGlobalLogger(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log := logger.GetGlobalLogger()
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	eng := blockhtml.New(
		blockhtml.WithLogger(log.EngineLogger()),
		blockhtml.WithObserver(m),
	)

	var c cache.Cache = cache.NewMemoryCache(cfg.Cache.MaxEntries)
	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedisCache(redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}), cfg.Cache.Prefix)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			log.CacheLogger("redis").Error("redis unreachable, using in-memory cache", err)
		} else {
			c = rc
		}
	}
	log.CacheLogger(c.Backend()).WithFields(map[string]interface{}{
		"ttl":         cfg.Cache.TTL.String(),
		"max_entries": cfg.Cache.MaxEntries,
	}).Info("render cache ready")

	opts := server.Options{
		Engine:       eng,
		Cache:        c,
		CacheTTL:     cfg.Cache.TTL,
		Metrics:      m,
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       log,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimit = &server.RateLimit{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}
	} else {
		log.Debug("rate limiting disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.New(opts).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.LogServerStart(srv.Addr, c.Backend())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.LogServerShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
