// Package api exposes the routing engine over HTTP with GeoJSON responses.
package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	CORSOrigin     string        `yaml:"cors_origin"`
	// RateLimit is the sustained requests per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:           addr,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   35 * time.Second,
		RequestTimeout: 30 * time.Second,
		MaxConcurrent:  runtime.NumCPU() * 2,
		RateLimit:      0,
		Burst:          20,
	}
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, handlers *Handlers, metrics *Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mw := &middleware{
		cfg:     cfg,
		sem:     make(chan struct{}, max(cfg.MaxConcurrent, 1)),
		metrics: metrics,
		logger:  logger,
	}
	if cfg.RateLimit > 0 {
		mw.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	mux.HandleFunc("GET /api/route", mw.wrap("route", handlers.HandleRoute))
	mux.HandleFunc("GET /api/route-using-ids", mw.wrap("route_using_ids", handlers.HandleRouteByIDs))
	mux.HandleFunc("GET /api/reachability", mw.wrap("reachability", handlers.HandleReachability))
	mux.HandleFunc("POST /api/v1/route/batch", mw.wrap("route_batch", handlers.HandleBatch))
	mux.HandleFunc("GET /api/v1/health", mw.wrap("health", handlers.HandleHealth))
	mux.HandleFunc("GET /api/v1/stats", mw.wrap("stats", handlers.HandleStats))
	mux.Handle("GET /metrics", metrics.Handler())

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until shutdown signal.
func ListenAndServe(srv *http.Server, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

type middleware struct {
	cfg     ServerConfig
	sem     chan struct{}
	limiter *rate.Limiter
	metrics *Metrics
	logger  *zap.Logger
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// wrap adds security headers, CORS, rate and concurrency limiting, panic
// recovery, a request timeout, metrics and an access log line.
func (m *middleware) wrap(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		rec.Header().Set("X-Content-Type-Options", "nosniff")
		rec.Header().Set("X-Frame-Options", "DENY")
		rec.Header().Set("Cache-Control", "no-store")
		if m.cfg.CORSOrigin != "" {
			rec.Header().Set("Access-Control-Allow-Origin", m.cfg.CORSOrigin)
		}

		defer func() {
			elapsed := time.Since(start)
			m.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			m.metrics.duration.WithLabelValues(route).Observe(elapsed.Seconds())
			m.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
			)
		}()

		if m.limiter != nil && !m.limiter.Allow() {
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusTooManyRequests, "rate_limited", "")
			return
		}

		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		default:
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusServiceUnavailable, "service_unavailable", "")
			return
		}

		m.metrics.inflight.Inc()
		defer m.metrics.inflight.Dec()

		defer func() {
			if p := recover(); p != nil {
				m.logger.Error("panic in handler", zap.String("route", route), zap.Any("panic", p))
				writeError(rec, http.StatusInternalServerError, "internal_error", "")
			}
		}()

		ctx := r.Context()
		if m.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.cfg.RequestTimeout)
			defer cancel()
		}
		handler(rec, r.WithContext(ctx))
	}
}
