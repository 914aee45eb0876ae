package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/gatekeeper/internal/accesslog"
	"github.com/Wikid82/gatekeeper/internal/api/middleware"
	"github.com/Wikid82/gatekeeper/internal/api/routes"
	"github.com/Wikid82/gatekeeper/internal/cerberus"
	"github.com/Wikid82/gatekeeper/internal/config"
	"github.com/Wikid82/gatekeeper/internal/logger"
	"github.com/Wikid82/gatekeeper/internal/metrics"
	"github.com/Wikid82/gatekeeper/internal/notify"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the HTTP engine and shared dependencies for easier testing.
type Server struct {
	Engine   *gin.Engine
	Registry *prometheus.Registry
	cfg      config.Config
	notifier *notify.Notifier
	closers  []func()
}

// New wires the access log, notifier, metrics registry and routes.
// Extra options are passed to the admission gate.
func New(db *gorm.DB, cfg config.Config, opts ...cerberus.Option) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	s := &Server{cfg: cfg, Registry: prometheus.NewRegistry()}
	metrics.Register(s.Registry)
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	access, err := s.openAccessLog(cfg.AccessLog)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.notifier = notify.New(cfg.NotifyURL)
	s.closers = append(s.closers, s.notifier.Close)

	gateOpts := []cerberus.Option{cerberus.WithAccessLogger(access)}
	if s.notifier != nil {
		gateOpts = append(gateOpts, cerberus.WithNotifier(s.notifier))
	}
	gateOpts = append(gateOpts, opts...)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(cfg.Debug), middleware.RequestLogger())

	if err := routes.Register(router, db, cfg, gateOpts...); err != nil {
		s.Close()
		return nil, fmt.Errorf("register routes: %w", err)
	}

	s.Engine = router
	return s, nil
}

// openAccessLog writes access lines to stdout and, when configured, to a
// rotated file.
func (s *Server) openAccessLog(cfg config.AccessLogConfig) (*accesslog.Logger, error) {
	if cfg.File == "" {
		return accesslog.New(os.Stdout), nil
	}

	rotator := accesslog.NewRotatingWriter(cfg.File)
	s.closers = append(s.closers, func() { _ = rotator.Close() })

	if cfg.RotateSchedule != "" {
		rotation, err := accesslog.ScheduleRotation(cfg.RotateSchedule, rotator)
		if err != nil {
			return nil, err
		}
		// Stop the schedule before closing the file.
		s.closers = append([]func(){rotation.Stop}, s.closers...)
	}

	return accesslog.New(io.MultiWriter(os.Stdout, rotator)), nil
}

// MetricsHandler exposes the server's registry.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}

// Close releases the access log and waits for pending notifications.
func (s *Server) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}

// Run starts the HTTP and metrics listeners and shuts both down gracefully
// when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.HTTPPort),
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", s.MetricsHandler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		errCh <- metricsSrv.ListenAndServe()
	}()
	logger.Log().WithFields(map[string]interface{}{
		"addr":         srv.Addr,
		"metrics_addr": metricsSrv.Addr,
	}).Info("Gatekeeper listening")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("metrics shutdown: %w", err)
	}
	return runErr
}
