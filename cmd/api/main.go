package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/Wikid82/gatekeeper/internal/config"
	"github.com/Wikid82/gatekeeper/internal/database"
	"github.com/Wikid82/gatekeeper/internal/logger"
	"github.com/Wikid82/gatekeeper/internal/server"
	"github.com/Wikid82/gatekeeper/internal/services"
	"github.com/Wikid82/gatekeeper/internal/session"
	"github.com/Wikid82/gatekeeper/internal/telemetry"
	"github.com/Wikid82/gatekeeper/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	// Setup logging with rotation
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		logger.Log().WithError(err).Fatal("create log directory")
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "gatekeeper.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	defer rotator.Close()

	// Log to both stdout and file
	logger.Init(cfg.Debug, io.MultiWriter(os.Stdout, rotator))

	// Handle CLI commands
	if len(os.Args) > 1 {
		if err := runCommand(cfg, os.Args[1:]); err != nil {
			logger.Log().WithError(err).Fatal("command failed")
		}
		return
	}

	logger.Log().WithField("version", version.Full()).Infof("starting %s", version.Name)
	for _, problem := range cfg.Validate() {
		logger.Log().WithField("source", "config").Warn(problem.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		// Spans go to stderr; stdout carries the access log.
		tp, err := telemetry.InitTracerProvider(ctx, version.Name, cfg.Environment, os.Stderr)
		if err != nil {
			logger.Log().WithError(err).Fatal("init tracing")
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log().WithError(err).Warn("flush traces")
			}
		}()
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		logger.Log().WithError(err).Fatal("connect database")
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		logger.Log().WithError(err).Fatal("create server")
	}

	if err := srv.Run(ctx); err != nil {
		logger.Log().WithError(err).Error("server error")
		return
	}
	logger.Log().Info("server stopped")
}

func runCommand(cfg config.Config, args []string) error {
	usage := func() error {
		return fmt.Errorf("usage: %s create-user|reset-password <username> <password>", os.Args[0])
	}
	if len(args) != 3 {
		return usage()
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		return err
	}
	auth := newAuthService(db, cfg)
	username, password := args[1], args[2]

	switch args[0] {
	case "create-user":
		if _, err := auth.CreateUser(username, password); err != nil {
			return err
		}
		logger.Log().WithField("username", username).Info("user created")
	case "reset-password":
		if err := auth.ResetPassword(username, password); err != nil {
			return err
		}
		logger.Log().WithField("username", username).Info("password updated")
	default:
		return usage()
	}
	return nil
}

func newAuthService(db *gorm.DB, cfg config.Config) *services.AuthService {
	tokens := session.NewTokenProvider(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.CookieName)
	return services.NewAuthService(db, tokens)
}
