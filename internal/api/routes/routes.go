package routes

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Wikid82/gatekeeper/internal/api/handlers"
	"github.com/Wikid82/gatekeeper/internal/api/middleware"
	"github.com/Wikid82/gatekeeper/internal/cerberus"
	"github.com/Wikid82/gatekeeper/internal/config"
	"github.com/Wikid82/gatekeeper/internal/logger"
	"github.com/Wikid82/gatekeeper/internal/services"
	"github.com/Wikid82/gatekeeper/internal/session"
)

const upstreamResponseTimeout = 30 * time.Second

// Register installs the admission gate and the gatekeeper's own routes.
// Options customise the gate's collaborators (access log, notifier, geo).
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, opts ...cerberus.Option) error {
	tokens := session.NewTokenProvider(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.CookieName)

	gateOpts := append([]cerberus.Option{cerberus.WithSessions(tokens)}, opts...)
	gate, err := cerberus.New(cfg.Security, gateOpts...)
	if err != nil {
		return fmt.Errorf("build admission gate: %w", err)
	}

	// The gate must be installed before any route so every handler,
	// including NoRoute, runs behind it.
	router.Use(middleware.SecurityHeaders(!cfg.IsProduction()))
	router.Use(gate.Middleware())

	authService := services.NewAuthService(db, tokens)
	authHandler := handlers.NewAuthHandler(authService, tokens, cfg.IsProduction())

	api := router.Group("/api/v1")
	api.GET("/health", handlers.HealthHandler)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)

	if cfg.UpstreamURL == "" {
		router.GET(cerberus.LoginPath, authHandler.LoginPage)
		router.NoRoute(handlers.NotFound)
		return nil
	}

	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return fmt.Errorf("parse upstream url: %w", err)
	}
	router.NoRoute(handlers.NewProxyHandler(target, upstreamResponseTimeout))
	logger.Log().WithField("upstream", target.Host).Info("Proxying admitted requests")
	return nil
}
