package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/chrislovescoding/AuditSuite-sub000/docs"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/api/handler"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/api/middleware"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	Guard      middleware.Guard
	Auth       ports.AuthService
	Accounts   ports.AccountService
	GDPR       ports.GDPRService
	Compliance ports.ComplianceService

	// Checks are the readiness checks, keyed by dependency name.
	Checks map[string]handler.Pinger

	LoginRatePerSecond float64
	LoginBurst         int

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "auditsuite",
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))
	e.Use(middleware.Origin())

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Accounts)
	userHandler := handler.NewUserHandler(deps.Accounts)
	gdprHandler := handler.NewGDPRHandler(deps.GDPR)
	complianceHandler := handler.NewComplianceHandler(deps.Compliance)

	authenticated := middleware.Auth(deps.Guard)
	manageUsers := middleware.RequireCapability(deps.Guard, domain.CapManageUsers)
	exportData := middleware.RequireCapability(deps.Guard, domain.CapExportData)
	manageSystem := middleware.RequireCapability(deps.Guard, domain.CapManageSystem)
	systemAdmin := middleware.RequireRoles(deps.Guard, domain.RoleSystemAdmin)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login, middleware.LoginRateLimit(deps.LoginRatePerSecond, deps.LoginBurst))
	auth.GET("/me", authHandler.Me, authenticated)
	auth.PATCH("/me", authHandler.UpdateMe, authenticated)
	auth.POST("/password", authHandler.ChangePassword, authenticated)
	auth.GET("/permissions", authHandler.Permissions, authenticated)

	v1 := e.Group("/v1", authenticated)

	// --- Account management ---
	users := v1.Group("/users", manageUsers)
	users.POST("", userHandler.Create)
	users.GET("", userHandler.List)
	users.GET("/stats", userHandler.Stats)
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id", userHandler.Update)
	users.PATCH("/:id/status", userHandler.ChangeStatus)
	users.DELETE("/:id", userHandler.Delete)

	// --- Data-subject rights ---
	gdpr := v1.Group("/gdpr")
	gdpr.POST("/access", gdprHandler.Access, exportData)
	gdpr.POST("/portability", gdprHandler.Portability, exportData)
	gdpr.POST("/rectification", gdprHandler.Rectification, manageUsers)
	gdpr.POST("/erasure", gdprHandler.Erasure, systemAdmin)
	gdpr.POST("/restriction", gdprHandler.Restriction, systemAdmin)

	// --- Retention compliance ---
	compliance := v1.Group("/compliance")
	compliance.GET("/check", complianceHandler.Check, manageSystem)
	compliance.POST("/purge", complianceHandler.Purge, systemAdmin)
	compliance.GET("/policies", complianceHandler.Policies, manageSystem)
	compliance.PUT("/policies/:table", complianceHandler.UpdatePolicy, systemAdmin)
	compliance.GET("/reports", complianceHandler.Reports, manageSystem)

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
