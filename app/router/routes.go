// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/app/handlers"
	"github.com/openmkt/campaignkit/app/middleware"
	"github.com/openmkt/campaignkit/config"
	"github.com/openmkt/campaignkit/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                  *fiber.App
	cfg                  *config.ProductionConfig
	authHandler          handlers.AuthHandlerInterface
	campaignHandler      handlers.CampaignHandlerInterface
	importHandler        handlers.ImportHandlerInterface
	fileHandler          handlers.FileHandlerInterface
	adminCampaignHandler handlers.AdminCampaignHandlerInterface
	authMiddleware       *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authHandler handlers.AuthHandlerInterface,
	campaignHandler handlers.CampaignHandlerInterface,
	importHandler handlers.ImportHandlerInterface,
	fileHandler handlers.FileHandlerInterface,
	adminCampaignHandler handlers.AdminCampaignHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "CampaignKit API",
		ServerHeader: "CampaignKit",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                  app,
		cfg:                  cfg,
		authHandler:          authHandler,
		campaignHandler:      campaignHandler,
		importHandler:        importHandler,
		fileHandler:          fileHandler,
		adminCampaignHandler: adminCampaignHandler,
		authMiddleware:       authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Prometheus metrics endpoint, outside the /api/v1 group
	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Apply general rate limiting to all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.RefreshTokens)
	auth.Post("/admin/login", r.authHandler.AdminLogin)

	// Campaign wizard routes for authenticated customers
	campaigns := api.Group("/campaigns")
	campaigns.Use(r.authMiddleware.Authenticate())

	campaigns.Post("/", r.campaignHandler.CreateDraft)
	campaigns.Get("/", r.campaignHandler.ListCampaigns)
	campaigns.Get("/summary", r.campaignHandler.GetCampaignsSummary)
	campaigns.Get("/:uuid", r.campaignHandler.GetCampaign)
	campaigns.Put("/:uuid", r.campaignHandler.UpdateDraft)
	campaigns.Delete("/:uuid", r.campaignHandler.DeleteDraft)
	campaigns.Put("/:uuid/analysis-steps", r.campaignHandler.UpdateAnalysisSteps)
	campaigns.Post("/:uuid/launch", r.campaignHandler.LaunchCampaign)
	campaigns.Post("/:uuid/rendered-emails", r.importHandler.ImportRenderedEmails)
	campaigns.Post("/:uuid/rendered-emails/file", r.importHandler.ImportRenderedEmailsFromFile)

	// File uploads feeding the wizard
	files := api.Group("/files")
	files.Use(r.authMiddleware.Authenticate())
	files.Post("/upload", r.fileHandler.Upload)

	// Admin oversight routes
	admin := api.Group("/admin")
	admin.Use(r.authMiddleware.AdminAuthenticate())

	admin.Get("/campaigns", r.adminCampaignHandler.ListAllCampaigns)
	admin.Post("/campaigns/:uuid/pause", r.adminCampaignHandler.PauseCampaign)
	admin.Post("/campaigns/:uuid/resume", r.adminCampaignHandler.ResumeCampaign)
	admin.Post("/campaigns/:uuid/complete", r.adminCampaignHandler.CompleteCampaign)
	admin.Get("/campaigns/:uuid/recipients/export", r.adminCampaignHandler.ExportRecipients)
	admin.Post("/campaigns/:uuid/provider-test", r.adminCampaignHandler.TestProviderConnection)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(middleware.RequestID())

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{utils.RequestIDKey},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// XLSX workbooks are already deflate-compressed
			return strings.Contains(c.Path(), "/recipients/export")
		},
	}))

	// Prometheus HTTP metrics
	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf("panic recovered: request_id=%v path=%s method=%s ip=%s error=%v",
				c.Locals("request_id"), c.Path(), c.Method(), c.IP(), e)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "campaignkit-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("request_id"),
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("request_id"),
			},
		},
	})
}
