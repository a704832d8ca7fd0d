// Package server contains the HTTP handlers for the blood bank API.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hemobank/internal/cache"
	"hemobank/internal/config"
	"hemobank/internal/database"
	"hemobank/internal/middleware"
	"hemobank/internal/models"
	"hemobank/internal/repository"
	"hemobank/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config           *config.Config
	db               *gorm.DB
	redis            *redis.Client
	promMiddleware   *fiberprometheus.FiberPrometheus
	hospitalRepo     repository.HospitalRepository
	requestRepo      repository.BloodRequestRepository
	unitRepo         repository.BloodUnitRepository
	requestService   *service.RequestService
	inventoryService *service.InventoryService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	hospitalRepo := repository.NewHospitalRepository(db)
	requestRepo := repository.NewBloodRequestRepository(db)
	unitRepo := repository.NewBloodUnitRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: fiberprometheus.New("hemobank-api"),
		hospitalRepo:   hospitalRepo,
		requestRepo:    requestRepo,
		unitRepo:       unitRepo,
	}
	server.requestService = service.NewRequestService(requestRepo, unitRepo)
	server.inventoryService = service.NewInventoryService(unitRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and hospital ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(middleware.TracingMiddleware())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Blood Bank Metrics Dashboard",
	}))

	// Public donor-facing routes
	requests := api.Group("/requests")
	requests.Post("/", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "submit_request"), s.SubmitBloodRequest)
	requests.Get("/", s.GetRequestsByEmail)

	// Hospital auth
	hospital := api.Group("/hospital")
	hospital.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "hospital_login"), s.HospitalLogin)

	// Hospital routes behind the session gate
	protected := hospital.Group("", s.HospitalAuthRequired())
	protected.Post("/logout", s.HospitalLogout)

	// Blood request routes. Specific /:id/:resource and static routes go
	// BEFORE the generic /:id route.
	hospitalRequests := protected.Group("/blood-requests")
	hospitalRequests.Get("/", s.GetHospitalBloodRequests)
	hospitalRequests.Get("/stats", s.GetBloodRequestStats)
	hospitalRequests.Get("/urgent", s.GetUrgentBloodRequests)
	hospitalRequests.Get("/:id/available-inventory", s.GetAvailableInventory)
	hospitalRequests.Put("/:id/status", s.UpdateBloodRequestStatus)
	hospitalRequests.Put("/:id/assign", s.AssignBloodRequest)
	hospitalRequests.Put("/:id/fulfill", s.FulfillBloodRequest)
	hospitalRequests.Put("/:id/reserve", s.ReserveBloodUnits)
	hospitalRequests.Put("/:id/release", s.ReleaseBloodUnits)
	hospitalRequests.Get("/:id", s.GetHospitalBloodRequest)

	// Inventory routes
	inventory := protected.Group("/inventory")
	inventory.Get("/", s.GetInventory)
	inventory.Post("/", s.AddBloodUnit)

	// Admin routes
	admin := api.Group("/admin")
	admin.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "admin_login"), s.AdminLogin)
	hospitals := admin.Group("/hospitals", s.AdminRequired())
	hospitals.Get("/", s.GetHospitals)
	hospitals.Post("/", s.CreateHospital)
	hospitals.Put("/:id", s.UpdateHospital)
	hospitals.Delete("/:id", s.DeleteHospital)
}

// StartExpirySweeper periodically flips past-expiry Available units to
// Expired. It runs until ctx is cancelled.
func (s *Server) StartExpirySweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.inventoryService.ExpireOverdue(ctx)
				if err != nil {
					middleware.Logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
					continue
				}
				if n > 0 {
					middleware.Logger.InfoContext(ctx, "expired overdue blood units", "count", n)
				}
			}
		}
	}()
}

// Shutdown releases the server's database and Redis resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return err
		}
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Hospital sessions live in Redis, so readiness requires it
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// HospitalAuthRequired returns middleware that resolves the hospital session
// token from the Authorization header against Redis. A valid session stores
// the hospital's ID and username in locals for downstream handlers.
func (s *Server) HospitalAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" || s.redis == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Unauthorized: Hospital login required"))
		}

		val, err := s.redis.Get(c.Context(), sessionKey(token)).Result()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Unauthorized: Hospital login required"))
		}

		hospitalID, username, ok := parseSession(val)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Unauthorized: Hospital login required"))
		}

		c.Locals("hospitalID", hospitalID)
		c.Locals("hospitalUsername", username)
		c.Locals("sessionToken", token)

		// Sync to the user context so the logger picks up hospital_id.
		ctx := context.WithValue(c.UserContext(), middleware.HospitalIDKey, hospitalID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// AdminRequired returns middleware that validates an admin JWT.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}
		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != adminTokenIssuer {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != adminTokenAudience {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}

		c.Locals("adminUsername", sub)
		return c.Next()
	}
}

// bearerToken extracts the token from a "Bearer <token>" Authorization header.
func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
