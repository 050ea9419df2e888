// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"time"

	_ "teamtrack/docs" // swagger docs
	"teamtrack/internal/cache"
	"teamtrack/internal/config"
	"teamtrack/internal/database"
	"teamtrack/internal/featureflags"
	"teamtrack/internal/middleware"
	"teamtrack/internal/models"
	"teamtrack/internal/policy"
	"teamtrack/internal/progress"
	"teamtrack/internal/repository"
	"teamtrack/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	featureFlags    *featureflags.Manager
	userRepo        repository.UserRepository
	teamRepo        repository.TeamRepository
	progressRepo    repository.ProgressRepository
	chatRepo        repository.ChatRepository
	userService     *service.UserService
	teamService     *service.TeamService
	progressService *service.ProgressService
	chatService     *service.ChatService
	avatarService   *service.AvatarService
	loc             *time.Location
	now             func() time.Time
}

// NewServerWithDeps creates a Server from an open database and an optional
// Redis client (nil disables caching, revocation and the Redis rate limits).
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	start, end, err := cfg.ProgramRange()
	if err != nil {
		return nil, err
	}
	cal, err := progress.NewCalendar(start, end, loc)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	chatRepo := repository.NewChatRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("teamtrack-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       userRepo,
		teamRepo:       teamRepo,
		progressRepo:   progressRepo,
		chatRepo:       chatRepo,
		loc:            loc,
		now:            time.Now,
	}

	verifier := service.NewStaticVerifier(cfg.ResetVerifierName, cfg.ResetVerifierTel)
	s.userService = service.NewUserService(userRepo, teamRepo, verifier)
	s.teamService = service.NewTeamService(teamRepo, userRepo, cfg.TeamDeletePolicy)
	s.progressService = service.NewProgressService(progressRepo, userRepo, teamRepo, cal, cfg.HiddenTeamNames())
	s.chatService = service.NewChatService(chatRepo, loc)
	s.avatarService = service.NewAvatarService(cfg.UploadDir, int64(cfg.AvatarMaxUploadMB)*1024*1024, userRepo)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Avatars are served cross-origin to the web client.
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", s.AuthRequired(), s.AdminRequired(), monitor.New(monitor.Config{
		Title: "TeamTrack Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/auto-login", s.AuthRequired(), s.AutoLogin)
	auth.Delete("/auto-login", s.Logout)
	auth.Post("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.Post("/reset-password", middleware.RateLimit(s.redis, 5, 15*time.Minute, "reset_password"), s.ResetPassword)

	users := api.Group("/users")
	users.Get("/", s.GetUsers)
	users.Post("/", s.AuthRequired(), s.AdminRequired(), s.CreateUser)
	users.Put("/role", s.AuthRequired(), s.AdminRequired(), s.UpdateUserRole)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", s.AuthRequired(), s.UpdateUser)
	users.Delete("/:id", s.AuthRequired(), s.AdminRequired(), s.DeleteUser)

	teams := api.Group("/teams")
	teams.Get("/", s.GetTeams)
	teams.Get("/board", s.GetBoard)
	teams.Post("/", s.AuthRequired(), s.CreateTeam)
	teams.Put("/", s.AuthRequired(), s.UpdateTeam)
	teams.Delete("/", s.AuthRequired(), s.DeleteTeam)
	teams.Get("/:id", s.GetTeam)
	teams.Put("/:id", s.AuthRequired(), s.UpdateTeam)
	teams.Delete("/:id", s.AuthRequired(), s.DeleteTeam)

	api.Get("/progress", s.GetProgress)
	api.Get("/progress/summary", s.GetProgressSummary)
	api.Post("/progress", s.AuthRequired(), s.RecordProgress)

	chat := api.Group("/chat", s.AuthRequired())
	chat.Get("/", s.GetChat)
	chat.Post("/", middleware.RateLimit(s.redis, 15, time.Minute, "send_chat"), s.PostChat)
	chat.Get("/logs", s.AdminRequired(), s.GetChatLogs)

	api.Post("/upload-avatar", s.AuthRequired(), s.UploadAvatar)
	api.Get("/files/*", s.ServeFile)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// App builds a Fiber app with middleware and routes; used by Start and tests.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "TeamTrack API",
		BodyLimit:    s.bodyLimit(),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) bodyLimit() int {
	mb := s.config.AvatarMaxUploadMB
	if mb <= 0 {
		mb = 20
	}
	// Leave room for multipart framing around the file.
	return (mb + 1) * 1024 * 1024
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err, "path", c.Path())
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so an
// absent client does not fail readiness; an unreachable one does.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired verifies the bearer token or auth cookie and loads the caller.
// It stores the user id under "userID" and the policy actor under "actor".
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := middleware.ExtractToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		revoked, err := cache.IsBlacklisted(c.UserContext(), claims.JTI)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token blacklist lookup failed", "error", err)
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		user, err := s.userRepo.GetByID(c.UserContext(), claims.Subject)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("User no longer exists"))
			}
			return respondError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("actor", policy.ActorFromUser(user))
		c.Locals("tokenClaims", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID))
		return c.Next()
	}
}

// AdminRequired rejects non-admin callers with 403. Must follow AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actorFrom(c).Role != models.RoleAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", "error", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
