// Package server contains HTTP and WebSocket handlers for the forum's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "forum/docs" // swagger docs
	"forum/internal/auth"
	"forum/internal/cache"
	"forum/internal/config"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/repository"
	"forum/internal/service"
	"forum/internal/storage"

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
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens *auth.TokenService
	store  *storage.LocalStore

	userRepo        repository.UserRepository
	postRepo        repository.PostRepository
	commentRepo     repository.CommentRepository
	interactionRepo repository.InteractionRepository

	hub       *notifications.Hub
	notifier  *notifications.Notifier
	amqp      *notifications.AMQPPublisher
	publisher notifications.Publisher

	authService        *service.AuthService
	postService        *service.PostService
	commentService     *service.CommentService
	interactionService *service.InteractionService
	userService        *service.UserService
	uploadService      *service.UploadService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; rate limits then fall back to in-process buckets,
// the user cache is bypassed and websocket tickets are unavailable.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.SetRateLimitEnvironment(cfg.Env)

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("upload storage: %w", err)
	}

	s := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics("forum-api"),
		tokens:          auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL),
		store:           store,
		userRepo:        repository.NewUserRepository(db, redisClient),
		postRepo:        repository.NewPostRepository(db),
		commentRepo:     repository.NewCommentRepository(db),
		interactionRepo: repository.NewInteractionRepository(db),
		hub:             notifications.NewHub(),
	}
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())

	if err := s.setupPublisher(); err != nil {
		return nil, err
	}

	s.authService = service.NewAuthService(s.userRepo, s.tokens)
	s.postService = service.NewPostService(s.postRepo, s.publisher)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.publisher)
	s.interactionService = service.NewInteractionService(s.interactionRepo, s.publisher)
	s.userService = service.NewUserService(s.userRepo)
	s.uploadService = service.NewUploadService(s.store, s.userService,
		cfg.ProfilePictureMaxBytes(), cfg.PostImageMaxBytes())

	return s, nil
}

// setupPublisher picks where domain events go. With Redis every instance
// receives them through pub/sub; without it only this process's hub does.
func (s *Server) setupPublisher() error {
	if s.config.EventsBackend == "none" {
		s.publisher = notifications.NoopPublisher{}
		return nil
	}

	var local notifications.Publisher = s.hub
	if s.redis != nil {
		s.notifier = notifications.NewNotifier(s.redis)
		local = s.notifier
	}

	if s.config.EventsBackend != "amqp" {
		s.publisher = local
		return nil
	}

	p, err := notifications.NewAMQPPublisher(s.config.AMQPURL, s.config.AMQPExchange)
	if err != nil {
		return fmt.Errorf("amqp publisher: %w", err)
	}
	s.amqp = p
	s.publisher = notifications.Fanout{local, p}
	return nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers; uploaded images are fetched cross-origin by clients
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
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
	app.Get("/", s.Welcome)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(storage.PublicPrefix, s.store.Root(), fiber.Static{
		Browse: false,
		MaxAge: 3600,
	})

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Forum Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "register"), s.Register)
	authRoutes.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Specific /:id/:resource routes before the generic /:id route
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", s.AuthRequired(), s.LikePost)
	posts.Post("/:id/favorite", s.AuthRequired(), s.FavoritePost)
	posts.Get("/:id", s.GetPost)

	comments := api.Group("/comments")
	comments.Get("/:postId", s.GetComments)
	comments.Post("/:postId", s.AuthRequired(), middleware.RateLimit(
		s.redis, 30, time.Minute, "create_comment"), s.CreateComment)

	users := api.Group("/users", s.AuthRequired())
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/posts", s.GetMyPosts)
	users.Get("/me/favorites", s.GetMyFavorites)
	users.Get("/:userId/likes", s.GetUserLikes)

	upload := api.Group("/upload", s.AuthRequired(), middleware.RateLimit(
		s.redis, 20, 10*time.Minute, "upload"))
	upload.Post("/profile-picture", s.UploadProfilePicture)
	upload.Post("/post-image", s.UploadPostImage)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebSocketFeed())
}

// Welcome answers the root path.
func (s *Server) Welcome(c *fiber.Ctx) error {
	return c.SendString("Welcome to the forum API")
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: an
// absent client reports "unavailable" without failing readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
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
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware.
//
// A bearer token is verified and its subject re-checked against the live
// user. On the websocket path a single-use ticket from POST /api/ws/ticket
// is accepted instead, since browsers cannot set headers on an upgrade.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			userID, ok := s.redeemWSTicket(c.UserContext(), ticket)
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			return s.authenticate(c, userID)
		}

		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		identity, err := s.tokens.Verify(token)
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token expired"))
		case err != nil:
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Invalid token"))
		}

		return s.authenticate(c, identity.UserID)
	}
}

// authenticate loads the live user and stores the identity on the request.
func (s *Server) authenticate(c *fiber.Ctx, userID uint) error {
	user, err := s.userRepo.GetCachedByID(c.UserContext(), userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("User no longer exists"))
		}
		return s.respondServiceError(c, err)
	}

	c.Locals("userID", user.ID)
	c.Locals("username", user.Username)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
	c.SetUserContext(ctx)

	return c.Next()
}

// redeemWSTicket consumes a ticket. GETDEL keeps it single-use even when two
// upgrades race.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}
	val, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "ws ticket lookup failed", slog.String("error", err.Error()))
		}
		return 0, false
	}
	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil || userID == 0 {
		return 0, false
	}
	return uint(userID), true
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// optionalUserID attempts to extract userID from Authorization header but does not enforce it.
func (s *Server) optionalUserID(c *fiber.Ctx) uint {
	token := bearerToken(c)
	if token == "" {
		return 0
	}
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return 0
	}
	return identity.UserID
}

// App builds the fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:   "Forum API",
		BodyLimit: int(max(s.config.ProfilePictureMaxBytes(), s.config.PostImageMaxBytes())) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			return s.respondServiceError(c, err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// StartWiring forwards the Redis event stream to local websocket clients.
func (s *Server) StartWiring() error {
	if s.notifier == nil {
		return nil
	}
	return s.hub.StartWiring(s.shutdownCtx, s.notifier)
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()

	if err := s.StartWiring(); err != nil {
		middleware.Logger.Warn("failed to start feed hub wiring", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops the pub/sub subscriber
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down feed hub", slog.String("error", err.Error()))
	}

	if s.amqp != nil {
		if err := s.amqp.Close(); err != nil {
			middleware.Logger.Error("error closing amqp publisher", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
