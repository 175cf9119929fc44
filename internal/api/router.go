package api

import (
	"context"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/placequest/placequest-api/docs"
	"github.com/placequest/placequest-api/internal/api/handler"
	"github.com/placequest/placequest-api/internal/api/middleware"
	"github.com/placequest/placequest-api/internal/core/ports"
	"github.com/placequest/placequest-api/internal/core/service"
	mongostore "github.com/placequest/placequest-api/internal/infrastructure/db/mongo"
	redisstore "github.com/placequest/placequest-api/internal/infrastructure/db/redis"
	"github.com/placequest/placequest-api/internal/pkg/config"
)

// AbilityProfileWrite is required to change the caller's own profile.
const AbilityProfileWrite = "profile:write"

// Dependencies are the long-lived resources the router wires into handlers.
type Dependencies struct {
	Config  *config.Config
	DB      *mongo.Database
	Redis   *redis.Client
	Toucher ports.TokenToucher
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	cfg := deps.Config

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log, cfg.IsProduction())

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("placequest"))

	// --- Dependencies ---
	users := mongostore.NewUserRepository(deps.DB)
	tokens := mongostore.NewTokenRepository(deps.DB)
	issuer := service.NewTokenIssuer(tokens, cfg.Auth.SessionTTL, cfg.Auth.JWTSecret)

	verifiers := []service.CredentialVerifier{service.NewStoreVerifier(tokens)}
	if cfg.Auth.JWTSecret != "" {
		verifiers = append(verifiers, service.NewSignedVerifier(tokens, cfg.Auth.JWTSecret))
	}
	validator := service.NewSessionValidator(users, deps.Toucher, deps.Log.With().Str("component", "session").Logger(), verifiers...)

	locker := redisstore.NewLoginLock(deps.Redis, cfg.Auth.LoginLockTTL, deps.Log.With().Str("component", "login-lock").Logger())
	authService := service.NewAuthService(users, tokens, issuer, locker, deps.Log.With().Str("component", "auth").Logger())

	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(authService)
	requireSession := middleware.Session(validator)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register, middleware.RegistrationGate(cfg.Auth.RegistrationSecret))
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout, requireSession)
	auth.GET("/status", authHandler.Status, requireSession)
	auth.GET("/me", profileHandler.Me, requireSession)
	auth.PATCH("/me", profileHandler.UpdateMe, requireSession, middleware.RequireAbility(AbilityProfileWrite))

	// --- Public profiles (session optional) ---
	e.GET("/users/:username", profileHandler.PublicProfile, middleware.OptionalSession(validator))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(map[string]handler.DependencyCheck{
		"mongodb": func(ctx context.Context) error { return deps.DB.Client().Ping(ctx, nil) },
		"redis":   func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
	})

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
