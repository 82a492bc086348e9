// Package main runs the event management HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-events/backend/config"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/rsvps"
	"github.com/aura-events/backend/internal/users"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/password"
	"github.com/aura-events/backend/pkg/redis"
	"github.com/aura-events/backend/pkg/response"
)

const (
	signInPath = "/sign-in"
	homePath   = "/events"
	stateTTL   = 10 * time.Minute
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Development() {
		logger.Warn("running in development mode")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	} else {
		logger.Warn("redis disabled: federated sign-in and logout revocation are off")
	}

	hasher, err := password.NewHasher(cfg.Password.BcryptCost)
	if err != nil {
		logger.Fatal("password hasher", zap.Error(err))
	}
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.TTL())
	cookie := auth.Cookie{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}

	// Auth
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, hasher, jwtService, cookie, logger)
	var revocations *auth.Revocations
	if rdb != nil {
		revocations = auth.NewRevocations(rdb)
		authHandler.SetRevocations(revocations)
	}
	if cfg.OIDC.Enabled() {
		if rdb == nil {
			logger.Warn("federated sign-in needs redis for state; disabled")
		} else if p, err := newFederated(ctx, cfg.OIDC, userRepo, logger); err != nil {
			logger.Warn("federated sign-in disabled", zap.Error(err))
		} else {
			authHandler.SetFederated(p, auth.NewStateStore(rdb, stateTTL))
			logger.Info("federated sign-in enabled", zap.String("issuer", cfg.OIDC.IssuerURL))
		}
	}
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := auth.EnsureAdmin(ctx, userRepo, hasher, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
			logger.Fatal("bootstrap admin", zap.Error(err))
		}
	}

	eventHandler := events.NewHandler(events.NewRepository(pool), logger)
	rsvpHandler := rsvps.NewHandler(rsvps.NewRepository(pool), logger)
	userHandler := users.NewHandler(userRepo, hasher, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.MaxClients, cfg.RateLimit.Idle)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Fatal("trusted proxies", zap.Error(err))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(m.Middleware())
	router.Use(middleware.Session(jwtService, cookie, revocations, logger))
	router.Use(middleware.RouteGate(signInPath, homePath))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", m.Handler())

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authLimiter.Middleware(), authHandler.Login)
		authGroup.POST("/signup", authLimiter.Middleware(), authHandler.Signup)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/session", authHandler.Session)
		authGroup.GET("/oidc/login", authHandler.OIDCLogin)
		authGroup.GET("/oidc/callback", authHandler.OIDCCallback)
	}

	router.GET("/events", eventHandler.List)
	router.POST("/events", eventHandler.Create)
	router.GET("/events/:id", eventHandler.Get)
	router.PUT("/events/:id", eventHandler.Update)
	router.DELETE("/events/:id", eventHandler.Delete)
	router.GET("/my-events", eventHandler.Mine)

	router.POST("/rsvp", rsvpHandler.Create)
	router.GET("/rsvp", rsvpHandler.List)
	router.DELETE("/rsvp", rsvpHandler.Delete)

	router.GET("/users", userHandler.List)
	router.POST("/users", userHandler.Create)
	router.GET("/users/:id", userHandler.Get)
	router.PUT("/users/:id", userHandler.Update)
	router.DELETE("/users/:id", userHandler.Delete)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newFederated(ctx context.Context, cfg config.OIDCConfig, users auth.UserStore, logger *zap.Logger) (*auth.OIDCProvider, error) {
	exchanger, err := auth.NewOIDCExchanger(ctx, auth.OIDCConfig{
		IssuerURL:    cfg.IssuerURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
	})
	if err != nil {
		return nil, err
	}
	return auth.NewOIDCProvider(exchanger, users, cfg.DefaultRole, logger)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
