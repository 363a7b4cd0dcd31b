package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/interacthq/interaction-server-go/internal/config"
	"github.com/interacthq/interaction-server-go/internal/database"
	"github.com/interacthq/interaction-server-go/internal/handler"
	"github.com/interacthq/interaction-server-go/internal/middleware"
	"github.com/interacthq/interaction-server-go/internal/redis"
	"github.com/interacthq/interaction-server-go/internal/repository"
	"github.com/interacthq/interaction-server-go/internal/service"
	"github.com/interacthq/interaction-server-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	siteRepo := repository.NewSiteRepository(db.DB)
	membershipRepo := repository.NewMembershipRepository(db.DB)
	interactionRepo := repository.NewInteractionRepository(db.DB)

	tokenService := token.NewService(cfg.JWTSecret, redisClient)

	authService := service.NewAuthService(
		userRepo, membershipRepo, tokenService, redisClient,
		cfg.TokenTTL(), cfg.LockoutMaxAttempts, cfg.LockoutDuration(), cfg.ResetTokenTTL(),
	)
	siteService := service.NewSiteService(db, siteRepo, membershipRepo, userRepo, interactionRepo)
	interactionService := service.NewInteractionService(interactionRepo)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, userRepo)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(redisClient, cfg.RateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())

	cookieMaxAge := int(cfg.TokenTTL().Seconds())
	authHandler := handler.NewAuthHandler(authService, cookieMaxAge, cfg.IsProduction())
	siteHandler := handler.NewSiteHandler(siteService)
	interactionHandler := handler.NewInteractionHandler(interactionService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/password/reset-request", authHandler.RequestPasswordReset)
	r.Post("/auth/password/reset", authHandler.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Post("/users", authHandler.CreateUser)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)
		r.Get("/auth/sites", authHandler.Sites)
		r.Post("/auth/password", authHandler.ChangePassword)
		r.Mount("/sites", siteHandler.Routes())
		r.Mount("/interactions", interactionHandler.Routes())
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
