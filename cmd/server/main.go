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

	"github.com/metabridge/graph-connector/internal/config"
	"github.com/metabridge/graph-connector/internal/database"
	"github.com/metabridge/graph-connector/internal/handler"
	"github.com/metabridge/graph-connector/internal/jobs"
	"github.com/metabridge/graph-connector/internal/metrics"
	"github.com/metabridge/graph-connector/internal/middleware"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/redis"
	"github.com/metabridge/graph-connector/internal/repository"
	"github.com/metabridge/graph-connector/internal/service"
	"github.com/metabridge/graph-connector/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := cfg.IsProduction()
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	log.Info().Msg("database connected")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	m := metrics.NewMetrics(config.MetricsNamespace)

	accountRepo := repository.NewAccountRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	eventRepo := repository.NewWebhookEventRepository(db.DB)

	var stateRepo repository.OAuthStateRepository
	switch cfg.OAuthStateStore {
	case config.StateStoreRedis:
		stateRepo = repository.NewRedisOAuthStateRepository(redisClient.Client)
	default:
		stateRepo = repository.NewOAuthStateRepository(db.DB)
	}
	log.Info().Str("store", cfg.OAuthStateStore).Msg("oauth state store selected")

	stateService := service.NewStateService(stateRepo, cfg.OAuthStateTTL())
	igClients := service.NewInstagramClients(cfg.Instagram, m)

	facebookService := service.NewFacebookService(
		cfg.Facebook, service.NewFacebookClient(cfg.Facebook, m), stateService, db, accountRepo,
	)
	instagramService := service.NewInstagramService(
		cfg.Instagram, igClients, stateService, db, accountRepo, profileRepo,
	)
	accountService := service.NewAccountService(accountRepo, profileRepo)
	profileService := service.NewMessengerProfileService(igClients.Graph)
	messageService := service.NewMessageService(db, eventRepo, redisClient)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash)
	oauthRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		rateLimiter, cfg.OAuthRateLimitPerMin, config.OAuthRateLimitWindow, "oauth",
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	oauthHandler := handler.NewOAuthHandler(facebookService, instagramService, m)
	accountHandler := handler.NewAccountHandler(accountService, instagramService)
	profileHandler := handler.NewMessengerProfileHandler(accountService, profileService)
	eventsHandler := handler.NewEventsHandler(broker, eventRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware(m))
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":     "ok",
			"timestamp":  time.Now().UnixMilli(),
			"sseClients": broker.TotalClients(),
		})
	})
	r.Handle("/metrics", m.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(oauthRateLimitMiddleware.Handler)
		r.Mount("/", oauthHandler.Routes())
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		mountWebhook(r, model.ProviderInstagram, cfg.Instagram.WebhookConfig, messageService, m)
		mountWebhook(r, model.ProviderFacebook, cfg.Facebook.WebhookConfig, messageService, m)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(adminAuthMiddleware.Handler)
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			accountHandler.Routes(r)
			profileHandler.Routes(r)
		})
		// Long-lived SSE stream: no request timeout.
		eventsHandler.Routes(r)
	})

	cleanupJob := jobs.NewCleanupJob(
		stateService, eventRepo, cfg.WebhookEventRetention(), m, config.CleanupJobInterval,
	)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0, // SSE
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Bool("production", isProduction).Msg("starting server")
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

func mountWebhook(
	r chi.Router,
	provider model.Provider,
	cfg config.WebhookConfig,
	processor service.MessageProcessor,
	m *metrics.Metrics,
) {
	signature := middleware.NewHubSignatureMiddleware(provider, cfg.AppSecret)
	webhook := handler.NewWebhookHandler(provider, cfg.VerifyToken, processor, m)

	r.Route("/"+provider.String(), func(r chi.Router) {
		r.Use(signature.Handler)
		r.Mount("/", webhook.Routes())
	})
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
