package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/auth"
	"github.com/yukikurage/foresy-api/internal/config"
	"github.com/yukikurage/foresy-api/internal/constants"
	"github.com/yukikurage/foresy-api/internal/database"
	"github.com/yukikurage/foresy-api/internal/handlers"
	"github.com/yukikurage/foresy-api/internal/logging"
	"github.com/yukikurage/foresy-api/internal/metrics"
	"github.com/yukikurage/foresy-api/internal/middleware"
	"github.com/yukikurage/foresy-api/internal/repository"
	"github.com/yukikurage/foresy-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg, log); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Run migrations
	if err := database.Migrate(log); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	db := database.GetDB()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink := metrics.NewPrometheusSink(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	craRepo := repository.NewCraRepository(db)
	entryRepo := repository.NewCraEntryRepository(db)

	// Services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := services.NewAuthService(userRepo, sessionRepo, tokens, cfg.SessionTTL, log, sink)
	verifier := services.NewOAuth2Verifier(
		services.OAuthClientConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectFor(services.ProviderGoogle),
		},
		services.OAuthClientConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.OAuthRedirectFor(services.ProviderGitHub),
		},
	)
	oauthService := services.NewOAuthService(userRepo, authService, verifier, log, sink)
	companyService := services.NewCompanyService(companyRepo, log)
	missionService := services.NewMissionService(missionRepo, companyRepo, cfg.UserMissionPivot, log, sink)
	craService := services.NewCraService(craRepo, log, sink)
	entryService := services.NewCraEntryService(entryRepo, craService, missionService, log, sink)
	exportService := services.NewExportService(craService, entryRepo, log)
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY is not set, entry suggestions are disabled")
	}
	suggestionService := services.NewSuggestionService(services.NewOpenAIClient(cfg.OpenAIAPIKey), craService, log)

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(log), httpMetrics.Middleware())
	r.Use(sessions.Sessions(constants.SessionCookieName, newSessionStore(cfg, log)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := middleware.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute, log)
	limiter.StartCleanup(ctx, time.Minute)

	handlers.RegisterRoutes(r, handlers.Routes{
		Auth:          handlers.NewAuthHandler(authService, log),
		OAuth:         handlers.NewOAuthHandler(oauthService, log),
		Company:       handlers.NewCompanyHandler(companyService, log),
		Mission:       handlers.NewMissionHandler(missionService, log),
		Cra:           handlers.NewCraHandler(craService, exportService, log),
		CraEntry:      handlers.NewCraEntryHandler(entryService, suggestionService, log),
		Health:        handlers.NewHealthHandler(db),
		Authenticator: authService,
		Cras:          craService,
		Entries:       entryService,
		RateLimit:     limiter.Handler(),
		Log:           log,
	})
	r.GET("/metrics", metrics.Handler(registry))

	// Start server
	log.WithField("port", cfg.Port).Info("Server starting")
	if err := r.Run(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("Failed to start server")
	}
}

// newSessionStore keeps OAuth state in Redis when REDIS_HOST is set and in a
// signed cookie otherwise.
func newSessionStore(cfg *config.Config, log logrus.FieldLogger) sessions.Store {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.RedisHost != "" {
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		store, err := redisStore.NewStore(
			10,        // Redis pool size
			"tcp",     // network type
			redisAddr, // Redis address from config
			"",        // username (empty for default user)
			"",        // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			log.WithError(err).Fatal("Failed to create Redis session store")
		}
		store.Options(options)
		return store
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(options)
	return store
}
