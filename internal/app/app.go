package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/finlitworks/finlit-platform/internal/admin"
	"github.com/finlitworks/finlit-platform/internal/config"
	"github.com/finlitworks/finlit-platform/internal/content"
	"github.com/finlitworks/finlit-platform/internal/identity"
	"github.com/finlitworks/finlit-platform/internal/identity/jwt"
	"github.com/finlitworks/finlit-platform/internal/logging"
	"github.com/finlitworks/finlit-platform/internal/server"
	"github.com/finlitworks/finlit-platform/internal/session"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	sessions *session.Manager
	reporter *session.Reporter
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// Content layer
	contentRepo := content.NewRepository(pool)
	contentCache := content.NewCache(redisClient, cfg.Content.CacheTTL)
	contentSvc := content.NewService(contentRepo, contentCache, logger)

	// Identity layer
	userRepo := identity.NewUserRepository(pool)
	identitySvc := identity.NewService(userRepo, identity.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(cfg.Security.JWTSecret + "_refresh"),
			Issuer:        cfg.Name,
		},
	}, logger)

	var oauthSvc *identity.OAuthService
	if cfg.OAuth.GoogleClientID != "" && cfg.OAuth.GoogleClientSecret != "" {
		redirectURL := cfg.OAuth.GoogleRedirectURL
		if redirectURL == "" {
			redirectURL = fmt.Sprintf("http://%s/v1/oauth/google/callback", cfg.HTTPAddr)
		}
		oauthSvc = identity.NewOAuthService(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, redirectURL, logger)
		logger.Info().Msg("OAuth service initialized")
	} else {
		logger.Warn().Msg("OAuth not configured (missing GOOGLE_OAUTH_CLIENT_ID or GOOGLE_OAUTH_CLIENT_SECRET)")
	}

	var policy identity.Policy
	if cfg.Admin.AllowlistURL != "" {
		policy = identity.NewAllowlistPolicy(cfg.Admin.AllowlistURL, cfg.Admin.FallbackEmail, cfg.Admin.AllowlistTTL, logger)
	} else {
		policy = identity.NewStaticPolicy(cfg.Admin.Emails)
	}

	// Session engine
	reporter := session.NewReporter(contentSvc, cfg.Session.StatsQueueSize, cfg.Session.StatsTimeout, logger)
	snapshots := session.NewSnapshotStore(redisClient, cfg.Session.SnapshotTTL, logger)
	attemptRepo := session.NewAttemptRepository(pool)
	sessionMgr := session.NewManager(contentSvc, reporter, attemptRepo, snapshots, cfg.Session.FinishedTTL, logger)

	identityHandlers := identity.NewHTTPHandlers(identitySvc, oauthSvc, policy, logger)
	handlers := server.Handlers{
		Content:  content.NewHTTPHandlers(contentSvc, logger),
		Session:  session.NewHTTPHandlers(sessionMgr, logger),
		WS:       session.NewWSHandler(sessionMgr, logger),
		Identity: identityHandlers,
		Admin:    admin.NewHTTPHandlers(contentRepo, contentCache, logger),
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, identitySvc, policy, handlers)

	return &Application{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		redis:    redisClient,
		http:     apiServer,
		sessions: sessionMgr,
		reporter: reporter,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.reporter.Run()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.sessions.Close()
	a.reporter.Stop()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
