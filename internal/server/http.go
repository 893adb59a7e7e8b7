package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/finlitworks/finlit-platform/internal/admin"
	"github.com/finlitworks/finlit-platform/internal/config"
	"github.com/finlitworks/finlit-platform/internal/content"
	"github.com/finlitworks/finlit-platform/internal/identity"
	"github.com/finlitworks/finlit-platform/internal/session"
)

// Handlers aggregates every HTTP surface mounted on the API server.
type Handlers struct {
	Content  *content.HTTPHandlers
	Session  *session.HTTPHandlers
	WS       *session.WSHandler
	Identity *identity.HTTPHandlers
	Admin    *admin.HTTPHandlers
}

// NewHTTPServer wires all routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, identitySvc *identity.Service, policy identity.Policy, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, rdb); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Public content
	mux.HandleFunc("GET /v1/quizzes", h.Content.ListQuizzes)
	mux.HandleFunc("GET /v1/terms", h.Content.ListTerms)
	mux.HandleFunc("GET /v1/terms/{slug}", h.Content.GetTerm)
	mux.HandleFunc("GET /v1/flashcards", h.Content.Flashcards)

	// Quiz sessions
	mux.HandleFunc("POST /v1/sessions", h.Session.StartSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.Session.GetState)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.Session.EndSession)
	mux.HandleFunc("POST /v1/sessions/{id}/select", h.Session.SelectOption)
	mux.HandleFunc("POST /v1/sessions/{id}/next", h.Session.Next)
	mux.HandleFunc("POST /v1/sessions/{id}/previous", h.Session.Previous)
	mux.HandleFunc("POST /v1/sessions/{id}/restart", h.Session.Restart)
	mux.HandleFunc("GET /v1/sessions/{id}/results", h.Session.Results)
	mux.HandleFunc("GET /v1/attempts", h.Session.Attempts)
	mux.HandleFunc("GET /ws/sessions/{id}", h.WS.HandleEvents)

	// Auth
	mux.HandleFunc("POST /v1/auth/register", h.Identity.Register)
	mux.HandleFunc("POST /v1/auth/login", h.Identity.Login)
	mux.HandleFunc("POST /v1/auth/refresh", h.Identity.RefreshToken)
	mux.HandleFunc("GET /v1/oauth/google/start", h.Identity.OAuthStart)
	mux.HandleFunc("GET /v1/oauth/google/callback", h.Identity.OAuthCallback)
	mux.HandleFunc("GET /v1/users/me", h.Identity.GetMe)

	// Admin console, gated by the allow-list policy
	requireAdmin := identity.RequireAdmin(policy, logger)
	adminRoute := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, requireAdmin(handler))
	}
	adminRoute("POST /v1/admin/quizzes", h.Admin.CreateQuiz)
	adminRoute("PUT /v1/admin/quizzes/{id}", h.Admin.UpdateQuiz)
	adminRoute("DELETE /v1/admin/quizzes/{id}", h.Admin.DeleteQuiz)
	adminRoute("POST /v1/admin/quizzes/{id}/questions", h.Admin.CreateQuestion)
	adminRoute("PUT /v1/admin/questions/{id}", h.Admin.UpdateQuestion)
	adminRoute("DELETE /v1/admin/questions/{id}", h.Admin.DeleteQuestion)
	adminRoute("GET /v1/admin/questions/{id}/stats", h.Admin.QuestionStats)
	adminRoute("POST /v1/admin/terms", h.Admin.CreateTerm)
	adminRoute("PUT /v1/admin/terms/{id}", h.Admin.UpdateTerm)
	adminRoute("DELETE /v1/admin/terms/{id}", h.Admin.DeleteTerm)

	var handler http.Handler = mux
	handler = identity.Middleware(identitySvc, logger)(handler)
	handler = corsMiddleware(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return rdb.Ping(ctx).Err()
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
