package identity

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/finlitworks/finlit-platform/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for auth operations.
type HTTPHandlers struct {
	svc    *Service
	oauth  *OAuthService
	policy Policy
	logger zerolog.Logger

	stateMu sync.Mutex
	states  map[string]time.Time
}

func NewHTTPHandlers(svc *Service, oauth *OAuthService, policy Policy, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		oauth:  oauth,
		policy: policy,
		logger: logger.With().Str("component", "identity_http").Logger(),
		states: make(map[string]time.Time),
	}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type authResponse struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

// Register handles POST /v1/auth/register
func (h *HTTPHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	user, tokens, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyExists, "Email already registered")
			return
		}
		if errors.Is(err, ErrInvalidCredentials) {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, "Email and password are required")
			return
		}
		h.logger.Error().Err(err).Msg("registration failed")
		httperrors.RespondInternalError(w, "Registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

// Login handles POST /v1/auth/login
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	user, tokens, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid email or password")
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		httperrors.RespondInternalError(w, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

// RefreshToken handles POST /v1/auth/refresh
func (h *HTTPHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "refresh_token is required")
		return
	}

	tokens, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeRefreshFailed, "Invalid or expired refresh token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// OAuthStart handles GET /v1/oauth/google/start
func (h *HTTPHandlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		httperrors.RespondError(w, http.StatusNotImplemented, httperrors.ErrCodeOAuthNotConfigured, "OAuth is not configured")
		return
	}

	state := h.newState()
	url, err := h.oauth.AuthURL(state)
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth start failed")
		httperrors.RespondInternalError(w, "Could not start OAuth flow")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"auth_url": url, "state": state})
}

// OAuthCallback handles GET /v1/oauth/google/callback
func (h *HTTPHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		httperrors.RespondError(w, http.StatusNotImplemented, httperrors.ErrCodeOAuthNotConfigured, "OAuth is not configured")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthMissingCode, "Missing authorization code")
		return
	}
	if !h.consumeState(r.URL.Query().Get("state")) {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthInvalidState, "Invalid or expired state")
		return
	}

	info, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth callback failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeOAuthCallbackFailed, "OAuth exchange failed")
		return
	}

	user, tokens, err := h.oauth.CreateOrGetUser(r.Context(), h.svc, info)
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth user upsert failed")
		httperrors.RespondInternalError(w, "Could not create user")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

// GetMe handles GET /v1/users/me, returning identity plus the resolved admin flag.
func (h *HTTPHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	isAdmin := false
	if h.policy != nil {
		if admin, err := h.policy.IsAdmin(r.Context(), claims.Email); err == nil {
			isAdmin = admin
		} else {
			h.logger.Warn().Err(err).Msg("admin resolution failed for /users/me")
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":           claims.UserID,
		"email":        claims.Email,
		"display_name": claims.DisplayName,
		"is_admin":     isAdmin,
	})
}

const stateTTL = 10 * time.Minute

func (h *HTTPHandlers) newState() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	state := hex.EncodeToString(buf)

	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	for s, t := range h.states {
		if time.Since(t) > stateTTL {
			delete(h.states, s)
		}
	}
	h.states[state] = time.Now()
	return state
}

func (h *HTTPHandlers) consumeState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	t, ok := h.states[state]
	if !ok || time.Since(t) > stateTTL {
		return false
	}
	delete(h.states, state)
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
