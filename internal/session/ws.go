package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/finlitworks/finlit-platform/pkg/http/errors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS layer for REST; the session
		// stream carries no answer data, only tick/phase events.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSHandler streams countdown and phase events so clients can render the
// timer without polling.
type WSHandler struct {
	manager *Manager
	logger  zerolog.Logger
}

func NewWSHandler(manager *Manager, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		manager: manager,
		logger:  logger.With().Str("component", "session_ws").Logger(),
	}
}

// HandleEvents handles GET /ws/sessions/{id}
func (h *WSHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid session id")
		return
	}

	sess, err := h.manager.Get(id)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	events := sess.Subscribe()
	defer func() {
		sess.Unsubscribe(events)
		conn.Close()
	}()

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sess.Unsubscribe(events)
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
		if ev.Phase == PhaseFinished {
			return
		}
	}
}
