package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/sports-registration/sessions"
	"github.com/gorilla/websocket"
)

type SessionHandler struct {
	hub      *sessions.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewSessionHandler принимает список разрешённых Origin; "*" разрешает любые.
func NewSessionHandler(hub *sessions.Hub, allowedOrigins []string, logger *slog.Logger) *SessionHandler {
	allowAny := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &SessionHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAny || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

// ServeWs держит канал, по которому приходит SESSION_INVALIDATED.
// Клиент подключается к /ws/session?access_token=...
func (h *SessionHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.WarnContext(r.Context(), "Failed to upgrade session websocket",
			slog.String("user_id", identity.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	h.hub.Attach(conn, identity.ID)
	h.logger.DebugContext(r.Context(), "Session websocket attached", slog.String("user_id", identity.ID.String()))
}
