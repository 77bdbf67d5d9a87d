package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"

	apierrors "github.com/oshinlather/image-to-excel-converter/internal/errors"
	"github.com/oshinlather/image-to-excel-converter/internal/middleware"
	ws "github.com/oshinlather/image-to-excel-converter/internal/websocket"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
)

// SessionLookup checks that a session exists before a client subscribes
type SessionLookup interface {
	GetSession(ctx context.Context, id string) (api.Session, error)
}

// WebSocketHandler upgrades GET /ws/sessions/{id} and subscribes the
// connection to the session's snapshots
type WebSocketHandler struct {
	hub          *ws.Hub
	sessions     SessionLookup
	upgrader     *gorillaws.Upgrader
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(hub *ws.Hub, sessions SessionLookup, upgrader *gorillaws.Upgrader, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if upgrader == nil {
		upgrader = ws.NewUpgrader(1024, 1024, nil)
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &WebSocketHandler{
		hub:          hub,
		sessions:     sessions,
		upgrader:     upgrader,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "websocket")),
	}
}

// ServeSession handles GET /ws/sessions/{id}
func (h *WebSocketHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	// Unknown sessions are rejected before the upgrade so the client gets a
	// regular 404 problem response.
	if _, err := h.sessions.GetSession(ctx, id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
		return
	}

	client := ws.ServeWS(h.hub, conn, id, middleware.GetRequestID(ctx))
	h.logger.InfoContext(ctx, "websocket subscribed",
		slog.String("session_id", id),
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
