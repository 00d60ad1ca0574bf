package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/logger"
)

const (
	subscribeWriteTimeout = 10 * time.Second
	subscribePingInterval = 30 * time.Second
)

type EditorHandler struct {
	service  domain.EditorService
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewEditorHandler creates the editor session endpoints. allowOrigin is the
// configured CORS origin; "*" accepts websocket upgrades from any page.
func NewEditorHandler(service domain.EditorService, logger logger.Logger, allowOrigin string) *EditorHandler {
	return &EditorHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowOrigin == "" || allowOrigin == "*" || origin == "" || origin == allowOrigin
			},
		},
	}
}

func (h *EditorHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/editor.open", h.handleOpen)
	mux.HandleFunc("/api/editor.state", h.handleState)
	mux.HandleFunc("/api/editor.apply", h.handleApply)
	mux.HandleFunc("/api/editor.preview", h.handlePreview)
	mux.HandleFunc("/api/editor.save", h.handleSave)
	mux.HandleFunc("/api/editor.close", h.handleClose)
	mux.HandleFunc("/api/editor.subscribe", h.handleSubscribe)
}

func (h *EditorHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.OpenSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.service.OpenSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to open editor session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": state,
	})
}

func (h *EditorHandler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.SessionRequest
	if err := req.FromURLParams(r.URL.Query()); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.service.GetState(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get editor state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": state,
	})
}

func (h *EditorHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.ApplyOperationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.service.Apply(r.Context(), req.SessionID, req.Operation)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to apply editor operation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": state,
	})
}

// handlePreview returns the canvas markup. With format=html it is served as a
// page so it can be loaded straight into an iframe.
func (h *EditorHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.PreviewRequest
	if err := req.FromURLParams(r.URL.Query()); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	html, err := h.service.Preview(r.Context(), req.SessionID, req.Mode)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to render preview")
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(html))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"html": html,
	})
}

func (h *EditorHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.SessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.service.Save(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save template")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": state,
	})
}

func (h *EditorHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.SessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.CloseSession(r.Context(), req.SessionID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to close editor session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// handleSubscribe upgrades to a websocket and pushes the session state after
// every change until the session closes or the client goes away
func (h *EditorHandler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.SessionRequest
	if err := req.FromURLParams(r.URL.Query()); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Subscribe before upgrading so unknown sessions get a plain 404
	updates, cancel, err := h.service.Subscribe(req.SessionID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to subscribe to editor session")
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.WithField("session_id", req.SessionID).Warn("Websocket upgrade failed: " + err.Error())
		return
	}
	defer conn.Close()

	// The client never sends anything meaningful; reading detects disconnects
	// and processes control frames.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.WithField("session_id", req.SessionID).Debug("Subscriber read error: " + err.Error())
				}
				return
			}
		}
	}()

	ping := time.NewTicker(subscribePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ping.C:
			deadline := time.Now().Add(subscribeWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case state, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(subscribeWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(subscribeWriteTimeout))
			if err := conn.WriteJSON(state); err != nil {
				h.logger.WithField("session_id", req.SessionID).Debug("Subscriber write failed: " + err.Error())
				return
			}
		}
	}
}
