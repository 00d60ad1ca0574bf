package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/logger"
)

// Pinger reports whether a dependency is reachable; *sql.DB satisfies it
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Features tells the designer UI which optional endpoints are configured
type Features struct {
	Publish  bool `json:"publish"`
	Share    bool `json:"share"`
	DevInbox bool `json:"dev_inbox"`
}

type RootHandler struct {
	logger      logger.Logger
	apiEndpoint string
	version     string
	features    Features
	db          Pinger
}

func NewRootHandler(logger logger.Logger, apiEndpoint, version string, features Features, db Pinger) *RootHandler {
	return &RootHandler{
		logger:      logger,
		apiEndpoint: apiEndpoint,
		version:     version,
		features:    features,
		db:          db,
	}
}

func (h *RootHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/config.js", h.serveConfigJS)
	mux.HandleFunc("/api/health", h.handleHealth)
	// catch all route
	mux.HandleFunc("/", h.Handle)
}

// Handle answers the API root and rejects every other unknown path
func (h *RootHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || r.URL.Path == "/api/" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "api running"})
		return
	}
	WriteJSONError(w, "Not found", http.StatusNotFound)
}

func (h *RootHandler) serveConfigJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	featuresJSON, err := json.Marshal(h.features)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to marshal features")
		featuresJSON = []byte("{}")
	}

	blockTypesJSON, err := json.Marshal(blocks.KnownBlockTypes())
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to marshal block types")
		blockTypesJSON = []byte("[]")
	}

	configJS := fmt.Sprintf(
		"window.API_ENDPOINT = %q;\nwindow.VERSION = %q;\nwindow.FEATURES = %s;\nwindow.BLOCK_TYPES = %s;",
		h.apiEndpoint,
		h.version,
		string(featuresJSON),
		string(blockTypesJSON),
	)
	_, _ = w.Write([]byte(configJS))
}

func (h *RootHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := http.StatusOK
	database := "ok"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.WithField("error", err.Error()).Warn("Health check: database unreachable")
			status = http.StatusServiceUnavailable
			database = "unreachable"
		}
	}

	writeJSON(w, status, map[string]interface{}{
		"status":   http.StatusText(status),
		"version":  h.version,
		"database": database,
	})
}
