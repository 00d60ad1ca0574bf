package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/logger"
)

type ExportHandler struct {
	service domain.ExportService
	logger  logger.Logger
}

func NewExportHandler(service domain.ExportService, logger logger.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger,
	}
}

func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/export.html", h.handleExportFormat(domain.ExportFormatHTML))
	mux.HandleFunc("/api/export.mjml", h.handleExportFormat(domain.ExportFormatMJML))
	mux.HandleFunc("/api/export.download", h.handleDownload)
	mux.HandleFunc("/api/export.publish", h.handlePublish)
	mux.HandleFunc("/api/export.share", h.handleShare)
	mux.HandleFunc("/api/export.send_test", h.handleSendTest)
	mux.HandleFunc("/api/devinbox.list", h.handleDevInboxList)
	mux.HandleFunc("/api/devinbox.clear", h.handleDevInboxClear)

	// Public, read-only preview links
	mux.HandleFunc("/share/", h.handleShared)
}

func (h *ExportHandler) handleExportFormat(format domain.ExportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req domain.ExportRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		req.Format = format

		result, err := h.service.Export(r.Context(), req)
		if err != nil {
			writeServiceError(w, h.logger, err, "Failed to export template")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"export": result,
		})
	}
}

// handleDownload serves the export as a file attachment
func (h *ExportHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.ExportRequest
	if err := req.FromURLParams(r.URL.Query()); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Export(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to export template")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Content))
}

func (h *ExportHandler) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.ExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Publish(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to publish template")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"publish": result,
	})
}

func (h *ExportHandler) handleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.ShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Share(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create share link")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"share": result,
	})
}

func (h *ExportHandler) handleSendTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.TestEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SendTestEmail(r.Context(), req); err != nil {
		writeServiceError(w, h.logger, err, "Failed to send test email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func (h *ExportHandler) handleDevInboxList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	messages, err := h.service.DevInboxMessages(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list dev inbox")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

func (h *ExportHandler) handleDevInboxClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cleared, err := h.service.ClearDevInbox(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to clear dev inbox")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": cleared,
	})
}

// handleShared renders GET /share/<token> as a standalone page
func (h *ExportHandler) handleShared(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := strings.TrimPrefix(r.URL.Path, "/share/")
	if token == "" || strings.Contains(token, "/") {
		WriteJSONError(w, "Share link not found", http.StatusNotFound)
		return
	}

	result, err := h.service.RenderShared(r.Context(), token)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to render shared template")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Robots-Tag", "noindex")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Content))
}
