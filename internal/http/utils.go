package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/logger"
	"github.com/Notifuse/designer/pkg/sharelink"
)

// WriteJSONError writes a JSON error response with the given message and status code.
// It sets the Content-Type header to application/json and automatically formats
// the response as {"error": "message"}.
func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes a JSON response with the given status code and data.
// It sets the Content-Type header to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a service error to its status code. Unexpected errors
// are logged and answered with fallback so internals do not leak.
func writeServiceError(w http.ResponseWriter, log logger.Logger, err error, fallback string) {
	var (
		validationErr    domain.ValidationError
		templateNotFound *domain.ErrTemplateNotFound
		sessionNotFound  *domain.ErrSessionNotFound
		blockNotFound    *domain.ErrBlockNotFound
		rateLimited      *domain.ErrRateLimited
		featureDisabled  *domain.ErrFeatureDisabled
	)

	switch {
	case errors.As(err, &validationErr):
		WriteJSONError(w, validationErr.Message, http.StatusBadRequest)
	case errors.As(err, &templateNotFound):
		WriteJSONError(w, "Template not found", http.StatusNotFound)
	case errors.As(err, &sessionNotFound):
		WriteJSONError(w, "Editor session not found", http.StatusNotFound)
	case errors.As(err, &blockNotFound):
		WriteJSONError(w, fmt.Sprintf("Block not found: %s", blockNotFound.BlockID), http.StatusNotFound)
	case errors.Is(err, sharelink.ErrInvalidToken), errors.Is(err, sharelink.ErrExpiredToken):
		WriteJSONError(w, "Share link not found", http.StatusNotFound)
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfter))
		WriteJSONError(w, rateLimited.Error(), http.StatusTooManyRequests)
	case errors.As(err, &featureDisabled):
		WriteJSONError(w, featureDisabled.Error(), http.StatusNotImplemented)
	default:
		log.WithField("error", err.Error()).Error(fallback)
		WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// maxBodyBytes bounds request bodies; imported HTML files are the largest payloads
const maxBodyBytes = 5 << 20
