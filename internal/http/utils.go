package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

// maxRequestBodySize bounds decoded request bodies
const maxRequestBodySize = 2 << 20

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

// decodeJSON decodes a bounded request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(v)
}

// writeServiceError maps a service error to its HTTP status. Unexpected
// errors are logged and reported with the fallback message.
func writeServiceError(w http.ResponseWriter, log logger.Logger, err error, fallback string) {
	var validationErr domain.ValidationError
	var permissionErr *domain.PermissionError
	var notFound *domain.ErrTemplateNotFound
	var rateLimited *domain.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		if len(validationErr.Fields) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  validationErr.Message,
				"fields": validationErr.Fields,
			})
			return
		}
		WriteJSONError(w, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthorized):
		WriteJSONError(w, "Unauthorized", http.StatusUnauthorized)
	case errors.As(err, &permissionErr):
		WriteJSONError(w, permissionErr.Message, http.StatusForbidden)
	case errors.As(err, &notFound):
		WriteJSONError(w, "Template not found", http.StatusNotFound)
	case errors.As(err, &rateLimited):
		seconds := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		if seconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
		WriteJSONError(w, "Too many requests", http.StatusTooManyRequests)
	default:
		log.WithField("error", err.Error()).Error(fallback)
		WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}
