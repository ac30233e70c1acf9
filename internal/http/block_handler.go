package http

import (
	"net/http"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/internal/http/middleware"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

// BlockHandler serves the block palette and the stateless editor operations
type BlockHandler struct {
	service     domain.EditorService
	authService domain.AuthService
	logger      logger.Logger
}

func NewBlockHandler(service domain.EditorService, authService domain.AuthService, logger logger.Logger) *BlockHandler {
	return &BlockHandler{
		service:     service,
		authService: authService,
		logger:      logger,
	}
}

func (h *BlockHandler) RegisterRoutes(mux *http.ServeMux) {
	requireAuth := middleware.NewAuthMiddleware(h.authService).RequireAuth()

	// the palette is public so editors can render before sign in
	mux.Handle("/api/blocks.registry", http.HandlerFunc(h.handleRegistry))
	mux.Handle("/api/blocks.validate", requireAuth(http.HandlerFunc(h.handleValidate)))
	mux.Handle("/api/blocks.apply", requireAuth(http.HandlerFunc(h.handleApply)))
}

func (h *BlockHandler) handleRegistry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": h.service.Registry(r.Context()),
	})
}

func (h *BlockHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.ValidatePropertyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.ValidateProperty(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to validate property")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *BlockHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.ApplyOperationsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	start, err := req.Validate()
	if err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.ApplyOperations(r.Context(), start, req.Operations)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to apply operations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
