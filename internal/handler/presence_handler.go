package handler

import (
	"encoding/json"
	"net/http"

	"presence-be/internal/domain"
	"presence-be/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// PresenceHandler handles the visitor-presence HTTP surface
type PresenceHandler struct {
	dispatcher  *Dispatcher
	counterName string
	logger      *logger.Logger
}

// NewPresenceHandler creates a new presence handler routing to the counter
// instance registered under counterName
func NewPresenceHandler(dispatcher *Dispatcher, counterName string, logger *logger.Logger) *PresenceHandler {
	return &PresenceHandler{
		dispatcher:  dispatcher,
		counterName: counterName,
		logger:      logger,
	}
}

// HeartbeatResponse represents a successful heartbeat
type HeartbeatResponse struct {
	OK            bool  `json:"ok"`
	TotalVisitors int64 `json:"totalVisitors"`
}

// ErrorResponse represents a failed request
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Heartbeat handles POST /heartbeat
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.dispatcher.Resolve(h.counterName)
	if !ok {
		h.writeBindingMissing(w)
		return
	}

	var req domain.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := domain.ValidateVisitorID(req.ID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid visitor id")
		return
	}

	total, err := svc.Heartbeat(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to apply heartbeat")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, HeartbeatResponse{OK: true, TotalVisitors: total})
}

// Online handles GET /online
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.dispatcher.Resolve(h.counterName)
	if !ok {
		h.writeBindingMissing(w)
		return
	}

	snapshot, err := svc.Online(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read online snapshot")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// NotFound writes the JSON envelope for unmatched routes
func (h *PresenceHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "not found")
}

func (h *PresenceHandler) writeBindingMissing(w http.ResponseWriter) {
	h.logger.Error("Counter binding is not configured")
	h.writeError(w, http.StatusInternalServerError, "counter binding is missing")
}

func (h *PresenceHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{OK: false, Error: message})
}

func (h *PresenceHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// RegisterRoutes registers presence routes with the router
func (h *PresenceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/heartbeat", h.Heartbeat)
	r.Get("/online", h.Online)
}
