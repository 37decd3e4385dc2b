package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"skycast/internal/models"
	"skycast/internal/session"
	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

// SessionHandler exposes the session to the presentation layer: read
// access to the state plus the resolve, search, and select actions.
type SessionHandler struct {
	session *session.Session
	hub     *WatchHub
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSessionHandler creates a new session handler and wires the watch
// hub into the session's observer list so every applied event reaches
// connected clients.
func NewSessionHandler(
	sess *session.Session,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *SessionHandler {
	hub := NewWatchHub(logger, metricsCollector)
	sess.Observe(hub.Broadcast)

	return &SessionHandler{
		session: sess,
		hub:     hub,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// searchRequest is the body of POST /api/session/search
type searchRequest struct {
	Query string `json:"query"`
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	timer := h.metrics.NewTimer(h.metrics.APIRequestDuration.WithLabelValues("/api/session"))
	defer timer.ObserveDuration()

	h.metrics.RecordAPIRequest("/api/session", "GET", "200")
	h.sendJSON(w, h.session.State(), http.StatusOK)
}

// Resolve handles POST /api/session/resolve. It runs one full
// resolution cycle and responds with the resulting state; progress is
// also observable on the watch stream while the cycle runs.
func (h *SessionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	timer := h.metrics.NewTimer(h.metrics.APIRequestDuration.WithLabelValues("/api/session/resolve"))
	defer timer.ObserveDuration()

	h.logger.Info(ctx, "[API_RESOLVE] Resolution requested", logging.Fields{})
	h.session.Resolve(ctx)

	h.metrics.RecordAPIRequest("/api/session/resolve", "POST", "200")
	h.sendJSON(w, h.session.State(), http.StatusOK)
}

// Search handles POST /api/session/search. One call per keystroke; the
// session applies the length gate and drops superseded results.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	timer := h.metrics.NewTimer(h.metrics.APIRequestDuration.WithLabelValues("/api/session/search"))
	defer timer.ObserveDuration()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordAPIError("bad_request", "/api/session/search")
		h.sendError(w, r, "invalid request body, expected {\"query\": \"...\"}", http.StatusBadRequest)
		return
	}

	h.session.SetQuery(ctx, req.Query)

	h.metrics.RecordAPIRequest("/api/session/search", "POST", "200")
	h.sendJSON(w, h.session.State(), http.StatusOK)
}

// Select handles POST /api/session/select. The body is the suggestion
// to commit, as previously returned in the session's suggestion list.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	timer := h.metrics.NewTimer(h.metrics.APIRequestDuration.WithLabelValues("/api/session/select"))
	defer timer.ObserveDuration()

	var suggestion models.LocationSuggestion
	if err := json.NewDecoder(r.Body).Decode(&suggestion); err != nil {
		h.metrics.RecordAPIError("bad_request", "/api/session/select")
		h.sendError(w, r, "invalid request body, expected a location suggestion", http.StatusBadRequest)
		return
	}

	h.session.Select(ctx, suggestion)

	h.metrics.RecordAPIRequest("/api/session/select", "POST", "200")
	h.sendJSON(w, h.session.State(), http.StatusOK)
}

// Watch handles GET /api/session/watch by upgrading to a WebSocket
// that streams a state snapshot after every applied event.
func (h *SessionHandler) Watch(w http.ResponseWriter, r *http.Request) {
	h.metrics.RecordAPIRequest("/api/session/watch", "GET", "101")
	h.hub.Serve(w, r, h.session.State())
}

// HealthCheck handles GET /health
func (h *SessionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *SessionHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *SessionHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all session API routes
func (h *SessionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/session", h.GetSession).Methods("GET")
	router.HandleFunc("/api/session/resolve", h.Resolve).Methods("POST")
	router.HandleFunc("/api/session/search", h.Search).Methods("POST")
	router.HandleFunc("/api/session/select", h.Select).Methods("POST")
	router.HandleFunc("/api/session/watch", h.Watch).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}

// RequestIDMiddleware assigns every request an id that the logger picks
// up from the context and echoes in the X-Request-ID header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), "request_id", requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
