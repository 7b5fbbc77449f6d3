package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/finchmsg/finch-core/internal/api/middleware"
	"github.com/finchmsg/finch-core/internal/api/shared"
	"github.com/finchmsg/finch-core/internal/task"
)

// StatusSource is the read-only view of the messenger the diagnostics
// handlers consume.
type StatusSource interface {
	TaskStates() map[string]task.State
	QueueSize() int
	QueueCapacity() int
	IdentityReady() bool
	LastError() string
}

// TasksResponse reports each background task slot's lifecycle state.
type TasksResponse struct {
	Tasks         map[string]task.State `json:"tasks"`
	IdentityReady bool                  `json:"identity_ready"`
	LastError     string                `json:"last_error,omitempty"`
}

// QueueResponse reports outbound send queue pressure.
type QueueResponse struct {
	Size     int  `json:"size"`
	Capacity int  `json:"capacity"`
	Full     bool `json:"full"`
}

// DiagnosticsHandler serves the debug endpoints.
type DiagnosticsHandler struct {
	status StatusSource
	logger *slog.Logger
}

// NewDiagnosticsHandler creates a DiagnosticsHandler.
func NewDiagnosticsHandler(status StatusSource, logger *slog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		status: status,
		logger: logger.With("component", "diagnostics"),
	}
}

// Health handles GET /healthz requests.
func (h *DiagnosticsHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Tasks handles GET /debug/tasks requests.
func (h *DiagnosticsHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, TasksResponse{
		Tasks:         h.status.TaskStates(),
		IdentityReady: h.status.IdentityReady(),
		LastError:     h.status.LastError(),
	})
}

// Queue handles GET /debug/queue requests.
func (h *DiagnosticsHandler) Queue(w http.ResponseWriter, r *http.Request) {
	size := h.status.QueueSize()
	capacity := h.status.QueueCapacity()
	shared.RespondWithJSON(w, r, http.StatusOK, QueueResponse{
		Size:     size,
		Capacity: capacity,
		Full:     size >= capacity,
	})
}

// NewRouter builds the diagnostics router.
func NewRouter(status StatusSource, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	h := NewDiagnosticsHandler(status, logger)

	r.Get("/healthz", h.Health)
	r.Route("/debug", func(r chi.Router) {
		r.Get("/tasks", h.Tasks)
		r.Get("/queue", h.Queue)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusNotFound, "Not found")
	})

	return r
}
