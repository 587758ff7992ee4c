// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/facepunch/internal/adapters/mq/worker"
	"github.com/okian/facepunch/internal/adapters/repository"
	"github.com/okian/facepunch/internal/adapters/storage"
	service "github.com/okian/facepunch/internal/app"
	"github.com/okian/facepunch/internal/domain/enrollment"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/internal/domain/types"
)

// maxBodyBytes bounds request bodies; frames carry raw embeddings.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Enroll(ctx context.Context, profile model.User, cam worker.Camera, det worker.Detector) (model.User, error)
	RunSession(ctx context.Context, action model.Action, cam worker.Camera, det worker.Detector) (service.Outcome, error)
	Users(ctx context.Context) ([]model.User, error)
	Report(ctx context.Context, date, userID string) ([]model.AttendanceRecord, error)
}

// Server wires HTTP routes for the attendance API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	usersHandler      *UsersHandler
	attendanceHandler *AttendanceHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		usersHandler:      NewUsersHandler(deps),
		attendanceHandler: NewAttendanceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/users", MetricsMiddleware(s.usersHandler.HandleUsers, "users"))
	mux.HandleFunc("/attendance", MetricsMiddleware(s.attendanceHandler.HandleReport, "attendance"))
	mux.HandleFunc("/attendance/export", MetricsMiddleware(s.attendanceHandler.HandleExport, "attendance_export"))
	mux.HandleFunc("/attendance/", MetricsMiddleware(s.attendanceHandler.HandlePunch, "punch"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service sentinels into status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidAction),
		errors.Is(err, enrollment.ErrInvalidUser),
		errors.Is(err, service.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, enrollment.ErrInsufficientSamples):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_samples", err)
	case errors.Is(err, storage.ErrMalformed):
		writeError(w, http.StatusUnprocessableEntity, "invalid_embedding", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, storage.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeBody reads a JSON body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// frameCamera replays submitted frames. Their faces are already embeddings,
// so the detector just passes them through.
func frameCamera(frames []types.Frame) (worker.Camera, worker.Detector) {
	out := make([]worker.Frame, len(frames))
	for i, f := range frames {
		out[i] = worker.Frame{Faces: f.Embeddings()}
	}
	return worker.NewSliceCamera(out...), worker.Precomputed{}
}
