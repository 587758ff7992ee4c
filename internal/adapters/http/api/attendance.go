package api

import (
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/facepunch/internal/app"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/internal/domain/types"
)

// AttendanceHandler handles punch sessions, reports and CSV export.
type AttendanceHandler struct {
	deps Dependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps Dependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

// HandlePunch handles POST /attendance/{punch_in|punch_out}.
// Recorded sessions answer 201, duplicates 409 and sessions that ended
// without a confirmation 422. The body is the session outcome in all three.
func (h *AttendanceHandler) HandlePunch(w http.ResponseWriter, r *http.Request) {
	const op = "api.punch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/attendance/")
	if raw == "" || strings.Contains(raw, "/") {
		http.NotFound(w, r)
		return
	}
	action, err := model.ParseAction(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var req types.SessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Frames) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, ErrNoFrames))
		return
	}

	cam, det := frameCamera(req.Frames)
	out, err := h.deps.RunSession(r.Context(), action, cam, det)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusUnprocessableEntity
	switch out.Kind {
	case service.OutcomeRecorded:
		status = http.StatusCreated
	case service.OutcomeDuplicate:
		status = http.StatusConflict
	}
	writeJSON(w, status, toOutcome(out))
}

// HandleReport handles GET /attendance?date=YYYY-MM-DD&user_id=.
func (h *AttendanceHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	records, err := h.deps.Report(r.Context(), q.Get("date"), q.Get("user_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromRecords(records))
}

// HandleExport handles GET /attendance/export and streams the report as CSV.
func (h *AttendanceHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	date := q.Get("date")
	records, err := h.deps.Report(r.Context(), date, q.Get("user_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	name := "attendance.csv"
	if date != "" {
		name = fmt.Sprintf("attendance_%s.csv", date)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_ = service.WriteCSV(w, records)
}

func toOutcome(o service.Outcome) types.Outcome { //nolint:gocritic // hugeParam: mirrors the service return value
	out := types.Outcome{
		SessionID:  o.SessionID,
		Outcome:    o.Kind.String(),
		Action:     o.Action.String(),
		UserID:     o.UserID,
		Name:       o.Name,
		Confidence: o.Confidence,
		Frames:     o.Frames,
		Progress:   o.Progress,
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Reason != nil {
		out.Reason = o.Reason.Error()
	}
	if o.Kind == service.OutcomeRecorded {
		rec := types.FromRecord(o.Record)
		out.Record = &rec
	}
	return out
}
