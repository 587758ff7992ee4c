package api

import (
	"net/http"

	"github.com/okian/facepunch/internal/domain/types"
)

// UsersHandler handles enrollment and user listing.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleUsers serves GET /users (list) and POST /users (enroll).
func (h *UsersHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.enroll(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.Users(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]types.User, len(users))
	for i, u := range users {
		out[i] = types.FromUser(u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UsersHandler) enroll(w http.ResponseWriter, r *http.Request) {
	const op = "api.enroll"
	var req types.EnrollRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Frames) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, ErrNoFrames))
		return
	}

	cam, det := frameCamera(req.Frames)
	user, err := h.deps.Enroll(r.Context(), req.Profile(), cam, det)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromUser(user))
}
