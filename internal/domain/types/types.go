// Package types contains the wire types shared by the HTTP API and its clients.
package types

import (
	"strings"
	"time"

	"github.com/okian/facepunch/internal/domain/model"
)

// Frame is one captured frame after detection: the embeddings of every face in it.
type Frame struct {
	Faces [][]float64 `json:"faces"`
}

// Embeddings converts the frame's faces to model embeddings.
func (f Frame) Embeddings() []model.Embedding {
	out := make([]model.Embedding, len(f.Faces))
	for i, face := range f.Faces {
		out[i] = model.Embedding(face).Clone()
	}
	return out
}

// EnrollRequest is the body of POST /users.
type EnrollRequest struct {
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	Department string  `json:"department,omitempty"`
	Frames     []Frame `json:"frames"`
}

// Profile returns the identity part of the request, trimmed.
func (r EnrollRequest) Profile() model.User {
	return model.User{
		ID:         strings.TrimSpace(r.UserID),
		Name:       strings.TrimSpace(r.Name),
		Department: strings.TrimSpace(r.Department),
	}
}

// SessionRequest is the body of POST /attendance/{action}.
type SessionRequest struct {
	Frames []Frame `json:"frames"`
}

// User is an enrolled user as returned by the API.
type User struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Department   string    `json:"department,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// FromUser converts a model user.
func FromUser(u model.User) User {
	return User{UserID: u.ID, Name: u.Name, Department: u.Department, RegisteredAt: u.RegisteredAt}
}

// Record is an attendance record as returned by the API.
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Action     string    `json:"action"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// FromRecord converts a model record, deriving the date and time columns.
func FromRecord(r model.AttendanceRecord) Record {
	return Record{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Action:     r.Action.String(),
		Date:       r.Date(),
		Time:       r.Clock(),
		Timestamp:  r.Timestamp,
		Confidence: r.Confidence,
	}
}

// FromRecords converts a slice of model records. A nil input gives an empty slice.
func FromRecords(rs []model.AttendanceRecord) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = FromRecord(r)
	}
	return out
}

// Outcome is the result of an identification session.
type Outcome struct {
	SessionID  string  `json:"session_id"`
	Outcome    string  `json:"outcome"`
	Action     string  `json:"action"`
	UserID     string  `json:"user_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Frames     int     `json:"frames"`
	Progress   float64 `json:"progress"`
	Reason     string  `json:"reason,omitempty"`
	DurationMs int64   `json:"duration_ms"`
	Record     *Record `json:"record,omitempty"`
}
