package storage

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// embeddingsVersion is written into embeddings.cbor and checked on load.
const embeddingsVersion = 1

// encMode uses Core Deterministic Encoding so identical state always
// produces identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Fields this version does not know about make the file malformed.
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

// embeddingsFile is the layout of embeddings.cbor. Entries keep enrollment order.
type embeddingsFile struct {
	Version int              `cbor:"version"`
	Entries []embeddingEntry `cbor:"entries"`
}

type embeddingEntry struct {
	UserID string    `cbor:"user_id"`
	Vector []float64 `cbor:"vector"`
}

// userJSON is one value of users.json, keyed by user id.
type userJSON struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Department   string    `json:"department,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// recordJSON is one element of attendance.json. Date and time are derived
// from Timestamp and written for readers of the raw file.
type recordJSON struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}
