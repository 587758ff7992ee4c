package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("user not found")
	ErrEmptyUserID    = errors.New("empty user id")
	ErrEmptyEmbedding = errors.New("empty embedding")
)
