package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint,
// in practice the unique index on users.email.
var ErrConflict = errors.New("conflict")
