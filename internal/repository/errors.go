// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service package to distinguish between different failure scenarios
// without inspecting driver errors. ErrNotFound replaces sql.ErrNoRows,
// ErrDuplicate signals a unique index violation and ErrConflict signals
// that a row cannot change because other rows still reference it (e.g.
// deleting a genre that books are tagged with).
package repository

import "errors"

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// index (username, email, slug, taxonomy name, like pair...).
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as a foreign key that
// still points at the row. Services translate this into a 409.
var ErrConflict = errors.New("conflict")
