package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the backend holds no document yet.
	ErrNotFound = errors.New("storage: document not found")

	// ErrUnavailable is returned when the backend could not be read for a
	// reason other than a missing document. Writers must not proceed.
	ErrUnavailable = errors.New("storage: document unavailable")

	// ErrInvalidImport is returned when an import payload is malformed.
	ErrInvalidImport = errors.New("storage: invalid import data")
)

// Backend persists the serialized usage document.
//
// Backup copies the current primary document aside and returns ErrNotFound
// when there is nothing to copy. Write replaces the primary document.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Backup(ctx context.Context) error
	Write(ctx context.Context, data []byte) error
	Info() DataInfo
	Close() error
}

// Loader is the read side of the engine, used by projections.
type Loader interface {
	Load(ctx context.Context) *Document
}
