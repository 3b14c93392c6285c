package store

import "github.com/pkg/errors"

// Sentinel errors for the chain indexing core. NotFound conditions are
// returned as an absent value (ok=false), never as one of these.
var (
	// ErrBadCursor is returned when a cursor's decoded bytes are not valid
	// JSON of the expected arity. Never retried by the caller.
	ErrBadCursor = errors.New("bad cursor")

	// ErrInvalidArgument is returned for caller-supplied values that are
	// structurally invalid regardless of database state, e.g. a negative
	// height.
	ErrInvalidArgument = errors.New("invalid argument")
)
