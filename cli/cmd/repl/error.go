package repl

import "errors"

// Sentinel errors.
var (
	ErrOutOfBounds = errors.New("index out of range")
	ErrNoRegistry  = errors.New("no registry")
	ErrUsage       = errors.New("invalid usage")
)
