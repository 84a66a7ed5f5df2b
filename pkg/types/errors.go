package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidChunkID   = errors.New("invalid chunk ID")
	ErrInvalidChunkKind = errors.New("invalid chunk kind")
	ErrEmptyCode        = errors.New("chunk code cannot be empty")
	ErrInvalidEnvelope  = errors.New("invalid envelope bounds")
)
