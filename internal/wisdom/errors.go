package wisdom

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCategory   = errors.New("invalid wisdom category")
	ErrEmptyContent      = errors.New("wisdom content is empty")
	ErrDuplicateID       = errors.New("duplicate wisdom id")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CorruptStoreError reports a backing file that exists but cannot be parsed.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt wisdom store %s: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }
