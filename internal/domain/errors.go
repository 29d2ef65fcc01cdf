package domain

import (
	"errors"
	"fmt"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

var (
	// ErrMalformedOptions is returned when a call site's options literal cannot be parsed.
	ErrMalformedOptions = errors.New("malformed worker options")
	// ErrTargetNotFound is returned when a virtual module's target cannot be loaded.
	ErrTargetNotFound = errors.New("worker target not found")
)

// TransformError locates a failure inside a transformed file.
type TransformError struct {
	File   m.Path
	Line   int
	Column int
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v", e.File, e.Line, e.Column, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
