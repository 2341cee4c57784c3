package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrCancelled marks a prompt the user dismissed. It is not a failure:
	// callers abort the current flow and report a notice.
	ErrCancelled = errors.New("cancelled")

	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingAnswers = errors.New("missing required answers")
)
