package domain

import "errors"

// Validation errors for queue items and failed downloads. ErrValidation and
// ErrInvalidFormat are the broad categories the API maps to 400 responses.
var (
	ErrValidation    = errors.New("validation failed")
	ErrInvalidFormat = errors.New("invalid format")

	ErrEmptyItemID       = errors.New("item ID cannot be empty")
	ErrEmptyURL          = errors.New("url cannot be empty")
	ErrNotAbsoluteURL    = errors.New("url must be absolute (scheme and host)")
	ErrEmptyErrorMessage = errors.New("error message cannot be empty")
)
