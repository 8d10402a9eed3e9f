package upload

import "errors"

var (
	// ErrInvalidInput signals a malformed request: missing file, empty payload or bad chunk fields.
	ErrInvalidInput = errors.New("invalid input")
)
