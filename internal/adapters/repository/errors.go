package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("solve not found")
	ErrInvalidLimit  = errors.New("invalid list limit")
	ErrInvalidRecord = errors.New("invalid solve record")
	ErrUnknownDriver = errors.New("unknown store driver")
)
