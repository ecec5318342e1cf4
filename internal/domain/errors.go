package domain

import "errors"

// Error kinds surfaced by the ledger. Callers wrap them with details and match with errors.Is.
var (
	ErrValidation             = errors.New("Validation failed")
	ErrNotFound               = errors.New("Not found")
	ErrInvalidTransition      = errors.New("Invalid status transition")
	ErrInvalidState           = errors.New("Transaction is in a terminal state")
	ErrConcurrentModification = errors.New("Transaction was modified concurrently")
)
