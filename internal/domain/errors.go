package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyProcessed  = errors.New("job already processed")
	ErrAlreadyTerminal   = errors.New("job already in terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
)
