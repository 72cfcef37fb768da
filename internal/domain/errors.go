package domain

import "errors"

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskNotRetryable    = errors.New("task is not in a retryable state")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrEmptyBatch          = errors.New("batch contains no generation units")
)
