package engine

import "errors"

var (
	// ErrNotReady is returned when a query arrives before Initialize has
	// succeeded.
	ErrNotReady = errors.New("engine not initialized")
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
)
