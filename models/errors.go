package models

import "errors"

var (
	// ErrNotFound is returned when a close targets a trade that does not
	// exist or is already closed. The ledger is left untouched.
	ErrNotFound = errors.New("not found")

	// ErrInProgress is returned when an order for the same strategy is
	// still being processed.
	ErrInProgress = errors.New("order in progress")

	ErrZeroQuantity        = errors.New("quantity must be positive")
	ErrInsufficientCandles = errors.New("insufficient candles")
	ErrNoActiveSession     = errors.New("no active session")
	ErrAlreadyRunning      = errors.New("engine already running")
	ErrNotRunning          = errors.New("engine not running")
)
