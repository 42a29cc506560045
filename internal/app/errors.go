package app

import (
	"errors"
)

// Application errors.
var (
	// ErrQuit signals that the command loop should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrAlreadyRunning indicates the command loop is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNoProgram indicates no program file was given.
	ErrNoProgram = errors.New("no program file")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
