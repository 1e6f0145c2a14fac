package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrBinaryNotFound = errors.New("backend binary not found")
	ErrServerNotFound = errors.New("backend server not running")
)
