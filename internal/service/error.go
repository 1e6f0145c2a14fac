package service

import "errors"

// Error definitions for the service package.
var (
	ErrEmptyText       = errors.New("text is required")
	ErrNoModel         = errors.New("no model name given and no default configured")
	ErrUnsupportedType = errors.New("unsupported model type")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrModelNotFound   = errors.New("model file not found")
)
