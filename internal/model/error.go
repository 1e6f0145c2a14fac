package model

import "errors"

// Error definitions for the model package.
var (
	ErrUnknownText2Mel   = errors.New("unknown text2mel model")
	ErrUnknownVocoder    = errors.New("unknown vocoder model")
	ErrUnknownProcessor  = errors.New("unknown processor")
	ErrUnknownKnownModel = errors.New("model not found in known model table")
	ErrUnknownInference  = errors.New("unknown inference strategy")
	ErrNoLoader          = errors.New("no model loader configured")
)

// IsUnknownName reports whether err comes from looking up a name that is not registered.
func IsUnknownName(err error) bool {
	return errors.Is(err, ErrUnknownText2Mel) ||
		errors.Is(err, ErrUnknownVocoder) ||
		errors.Is(err, ErrUnknownProcessor) ||
		errors.Is(err, ErrUnknownKnownModel) ||
		errors.Is(err, ErrUnknownInference)
}
