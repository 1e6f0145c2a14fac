package http

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ekisa-team/ttsapi/internal/model"
	"github.com/ekisa-team/ttsapi/internal/service"
)

// toHTTPError maps service and registry errors onto API errors.
func toHTTPError(msg string, err error) error {
	switch {
	case errors.Is(err, service.ErrUnsupportedType):
		return huma.Error501NotImplemented(msg, err)
	case errors.Is(err, service.ErrModelNotFound):
		return huma.Error404NotFound(msg, err)
	case errors.Is(err, service.ErrInvalidFilename),
		errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrNoModel),
		model.IsUnknownName(err):
		return huma.Error400BadRequest(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

// MessageBody is the JSON body of routes that only report an outcome.
type MessageBody struct {
	Message string `json:"message"`
}
