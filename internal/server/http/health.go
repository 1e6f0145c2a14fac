package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type HealthOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// NewHealthHandler registers the liveness route.
func NewHealthHandler(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "healthcheck",
		Method:        http.MethodGet,
		Path:          "/healthcheck",
		Summary:       "Report that the service is up",
		Tags:          []string{"health"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		return &HealthOutput{ContentType: "text/plain", Body: []byte("OK")}, nil
	})
}
