package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ekisa-team/ttsapi/internal/model"
)

type (
	ModelsOutput struct {
		Body struct {
			Loaded model.Loaded `json:"loaded"`
			Known  model.Known  `json:"known"`
		}
	}

	RegisterModelRequestDTO struct {
		Name string `json:"name,omitempty" doc:"Name from the known model table"`
		All  bool   `json:"all,omitempty"  doc:"Register every known model"`
	}

	RegisterModelInput struct {
		Name string                   `query:"name"`
		Body *RegisterModelRequestDTO `required:"false"`
	}

	RegisterModelOutput struct {
		Body model.Loaded
	}
)

// RegistryHandler exposes the synthesizer registry.
type RegistryHandler struct {
	synth *model.Synthesizer
}

// NewRegistryHandler creates a new RegistryHandler instance.
func NewRegistryHandler(api huma.API, synth *model.Synthesizer) *RegistryHandler {
	h := &RegistryHandler{synth: synth}

	huma.Register(api, huma.Operation{
		OperationID:   "models",
		Method:        http.MethodGet,
		Path:          "/models",
		Summary:       "List loaded and known models",
		Tags:          []string{"registry"},
		DefaultStatus: http.StatusOK,
	}, h.handleModels)

	huma.Register(api, huma.Operation{
		OperationID:   "register-model",
		Method:        http.MethodPost,
		Path:          "/register_model",
		Summary:       "Load models of the known model table",
		Tags:          []string{"registry"},
		DefaultStatus: http.StatusOK,
	}, h.handleRegister)

	return h
}

func (h *RegistryHandler) handleModels(ctx context.Context, _ *struct{}) (*ModelsOutput, error) {
	out := &ModelsOutput{}
	out.Body.Loaded = h.synth.ListLoaded()
	out.Body.Known = h.synth.ListKnown()
	return out, nil
}

func (h *RegistryHandler) handleRegister(ctx context.Context, input *RegisterModelInput) (*RegisterModelOutput, error) {
	req := RegisterModelRequestDTO{Name: input.Name}
	if input.Body != nil {
		req.All = input.Body.All
		req.Name = firstNonEmpty(input.Body.Name, req.Name)
	}

	var err error
	switch {
	case req.All:
		err = h.synth.RegisterKnownModels(ctx)
	case req.Name != "":
		err = h.synth.RegisterKnown(ctx, req.Name)
	default:
		return nil, huma.Error400BadRequest("name or all is required", nil)
	}
	if err != nil {
		return nil, toHTTPError("failed to register model", err)
	}

	return &RegisterModelOutput{Body: h.synth.ListLoaded()}, nil
}
