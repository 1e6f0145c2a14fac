package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ekisa-team/ttsapi/internal/model"
	"github.com/ekisa-team/ttsapi/internal/service"
)

// maxUploadBytes bounds the size of an uploaded model.
const maxUploadBytes = 4 << 30

type (
	UploadModelInput struct {
		Type     string `query:"type"`
		Filename string `query:"filename"`
		RawBody  huma.MultipartFormFiles[struct {
			Model    huma.FormFile `form:"model"`
			Type     string        `form:"type"`
			Filename string        `form:"filename"`
		}]
	}

	ModelFileInput struct {
		Type     string `query:"type"`
		Filename string `query:"filename"`
	}

	ListModelsInput struct {
		Type string `query:"type"`
	}

	ListModelsOutput struct {
		Body struct {
			Models []string `json:"models"`
		}
	}

	LoadModelRequestDTO struct {
		Type         string `json:"type,omitempty"`
		Filename     string `json:"filename,omitempty"`
		Name         string `json:"name,omitempty"         doc:"Registry name, defaults to the filename"`
		Architecture string `json:"architecture,omitempty" doc:"Inference strategy of a base model"`
		Processor    string `json:"processor,omitempty"    doc:"Processor location of a base model"`
	}

	LoadModelInput struct {
		Body *LoadModelRequestDTO `required:"false"`
	}

	MessageOutput struct {
		Body MessageBody
	}
)

// ModelsHandler handles HTTP requests for the filesystem model store.
type ModelsHandler struct {
	store *service.ModelStore
	synth *model.Synthesizer
}

// NewModelsHandler creates a new ModelsHandler instance.
func NewModelsHandler(api huma.API, store *service.ModelStore, synth *model.Synthesizer) *ModelsHandler {
	h := &ModelsHandler{store: store, synth: synth}

	huma.Register(api, huma.Operation{
		OperationID:   "upload-model",
		Method:        http.MethodPost,
		Path:          "/upload_model",
		Summary:       "Upload a model file",
		Tags:          []string{"models"},
		DefaultStatus: http.StatusOK,
		MaxBodyBytes:  maxUploadBytes,
	}, h.handleUpload)

	huma.Register(api, huma.Operation{
		OperationID:   "list-models",
		Method:        http.MethodGet,
		Path:          "/list_models",
		Summary:       "List stored model files",
		Tags:          []string{"models"},
		DefaultStatus: http.StatusOK,
	}, h.handleList)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-model",
		Method:        http.MethodDelete,
		Path:          "/delete_model",
		Summary:       "Delete a stored model file",
		Tags:          []string{"models"},
		DefaultStatus: http.StatusOK,
	}, h.handleDelete)

	huma.Register(api, huma.Operation{
		OperationID:   "download-model",
		Method:        http.MethodGet,
		Path:          "/download_model",
		Summary:       "Download a stored model as a zip archive",
		Tags:          []string{"models"},
		DefaultStatus: http.StatusOK,
	}, h.handleDownload)

	huma.Register(api, huma.Operation{
		OperationID:   "load-model",
		Method:        http.MethodPost,
		Path:          "/load_model",
		Summary:       "Register a stored model with the synthesizer",
		Tags:          []string{"models"},
		DefaultStatus: http.StatusOK,
	}, h.handleLoad)

	return h
}

func (h *ModelsHandler) handleUpload(ctx context.Context, input *UploadModelInput) (*MessageOutput, error) {
	form := input.RawBody.Data()

	if !form.Model.IsSet {
		return nil, huma.Error400BadRequest("model file is required", nil)
	}
	defer form.Model.Close()

	modelType := firstNonEmpty(form.Type, input.Type)
	if modelType == "" {
		return nil, huma.Error400BadRequest("type is required", nil)
	}

	filename := firstNonEmpty(form.Filename, input.Filename, form.Model.Filename)
	if _, err := h.store.Save(service.ModelType(modelType), filename, form.Model); err != nil {
		return nil, toHTTPError("failed to store model", err)
	}

	return &MessageOutput{Body: MessageBody{
		Message: fmt.Sprintf("Model %s uploaded as %s model", filename, modelType),
	}}, nil
}

func (h *ModelsHandler) handleList(ctx context.Context, input *ListModelsInput) (*ListModelsOutput, error) {
	if input.Type == "" {
		return nil, huma.Error400BadRequest("type is required", nil)
	}

	names, err := h.store.List(service.ModelType(input.Type))
	if err != nil {
		return nil, toHTTPError("failed to list models", err)
	}

	out := &ListModelsOutput{}
	out.Body.Models = names
	return out, nil
}

func (h *ModelsHandler) handleDelete(ctx context.Context, input *ModelFileInput) (*MessageOutput, error) {
	if err := requireFile(input); err != nil {
		return nil, err
	}

	if err := h.store.Delete(service.ModelType(input.Type), input.Filename); err != nil {
		return nil, toHTTPError("failed to delete model", err)
	}

	return &MessageOutput{Body: MessageBody{
		Message: fmt.Sprintf("Model %s deleted", input.Filename),
	}}, nil
}

func (h *ModelsHandler) handleDownload(ctx context.Context, input *ModelFileInput) (*huma.StreamResponse, error) {
	if err := requireFile(input); err != nil {
		return nil, err
	}

	path, cleanup, err := h.store.Archive(service.ModelType(input.Type), input.Filename)
	if err != nil {
		return nil, toHTTPError("failed to archive model", err)
	}

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			defer cleanup()

			f, err := os.Open(path)
			if err != nil {
				slog.Error("Failed to open archive", "path", path, "error", err)
				hctx.SetStatus(http.StatusInternalServerError)
				return
			}
			defer f.Close()

			hctx.SetHeader("Content-Type", "application/zip")
			hctx.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
			hctx.SetStatus(http.StatusOK)

			if _, err := io.Copy(hctx.BodyWriter(), f); err != nil {
				slog.Warn("Failed to stream archive", "path", path, "error", err)
			}
		},
	}, nil
}

func (h *ModelsHandler) handleLoad(ctx context.Context, input *LoadModelInput) (*MessageOutput, error) {
	var req LoadModelRequestDTO
	if input.Body != nil {
		req = *input.Body
	}
	if err := requireFile(&ModelFileInput{Type: req.Type, Filename: req.Filename}); err != nil {
		return nil, err
	}

	modelType := service.ModelType(req.Type)
	path, err := h.store.Path(modelType, req.Filename)
	if err != nil {
		return nil, toHTTPError("failed to resolve model", err)
	}

	name := firstNonEmpty(req.Name, req.Filename)
	switch modelType {
	case service.ModelTypeBase:
		if req.Architecture == "" {
			return nil, huma.Error400BadRequest("architecture is required for base models", nil)
		}
		err = h.synth.LoadCustomText2Mel(ctx, name, path, req.Architecture, req.Processor)
	case service.ModelTypeVocoder:
		err = h.synth.LoadCustomVocoder(ctx, name, path)
	}
	if err != nil {
		return nil, toHTTPError("failed to load model", err)
	}

	return &MessageOutput{Body: MessageBody{
		Message: fmt.Sprintf("Model %s loaded as %s", req.Filename, name),
	}}, nil
}

// requireFile checks the presence of the type and filename fields.
func requireFile(input *ModelFileInput) error {
	if input.Type == "" || input.Filename == "" {
		return huma.Error400BadRequest("type and filename are required", nil)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
