package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ekisa-team/ttsapi/internal/service"
)

type (
	SpeakRequestDTO struct {
		Text       string         `json:"text,omitempty"           maxLength:"4096"`
		Model      string         `json:"model_name,omitempty"     doc:"Text-to-mel model, defaults to the configured one"`
		Vocoder    string         `json:"vocoder_name,omitempty"   doc:"Vocoder, defaults to the configured one"`
		Processor  string         `json:"processor_name,omitempty" doc:"Processor, defaults to the model name"`
		Parameters map[string]any `json:"parameters,omitempty"     doc:"speaker_id, speed_ratio, f0_ratio, energy_ratio"`
	}

	SpeakInput struct {
		Text       string           `query:"text" maxLength:"4096"`
		Model      string           `query:"model_name"`
		Vocoder    string           `query:"vocoder_name"`
		Processor  string           `query:"processor_name"`
		Parameters string           `query:"parameters" doc:"JSON-encoded parameters"`
		Body       *SpeakRequestDTO `required:"false"`
	}

	SpeakOutput struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		JobID              string `header:"X-Job-Id"`
		SampleRate         string `header:"X-Sample-Rate"`
		Body               []byte
	}
)

// TTSHandler handles HTTP requests for TTS.
type TTSHandler struct {
	service *service.TTS
}

// NewTTSHandler creates a new TTSHandler instance.
func NewTTSHandler(api huma.API, service *service.TTS) *TTSHandler {
	h := &TTSHandler{service: service}

	huma.Register(api, huma.Operation{
		OperationID:   "synthesize",
		Method:        http.MethodPost,
		Path:          "/tts",
		Summary:       "Synthesize speech from text",
		Tags:          []string{"tts"},
		DefaultStatus: http.StatusOK,
	}, h.handleSpeak)

	return h
}

// handleSpeak handles the synthesize operation.
func (h *TTSHandler) handleSpeak(ctx context.Context, input *SpeakInput) (*SpeakOutput, error) {
	req := service.SpeakRequest{
		Text:      input.Text,
		Text2Mel:  input.Model,
		Vocoder:   input.Vocoder,
		Processor: input.Processor,
	}

	if input.Parameters != "" {
		if err := json.Unmarshal([]byte(input.Parameters), &req.Parameters); err != nil {
			return nil, huma.Error400BadRequest("invalid parameters JSON", err)
		}
	}

	if b := input.Body; b != nil {
		req.Text = firstNonEmpty(b.Text, req.Text)
		req.Text2Mel = firstNonEmpty(b.Model, req.Text2Mel)
		req.Vocoder = firstNonEmpty(b.Vocoder, req.Vocoder)
		req.Processor = firstNonEmpty(b.Processor, req.Processor)
		if b.Parameters != nil {
			req.Parameters = b.Parameters
		}
	}

	speech, err := h.service.Speak(ctx, req)
	if err != nil {
		return nil, toHTTPError("failed to synthesize", err)
	}

	return &SpeakOutput{
		ContentType:        "audio/wav",
		ContentDisposition: `attachment; filename="output.wav"`,
		JobID:              speech.JobID,
		SampleRate:         strconv.Itoa(speech.SampleRate),
		Body:               speech.WAV,
	}, nil
}
