package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ekisa-team/ttsapi/internal/audio"
	"github.com/ekisa-team/ttsapi/internal/config"
	"github.com/ekisa-team/ttsapi/internal/mapsafe"
	"github.com/ekisa-team/ttsapi/internal/metrics"
	"github.com/ekisa-team/ttsapi/internal/model"
	"github.com/google/uuid"
)

// Model names used when neither the request nor the config picks one.
const (
	FallbackText2Mel = "TACOTRON"
	FallbackVocoder  = "MELGAN"
)

// Keys of the synthesis parameter map.
const (
	ParamSpeakerID   = "speaker_id"
	ParamSpeedRatio  = "speed_ratio"
	ParamF0Ratio     = "f0_ratio"
	ParamEnergyRatio = "energy_ratio"
)

// SpeakRequest is a synthesis request as received from a client.
type SpeakRequest struct {
	Text       string
	Text2Mel   string
	Vocoder    string
	Processor  string
	Parameters map[string]any
}

// Speech is an encoded synthesis result.
type Speech struct {
	JobID      string
	WAV        []byte
	SampleRate int
	Duration   time.Duration
	Frames     int
}

// TTS is a service abstraction for text-to-speech.
type TTS struct {
	synth    *model.Synthesizer
	jobsDir  string
	defaults config.DefaultsConfig
	metrics  *metrics.Metrics
}

// NewTTS creates a new TTS service. m may be nil.
func NewTTS(synth *model.Synthesizer, jobsDir string, defaults config.DefaultsConfig, m *metrics.Metrics) *TTS {
	if defaults.Text2Mel == "" {
		defaults.Text2Mel = FallbackText2Mel
	}
	if defaults.Vocoder == "" {
		defaults.Vocoder = FallbackVocoder
	}

	return &TTS{
		synth:    synth,
		jobsDir:  jobsDir,
		defaults: defaults,
		metrics:  m,
	}
}

// Speak synthesizes req.Text and encodes the waveform as WAV.
func (s *TTS) Speak(ctx context.Context, req SpeakRequest) (*Speech, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	text2mel := firstNonEmpty(req.Text2Mel, s.defaults.Text2Mel)
	vocoder := firstNonEmpty(req.Vocoder, s.defaults.Vocoder)
	if text2mel == "" || vocoder == "" {
		return nil, ErrNoModel
	}

	start := time.Now()
	res, err := s.synth.Synthesize(ctx, model.Request{
		Controls:  Controls(req.Parameters),
		Text:      req.Text,
		Text2Mel:  text2mel,
		Vocoder:   vocoder,
		Processor: req.Processor,
	})

	var duration time.Duration
	if err == nil {
		duration = audio.Duration(len(res.Audio), res.SampleRate)
	}
	if s.metrics != nil {
		s.metrics.ObserveSynthesis(text2mel, vocoder, time.Since(start), duration, err)
	}
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	data, err := s.encode(jobID, res)
	if err != nil {
		return nil, err
	}

	slog.Info("Speech synthesized",
		"job", jobID,
		"text2mel", text2mel,
		"vocoder", vocoder,
		"duration", duration,
		"elapsed", time.Since(start))

	return &Speech{
		JobID:      jobID,
		WAV:        data,
		SampleRate: res.SampleRate,
		Duration:   duration,
		Frames:     res.Mel.Frames(),
	}, nil
}

// encode writes the waveform to a scratch file under the jobs directory and
// returns its bytes. The scratch file is always removed.
func (s *TTS) encode(jobID string, res *model.Result) ([]byte, error) {
	path := filepath.Join(s.jobsDir, jobID+".wav")

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create job file: %w", err)
	}
	defer func() {
		_ = f.Close()
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to remove job file", "path", path, "error", err)
		}
	}()

	if err := audio.WriteWAV(f, res.Audio, res.SampleRate); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind job file: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return data, nil
}

// Controls converts a parameter map into synthesis controls.
// Missing or mistyped keys keep their neutral value; a nil map yields nil.
func Controls(params map[string]any) *model.Controls {
	if params == nil {
		return nil
	}

	d := model.DefaultControls()
	return &model.Controls{
		SpeakerID:   mapsafe.Get(params, ParamSpeakerID, d.SpeakerID),
		SpeedRatio:  mapsafe.Get(params, ParamSpeedRatio, d.SpeedRatio),
		F0Ratio:     mapsafe.Get(params, ParamF0Ratio, d.F0Ratio),
		EnergyRatio: mapsafe.Get(params, ParamEnergyRatio, d.EnergyRatio),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
