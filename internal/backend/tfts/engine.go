package tfts

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/ekisa-team/ttsapi/internal/backend"
	"github.com/ekisa-team/ttsapi/internal/config"
	"github.com/ekisa-team/ttsapi/internal/model"
	"github.com/ekisa-team/ttsapi/internal/xfs"
)

// ServerName identifies the bridge process in the backend.ServerManager.
const ServerName = "tts-bridge"

// DefaultSampleRate is used when the bridge does not report one (LJSpeech).
const DefaultSampleRate = 22050

// Downloader fetches a model repository and returns its local directory.
type Downloader interface {
	Download(ctx context.Context, src config.HuggingFaceSource, targetDir string) (string, bool, error)
}

// Engine loads models into the bridge. It implements model.Loader.
type Engine struct {
	client     *Client
	downloader Downloader
	modelsDir  string
}

var _ model.Loader = (*Engine)(nil)

// NewEngine creates an engine. Locations that are not local paths are fetched with
// downloader into modelsDir; a nil downloader restricts the engine to local paths.
func NewEngine(client *Client, downloader Downloader, modelsDir string) *Engine {
	return &Engine{
		client:     client,
		downloader: downloader,
		modelsDir:  modelsDir,
	}
}

// ServerConfig describes how backend.ServerManager launches the bridge.
func ServerConfig(cfg config.EngineConfig) backend.ServerConfig {
	args := append([]string{}, cfg.Args...)
	args = append(args, "--port", strconv.Itoa(cfg.Port))

	return backend.ServerConfig{
		Name:         ServerName,
		BinPath:      xfs.ExpandTilde(cfg.BinPath),
		Args:         args,
		Port:         cfg.Port,
		HealthPath:   "/health",
		ReadyTimeout: cfg.ReadyTimeout,
	}
}

// LoadText2Mel implements model.Loader.
func (e *Engine) LoadText2Mel(ctx context.Context, name, location string) (model.Text2MelModel, error) {
	resp, err := e.load(ctx, KindText2Mel, name, location)
	if err != nil {
		return nil, err
	}
	return &text2Mel{client: e.client, handle: resp.Handle}, nil
}

// LoadVocoder implements model.Loader.
func (e *Engine) LoadVocoder(ctx context.Context, name, location string) (model.VocoderModel, error) {
	resp, err := e.load(ctx, KindVocoder, name, location)
	if err != nil {
		return nil, err
	}
	return &vocoder{client: e.client, handle: resp.Handle}, nil
}

// LoadProcessor implements model.Loader.
func (e *Engine) LoadProcessor(ctx context.Context, name, location string) (model.Processor, error) {
	resp, err := e.load(ctx, KindProcessor, name, location)
	if err != nil {
		return nil, err
	}

	rate := resp.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &processor{client: e.client, handle: resp.Handle, sampleRate: rate}, nil
}

func (e *Engine) load(ctx context.Context, kind Kind, name, location string) (*LoadResponse, error) {
	path, err := e.resolve(ctx, location)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Load(ctx, kind, name, path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Bridge loaded model", "name", name, "kind", kind, "path", path, "handle", resp.Handle)
	return resp, nil
}

// resolve maps a location to a path the bridge can read.
func (e *Engine) resolve(ctx context.Context, location string) (string, error) {
	local := xfs.ExpandTilde(location)
	if xfs.Exists(local) {
		return filepath.Abs(local)
	}

	if e.downloader == nil {
		return "", fmt.Errorf("tfts: %s is not a local path and downloads are disabled", location)
	}

	path, _, err := e.downloader.Download(ctx, config.HuggingFaceSource{Repo: location}, e.modelsDir)
	if err != nil {
		return "", fmt.Errorf("tfts: fetch %s: %w", location, err)
	}
	return path, nil
}

type text2Mel struct {
	client *Client
	handle string
}

func (m *text2Mel) Infer(ctx context.Context, in model.InferenceInput) (model.Mel, error) {
	mel, err := m.client.inference(ctx, inferenceRequest{
		Handle:       m.handle,
		InputIDs:     in.InputIDs,
		InputLengths: in.InputLengths,
		SpeakerIDs:   in.SpeakerIDs,
		SpeedRatios:  in.SpeedRatios,
		F0Ratios:     in.F0Ratios,
		EnergyRatios: in.EnergyRatios,
	})
	if err != nil {
		return nil, err
	}
	return model.Mel(mel), nil
}

type vocoder struct {
	client *Client
	handle string
}

func (v *vocoder) Vocode(ctx context.Context, mel model.Mel) (model.Waveform, error) {
	audio, err := v.client.Vocode(ctx, v.handle, mel)
	if err != nil {
		return nil, err
	}
	return model.Waveform(audio), nil
}

type processor struct {
	client     *Client
	handle     string
	sampleRate int
}

func (p *processor) TextToSequence(ctx context.Context, text string) ([]int32, error) {
	return p.client.TextToSequence(ctx, p.handle, text)
}

func (p *processor) SampleRate() int {
	return p.sampleRate
}
