package tfts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/ttsapi/internal/config"
	"github.com/ekisa-team/ttsapi/internal/model"
)

// fakeBridge is an in-memory implementation of the bridge protocol.
type fakeBridge struct {
	mu        sync.Mutex
	loads     []loadRequest
	inference []inferenceRequest
}

func (b *fakeBridge) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /models", func(w http.ResponseWriter, r *http.Request) {
		var req loadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		b.loads = append(b.loads, req)
		b.mu.Unlock()

		if req.Name == "broken" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "unsupported checkpoint"})
			return
		}

		resp := LoadResponse{Handle: string(req.Kind) + ":" + req.Name}
		if req.Kind == KindProcessor && req.Name == "TACOTRON" {
			resp.SampleRate = 24000
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("POST /text_to_sequence", func(w http.ResponseWriter, r *http.Request) {
		var req sequenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ids := make([]int32, len(req.Text))
		for i := range len(req.Text) {
			ids[i] = int32(req.Text[i])
		}
		_ = json.NewEncoder(w).Encode(sequenceResponse{InputIDs: ids})
	})

	mux.HandleFunc("POST /inference", func(w http.ResponseWriter, r *http.Request) {
		var req inferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		b.inference = append(b.inference, req)
		b.mu.Unlock()

		mel := make([][]float32, len(req.InputIDs[0]))
		for i := range mel {
			mel[i] = []float32{0.1, 0.2, 0.3}
		}
		_ = json.NewEncoder(w).Encode(inferenceResponse{MelOutputs: mel})
	})

	mux.HandleFunc("POST /vocode", func(w http.ResponseWriter, r *http.Request) {
		var req vocodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Handle != "vocoder:MELGAN" {
			http.Error(w, "no such handle", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(vocodeResponse{Audio: make([]float32, 256*len(req.Mel))})
	})

	return mux
}

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) Download(ctx context.Context, src config.HuggingFaceSource, targetDir string) (string, bool, error) {
	args := m.Called(ctx, src, targetDir)
	return args.String(0), args.Bool(1), args.Error(2)
}

func TestEngine_EndToEndSynthesis(t *testing.T) {
	bridge := &fakeBridge{}
	srv := httptest.NewServer(bridge.handler(t))
	defer srv.Close()

	modelsDir := t.TempDir()
	downloader := new(MockDownloader)
	downloader.On("Download", mock.Anything, config.HuggingFaceSource{Repo: "tensorspeech/tts-tacotron2-ljspeech-en"}, modelsDir).
		Return("/cache/tacotron", false, nil).Twice()
	downloader.On("Download", mock.Anything, config.HuggingFaceSource{Repo: "tensorspeech/tts-melgan-ljspeech-en"}, modelsDir).
		Return("/cache/melgan", true, nil).Once()

	engine := NewEngine(NewClient(srv.URL+"/", time.Second), downloader, modelsDir)
	synth := model.NewSynthesizer(engine)
	ctx := context.Background()

	require.NoError(t, synth.RegisterKnown(ctx, "TACOTRON"))
	require.NoError(t, synth.RegisterKnown(ctx, "MELGAN"))

	res, err := synth.Synthesize(ctx, model.Request{Text: "hey", Text2Mel: "TACOTRON", Vocoder: "MELGAN"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Mel.Frames())
	assert.Equal(t, 3, res.Mel.Channels())
	assert.Len(t, res.Audio, 3*256)
	assert.Equal(t, 24000, res.SampleRate)

	require.Len(t, bridge.inference, 1)
	call := bridge.inference[0]
	assert.Equal(t, "text2mel:TACOTRON", call.Handle)
	assert.Equal(t, [][]int32{{'h', 'e', 'y'}}, call.InputIDs)
	assert.Equal(t, []int32{3}, call.InputLengths)
	assert.Equal(t, []int32{0}, call.SpeakerIDs)

	assert.Equal(t, []loadRequest{
		{Name: "TACOTRON", Kind: KindText2Mel, Path: "/cache/tacotron"},
		{Name: "TACOTRON", Kind: KindProcessor, Path: "/cache/tacotron"},
		{Name: "MELGAN", Kind: KindVocoder, Path: "/cache/melgan"},
	}, bridge.loads)
	downloader.AssertExpectations(t)
}

func TestEngine_LocalPathSkipsDownload(t *testing.T) {
	bridge := &fakeBridge{}
	srv := httptest.NewServer(bridge.handler(t))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "processor.json")
	require.NoError(t, os.WriteFile(dir, []byte("{}"), 0o644))

	engine := NewEngine(NewClient(srv.URL, time.Second), nil, t.TempDir())
	p, err := engine.LoadProcessor(context.Background(), "custom", dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, p.SampleRate())
	assert.Equal(t, dir, bridge.loads[0].Path)

	_, err = engine.LoadVocoder(context.Background(), "remote", "org/repo")
	assert.ErrorContains(t, err, "downloads are disabled")
}

func TestEngine_BridgeErrors(t *testing.T) {
	bridge := &fakeBridge{}
	srv := httptest.NewServer(bridge.handler(t))
	defer srv.Close()

	local := t.TempDir()
	engine := NewEngine(NewClient(srv.URL, time.Second), nil, "")
	ctx := context.Background()

	_, err := engine.LoadText2Mel(ctx, "broken", local)
	assert.ErrorIs(t, err, ErrEngine)
	assert.ErrorContains(t, err, "unsupported checkpoint")

	v, err := engine.LoadVocoder(ctx, "OTHER", local)
	require.NoError(t, err)
	_, err = v.Vocode(ctx, model.Mel{{0.1}})
	assert.ErrorIs(t, err, ErrEngine)
	assert.ErrorContains(t, err, "no such handle")
}

func TestEngine_DownloadFailure(t *testing.T) {
	downloader := new(MockDownloader)
	downloader.On("Download", mock.Anything, mock.Anything, "/cache").Return("", false, errors.New("hf exited 1")).Once()

	engine := NewEngine(NewClient("http://127.0.0.1:1", time.Second), downloader, "/cache")
	_, err := engine.LoadVocoder(context.Background(), "MELGAN", "tensorspeech/tts-melgan-ljspeech-en")
	assert.ErrorContains(t, err, "hf exited 1")
	downloader.AssertExpectations(t)
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer((&fakeBridge{}).handler(t))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL, time.Second).Health(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	assert.ErrorIs(t, NewClient(down.URL, time.Second).Health(context.Background()), ErrEngine)
}

func TestServerConfig(t *testing.T) {
	cfg := ServerConfig(config.EngineConfig{
		BinPath:      "/opt/bridge/tts-bridge",
		Args:         []string{"--device", "cpu"},
		Port:         5100,
		ReadyTimeout: time.Minute,
	})

	assert.Equal(t, ServerName, cfg.Name)
	assert.Equal(t, "/opt/bridge/tts-bridge", cfg.BinPath)
	assert.Equal(t, []string{"--device", "cpu", "--port", "5100"}, cfg.Args)
	assert.Equal(t, "/health", cfg.HealthPath)
	assert.Equal(t, time.Minute, cfg.ReadyTimeout)
}
