package model

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ekisa-team/ttsapi/internal/config"
)

// --- Mock types ---

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) LoadText2Mel(ctx context.Context, name, location string) (Text2MelModel, error) {
	args := m.Called(ctx, name, location)
	if v, ok := args.Get(0).(Text2MelModel); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoader) LoadVocoder(ctx context.Context, name, location string) (VocoderModel, error) {
	args := m.Called(ctx, name, location)
	if v, ok := args.Get(0).(VocoderModel); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoader) LoadProcessor(ctx context.Context, name, location string) (Processor, error) {
	args := m.Called(ctx, name, location)
	if v, ok := args.Get(0).(Processor); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeText2Mel records its inputs and emits one frame per token filled with value.
type fakeText2Mel struct {
	value float32
	err   error

	mu    sync.Mutex
	calls []InferenceInput
}

func (f *fakeText2Mel) Infer(_ context.Context, in InferenceInput) (Mel, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	mel := make(Mel, len(in.InputIDs[0]))
	for i := range mel {
		mel[i] = []float32{f.value, f.value}
	}
	return mel, nil
}

func (f *fakeText2Mel) lastCall() InferenceInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// fakeVocoder emits two samples per frame, scaled by gain.
type fakeVocoder struct {
	gain float32
	err  error
}

func (f *fakeVocoder) Vocode(_ context.Context, mel Mel) (Waveform, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make(Waveform, 0, 2*len(mel))
	for _, frame := range mel {
		out = append(out, frame[0]*f.gain, -frame[0]*f.gain)
	}
	return out, nil
}

// fakeProcessor maps each byte of the text to id offset+byte.
type fakeProcessor struct {
	offset int32
	rate   int
	err    error
}

func (f *fakeProcessor) TextToSequence(_ context.Context, text string) ([]int32, error) {
	if f.err != nil {
		return nil, f.err
	}

	ids := make([]int32, len(text))
	for i := range len(text) {
		ids[i] = f.offset + int32(text[i])
	}
	return ids, nil
}

func (f *fakeProcessor) SampleRate() int {
	return f.rate
}

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) Download(ctx context.Context, src config.HuggingFaceSource, targetDir string) (string, bool, error) {
	args := m.Called(ctx, src, targetDir)
	return args.String(0), args.Bool(1), args.Error(2)
}
