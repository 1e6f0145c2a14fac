package model

import (
	"context"
	"fmt"
	"log/slog"
)

// Synthesizer owns the loaded models and runs the text → mel → waveform pipeline.
//
// Text-to-mel models, vocoders and processors live in independent tables, so any
// text-to-mel model may be paired with any vocoder and processor. Tensor shape
// compatibility between them is not checked.
type Synthesizer struct {
	text2mel   *Registry[Text2Mel]
	vocoders   *Registry[VocoderModel]
	processors *Registry[Processor]
	plugins    *Registry[InferenceFunc]
	loader     Loader
}

// NewSynthesizer creates an empty synthesizer. loader may be nil when every model
// is registered through the Load* methods.
func NewSynthesizer(loader Loader) *Synthesizer {
	return &Synthesizer{
		text2mel:   NewRegistry[Text2Mel](),
		vocoders:   NewRegistry[VocoderModel](),
		processors: NewRegistry[Processor](),
		plugins:    NewRegistry[InferenceFunc](),
		loader:     loader,
	}
}

// LoadText2Mel registers m under name, replacing any model of the same name.
func (s *Synthesizer) LoadText2Mel(name string, m Text2MelModel, inference InferenceFunc) {
	s.text2mel.Set(name, Text2Mel{Model: m, Inference: inference})
}

// LoadVocoder registers v under name, replacing any vocoder of the same name.
func (s *Synthesizer) LoadVocoder(name string, v VocoderModel) {
	s.vocoders.Set(name, v)
}

// LoadProcessor registers p under name, replacing any processor of the same name.
func (s *Synthesizer) LoadProcessor(name string, p Processor) {
	s.processors.Set(name, p)
}

// RegisterInference adds a named inference strategy for custom architectures.
// Built-in architecture names cannot be shadowed.
func (s *Synthesizer) RegisterInference(name string, fn InferenceFunc) error {
	if _, ok := ParseArchitecture(name); ok {
		return fmt.Errorf("inference %q is a built-in architecture", name)
	}
	s.plugins.Set(name, fn)
	return nil
}

// Inference resolves an architecture or plugin name to its strategy.
func (s *Synthesizer) Inference(name string) (InferenceFunc, error) {
	if a, ok := ParseArchitecture(name); ok {
		return a.Inference(), nil
	}
	if fn, ok := s.plugins.Get(name); ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownInference, name)
}

// RegisterKnown loads a model of the fixed table through the loader.
// Text-to-mel names register both a text2mel model and a processor under name;
// vocoder names register only a vocoder.
func (s *Synthesizer) RegisterKnown(ctx context.Context, name string) error {
	if s.loader == nil {
		return ErrNoLoader
	}

	if k, ok := LookupKnownText2Mel(name); ok {
		m, err := s.loader.LoadText2Mel(ctx, name, k.Location)
		if err != nil {
			return fmt.Errorf("load text2mel %s: %w", name, err)
		}
		p, err := s.loader.LoadProcessor(ctx, name, k.Location)
		if err != nil {
			return fmt.Errorf("load processor %s: %w", name, err)
		}

		s.LoadText2Mel(name, m, k.Architecture.Inference())
		s.LoadProcessor(name, p)
		slog.Info("Known model registered", "name", name, "kind", "text2mel", "location", k.Location)
		return nil
	}

	if location, ok := LookupKnownVocoder(name); ok {
		v, err := s.loader.LoadVocoder(ctx, name, location)
		if err != nil {
			return fmt.Errorf("load vocoder %s: %w", name, err)
		}

		s.LoadVocoder(name, v)
		slog.Info("Known model registered", "name", name, "kind", "vocoder", "location", location)
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownKnownModel, name)
}

// RegisterKnownModels registers every model of the fixed table. It stops at the
// first failure; models registered before it stay registered.
func (s *Synthesizer) RegisterKnownModels(ctx context.Context) error {
	known := KnownModels()
	for _, name := range append(known.Text2Mel, known.Vocoder...) {
		if err := s.RegisterKnown(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// LoadCustomText2Mel loads a text-to-mel model from location and registers it with the
// named inference strategy. A non-empty processorLocation also registers a processor under name.
func (s *Synthesizer) LoadCustomText2Mel(ctx context.Context, name, location, inference, processorLocation string) error {
	if s.loader == nil {
		return ErrNoLoader
	}

	fn, err := s.Inference(inference)
	if err != nil {
		return err
	}

	m, err := s.loader.LoadText2Mel(ctx, name, location)
	if err != nil {
		return fmt.Errorf("load text2mel %s: %w", name, err)
	}

	var p Processor
	if processorLocation != "" {
		if p, err = s.loader.LoadProcessor(ctx, name, processorLocation); err != nil {
			return fmt.Errorf("load processor %s: %w", name, err)
		}
	}

	s.LoadText2Mel(name, m, fn)
	if p != nil {
		s.LoadProcessor(name, p)
	}
	slog.Info("Custom model registered", "name", name, "kind", "text2mel", "location", location, "inference", inference)
	return nil
}

// LoadCustomVocoder loads a vocoder from location and registers it under name.
func (s *Synthesizer) LoadCustomVocoder(ctx context.Context, name, location string) error {
	if s.loader == nil {
		return ErrNoLoader
	}

	v, err := s.loader.LoadVocoder(ctx, name, location)
	if err != nil {
		return fmt.Errorf("load vocoder %s: %w", name, err)
	}

	s.LoadVocoder(name, v)
	slog.Info("Custom model registered", "name", name, "kind", "vocoder", "location", location)
	return nil
}

// LoadCustomProcessor loads a processor from location and registers it under name.
func (s *Synthesizer) LoadCustomProcessor(ctx context.Context, name, location string) error {
	if s.loader == nil {
		return ErrNoLoader
	}

	p, err := s.loader.LoadProcessor(ctx, name, location)
	if err != nil {
		return fmt.Errorf("load processor %s: %w", name, err)
	}

	s.LoadProcessor(name, p)
	slog.Info("Custom model registered", "name", name, "kind", "processor", "location", location)
	return nil
}

// ListText2Mel returns the registered text-to-mel names.
func (s *Synthesizer) ListText2Mel() []string {
	return s.text2mel.Names()
}

// ListVocoders returns the registered vocoder names.
func (s *Synthesizer) ListVocoders() []string {
	return s.vocoders.Names()
}

// ListProcessors returns the registered processor names.
func (s *Synthesizer) ListProcessors() []string {
	return s.processors.Names()
}

// Loaded groups the registered names of each table.
type Loaded struct {
	Text2Mel  []string `json:"text2mel"`
	Vocoder   []string `json:"vocoder"`
	Processor []string `json:"processor"`
}

// ListLoaded returns the registered names of all three tables.
func (s *Synthesizer) ListLoaded() Loaded {
	return Loaded{
		Text2Mel:  s.ListText2Mel(),
		Vocoder:   s.ListVocoders(),
		Processor: s.ListProcessors(),
	}
}

// ListKnown returns the names of the fixed model table, loaded or not.
func (s *Synthesizer) ListKnown() Known {
	return KnownModels()
}

// Request is a synthesis request. An empty Processor defaults to Text2Mel,
// nil Controls to DefaultControls.
type Request struct {
	Controls  *Controls
	Text      string
	Text2Mel  string
	Vocoder   string
	Processor string
}

// Result is the output of a synthesis.
type Result struct {
	Mel        Mel
	Audio      Waveform
	SampleRate int
}

// Synthesize converts text to audio with the named processor, text-to-mel model and vocoder.
// Any stage failure aborts the call.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	processorName := req.Processor
	if processorName == "" {
		processorName = req.Text2Mel
	}

	processor, ok := s.processors.Get(processorName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcessor, processorName)
	}

	ids, err := processor.TextToSequence(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("text to sequence: %w", err)
	}

	t2m, ok := s.text2mel.Get(req.Text2Mel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownText2Mel, req.Text2Mel)
	}

	controls := DefaultControls()
	if req.Controls != nil {
		controls = *req.Controls
	}

	mel, err := t2m.Inference(ctx, t2m.Model, ids, controls)
	if err != nil {
		return nil, err
	}

	vocoder, ok := s.vocoders.Get(req.Vocoder)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVocoder, req.Vocoder)
	}

	audio, err := vocoder.Vocode(ctx, mel)
	if err != nil {
		return nil, fmt.Errorf("vocoder: %w", err)
	}

	slog.Debug("Synthesis finished",
		"text2mel", req.Text2Mel,
		"vocoder", req.Vocoder,
		"processor", processorName,
		"tokens", len(ids),
		"frames", mel.Frames(),
		"samples", len(audio))

	return &Result{
		Mel:        mel,
		Audio:      audio,
		SampleRate: processor.SampleRate(),
	}, nil
}
