package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ekisa-team/ttsapi/internal/config"
)

// Downloader fetches a model repository and returns its local directory.
type Downloader interface {
	Download(ctx context.Context, src config.HuggingFaceSource, targetDir string) (string, bool, error)
}

// Manager applies the models section of the configuration to a Synthesizer.
type Manager struct {
	synth      *Synthesizer
	downloader Downloader
	modelsDir  string
	applied    map[string]string // registry key -> fingerprint of the config that produced it
	mu         sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDownloader fetches Hugging Face sources of custom models below dir with every
// configured repository setting, then loads the downloaded directory.
func WithDownloader(d Downloader, dir string) ManagerOption {
	return func(m *Manager) {
		m.downloader = d
		m.modelsDir = dir
	}
}

// NewManager creates a Manager for synth.
func NewManager(synth *Synthesizer, opts ...ManagerOption) *Manager {
	m := &Manager{
		synth:   synth,
		applied: map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Synthesizer returns the managed synthesizer.
func (m *Manager) Synthesizer() *Synthesizer {
	return m.synth
}

// LoadModelsFromConfig registers the preloaded known models and the custom models of cfg.
// Entries already applied with an identical configuration are skipped. A failing entry
// does not prevent the others from loading; all failures are joined in the returned error.
func (m *Manager) LoadModelsFromConfig(ctx context.Context, cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	wanted := make(map[string]bool)

	for _, name := range cfg.Models.Preload {
		key := "known/" + name
		wanted[key] = true
		if m.applied[key] == name {
			continue
		}

		if err := m.synth.RegisterKnown(ctx, name); err != nil {
			slog.Error("Failed to register known model", "name", name, "error", err)
			errs = append(errs, err)
			continue
		}
		m.applied[key] = name
	}

	for name, modelConfig := range cfg.Models.Custom {
		key := "custom/" + name
		wanted[key] = true

		fingerprint, err := json.Marshal(modelConfig)
		if err != nil {
			errs = append(errs, fmt.Errorf("fingerprint %s: %w", name, err))
			continue
		}
		if m.applied[key] == string(fingerprint) {
			continue
		}

		if err := m.loadCustom(ctx, name, modelConfig); err != nil {
			slog.Error("Failed to load custom model", "name", name, "error", err)
			errs = append(errs, err)
			continue
		}
		m.applied[key] = string(fingerprint)
	}

	// Models are never unregistered at runtime; forget them so a later re-add reloads.
	for key := range m.applied {
		if !wanted[key] {
			delete(m.applied, key)
			slog.Info("Model removed from config, it stays registered until restart", "entry", key)
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) loadCustom(ctx context.Context, name string, modelConfig config.ModelConfig) error {
	modelSource, err := modelConfig.GetSource()
	if err != nil {
		return fmt.Errorf("failed to get model source for %s: %w", name, err)
	}

	var load func(location string) error
	switch modelConfig.Kind {
	case config.ModelKindText2Mel:
		load = func(location string) error {
			return m.synth.LoadCustomText2Mel(ctx, name, location, modelConfig.Inference, modelConfig.Processor)
		}
	case config.ModelKindVocoder:
		load = func(location string) error {
			return m.synth.LoadCustomVocoder(ctx, name, location)
		}
	case config.ModelKindProcessor:
		load = func(location string) error {
			return m.synth.LoadCustomProcessor(ctx, name, location)
		}
	default:
		return fmt.Errorf("unsupported model kind %q for %s", modelConfig.Kind, name)
	}

	location := modelSource.Location()
	if hf, ok := modelSource.(config.HuggingFaceSource); ok && m.downloader != nil {
		path, cached, err := m.downloader.Download(ctx, hf, m.modelsDir)
		if err != nil {
			return fmt.Errorf("download %s: %w", name, err)
		}
		slog.Debug("Custom model fetched", "name", name, "repo", hf.Repo, "revision", hf.Revision, "path", path, "cached", cached)
		location = path
	}

	return load(location)
}
