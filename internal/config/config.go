package config

import (
	"errors"
	"time"
)

// SourceType represents the type of model source.
type SourceType string

const (
	// SourceTypeHuggingFace represents a Hugging Face model repository source.
	SourceTypeHuggingFace SourceType = "huggingface"

	// SourceTypeLocal represents a model already present on disk.
	SourceTypeLocal SourceType = "local"
)

// ModelKind is the registry mapping a configured model is loaded into.
type ModelKind string

const (
	ModelKindText2Mel  ModelKind = "text2mel"
	ModelKindVocoder   ModelKind = "vocoder"
	ModelKindProcessor ModelKind = "processor"
)

// Config holds the main configuration for the application.
type Config struct {
	Version string        `json:"version"           yaml:"version"`
	Server  ServerConfig  `json:"server,omitempty"  yaml:"server,omitempty"`
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	Engine  EngineConfig  `json:"engine,omitempty"  yaml:"engine,omitempty"`
	Models  ModelsConfig  `json:"models,omitempty"  yaml:"models,omitempty"`
}

// ServerConfig holds the listen addresses of the HTTP and gRPC servers.
type ServerConfig struct {
	Host     string `json:"host,omitempty"      yaml:"host,omitempty"`
	HTTPPort int    `json:"http_port,omitempty" yaml:"http_port,omitempty"`
	GRPCPort int    `json:"grpc_port,omitempty" yaml:"grpc_port,omitempty"`
}

// StorageConfig holds the filesystem store root and the known-model download cache.
type StorageConfig struct {
	FilesystemRoot string `json:"filesystem_root,omitempty" yaml:"filesystem_root,omitempty"`
	ModelsDir      string `json:"models_dir,omitempty"      yaml:"models_dir,omitempty"`
}

// EngineConfig describes how to reach the inference bridge.
// When BinPath is set the bridge is spawned and health-checked on Port;
// otherwise URL must point at an already running bridge.
type EngineConfig struct {
	URL            string        `json:"url,omitempty"             yaml:"url,omitempty"`
	BinPath        string        `json:"bin_path,omitempty"        yaml:"bin_path,omitempty"`
	Args           []string      `json:"args,omitempty"            yaml:"args,omitempty"`
	Port           int           `json:"port,omitempty"            yaml:"port,omitempty"`
	ReadyTimeout   time.Duration `json:"ready_timeout,omitempty"   yaml:"ready_timeout,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// ModelsConfig lists the models registered at startup and on every reload.
type ModelsConfig struct {
	// Preload names entries of the built-in known-model table.
	Preload  []string               `json:"preload,omitempty"  yaml:"preload,omitempty"`
	Custom   map[string]ModelConfig `json:"custom,omitempty"   yaml:"custom,omitempty"`
	Defaults DefaultsConfig         `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// DefaultsConfig holds the model names used when a synthesis request omits them.
type DefaultsConfig struct {
	Text2Mel string `json:"text2mel,omitempty" yaml:"text2mel,omitempty"`
	Vocoder  string `json:"vocoder,omitempty"  yaml:"vocoder,omitempty"`
}

// ModelConfig holds configuration for a custom model.
type ModelConfig struct {
	Source SourceConfig `json:"source" yaml:"source"`
	Kind   ModelKind    `json:"kind"   yaml:"kind"`
	// Inference names the text2mel inference strategy (architecture or plugin).
	Inference string `json:"inference,omitempty" yaml:"inference,omitempty"`
	// Processor is the location of the text processor for a text2mel model, if any.
	Processor string `json:"processor,omitempty" yaml:"processor,omitempty"`
}

// SourceConfig wraps optional sources (only one should be set).
type SourceConfig struct {
	HuggingFace *HuggingFaceSource `json:"huggingface,omitempty" yaml:"huggingface,omitempty"`
	Local       *LocalSource       `json:"local,omitempty"       yaml:"local,omitempty"`
}

// -------------------------
// Source definitions
// -------------------------

// ModelSource represents a source for a model.
type ModelSource interface {
	Type() SourceType

	// Location is the string handed to the engine loader.
	Location() string
}

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	RepoType      string   `json:"repo_type,omitempty"      yaml:"repo_type,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"        yaml:"exclude,omitempty"`
	MaxWorkers    int      `json:"max_workers,omitempty"    yaml:"max_workers,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Hugging Face source type.
func (h HuggingFaceSource) Type() SourceType {
	return SourceTypeHuggingFace
}

// Location returns the repository id.
func (h HuggingFaceSource) Location() string {
	return h.Repo
}

// LocalSource is a model file or directory on disk.
type LocalSource struct {
	Path string `json:"path" yaml:"path"`
}

// Type returns the local source type.
func (l LocalSource) Type() SourceType {
	return SourceTypeLocal
}

// Location returns the path on disk.
func (l LocalSource) Location() string {
	return l.Path
}

// GetSource returns the active source for the model.
func (m *ModelConfig) GetSource() (ModelSource, error) {
	switch {
	case m.Source.HuggingFace != nil && m.Source.Local != nil:
		return nil, errors.New("more than one source configured for model")
	case m.Source.HuggingFace != nil:
		return *m.Source.HuggingFace, nil
	case m.Source.Local != nil:
		return *m.Source.Local, nil
	}

	return nil, errors.New("no source configured for model")
}

// SetHuggingFaceSource sets the Hugging Face source.
func (m *ModelConfig) SetHuggingFaceSource(source HuggingFaceSource) {
	m.Source.Local = nil
	m.Source.HuggingFace = &source
}

// SetLocalSource sets the local source.
func (m *ModelConfig) SetLocalSource(source LocalSource) {
	m.Source.HuggingFace = nil
	m.Source.Local = &source
}
