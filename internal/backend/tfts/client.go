// Package tfts talks to the TensorFlowTTS bridge, a long-running process that
// hosts the networks and exposes them over a small JSON protocol.
package tfts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEngine is wrapped by every error the bridge reports.
var ErrEngine = errors.New("tfts: engine error")

// Kind is the type of network or processor a handle refers to.
type Kind string

const (
	KindText2Mel  Kind = "text2mel"
	KindVocoder   Kind = "vocoder"
	KindProcessor Kind = "processor"
)

type loadRequest struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// LoadResponse describes a loaded network or processor.
type LoadResponse struct {
	Handle     string `json:"handle"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type sequenceRequest struct {
	Handle string `json:"handle"`
	Text   string `json:"text"`
}

type sequenceResponse struct {
	InputIDs []int32 `json:"input_ids"`
}

type inferenceRequest struct {
	Handle       string    `json:"handle"`
	InputIDs     [][]int32 `json:"input_ids"`
	InputLengths []int32   `json:"input_lengths,omitempty"`
	SpeakerIDs   []int32   `json:"speaker_ids,omitempty"`
	SpeedRatios  []float32 `json:"speed_ratios,omitempty"`
	F0Ratios     []float32 `json:"f0_ratios,omitempty"`
	EnergyRatios []float32 `json:"energy_ratios,omitempty"`
}

type inferenceResponse struct {
	MelOutputs [][]float32 `json:"mel_outputs"`
}

type vocodeRequest struct {
	Handle string      `json:"handle"`
	Mel    [][]float32 `json:"mel"`
}

type vocodeResponse struct {
	Audio []float32 `json:"audio"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client is an HTTP client for the bridge protocol.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the bridge at baseURL. timeout bounds each call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health reports whether the bridge answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tfts: health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %s", ErrEngine, resp.Status)
	}
	return nil
}

// Load asks the bridge to load the network or processor stored at path.
func (c *Client) Load(ctx context.Context, kind Kind, name, path string) (*LoadResponse, error) {
	var out LoadResponse
	if err := c.post(ctx, "/models", loadRequest{Name: name, Kind: kind, Path: path}, &out); err != nil {
		return nil, err
	}
	if out.Handle == "" {
		return nil, fmt.Errorf("%w: empty handle for %s %s", ErrEngine, kind, name)
	}
	return &out, nil
}

// TextToSequence converts text into token ids with a processor handle.
func (c *Client) TextToSequence(ctx context.Context, handle, text string) ([]int32, error) {
	var out sequenceResponse
	if err := c.post(ctx, "/text_to_sequence", sequenceRequest{Handle: handle, Text: text}, &out); err != nil {
		return nil, err
	}
	return out.InputIDs, nil
}

func (c *Client) inference(ctx context.Context, req inferenceRequest) ([][]float32, error) {
	var out inferenceResponse
	if err := c.post(ctx, "/inference", req, &out); err != nil {
		return nil, err
	}
	return out.MelOutputs, nil
}

// Vocode turns a mel-spectrogram into audio samples with a vocoder handle.
func (c *Client) Vocode(ctx context.Context, handle string, mel [][]float32) ([]float32, error) {
	var out vocodeResponse
	if err := c.post(ctx, "/vocode", vocodeRequest{Handle: handle, Mel: mel}, &out); err != nil {
		return nil, err
	}
	return out.Audio, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("tfts: encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tfts: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e errorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %s: %s", ErrEngine, path, e.Error)
		}
		return fmt.Errorf("%w: %s returned %s: %s", ErrEngine, path, resp.Status, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tfts: decode %s response: %w", path, err)
	}
	return nil
}
