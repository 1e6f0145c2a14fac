package model

import (
	"context"
	"fmt"
	"strings"
)

// Architecture is a text-to-mel network family with a known calling convention.
type Architecture string

const (
	ArchitectureTacotron2   Architecture = "tacotron2"
	ArchitectureFastSpeech  Architecture = "fastspeech"
	ArchitectureFastSpeech2 Architecture = "fastspeech2"
)

// ParseArchitecture matches s case-insensitively against the built-in architectures.
func ParseArchitecture(s string) (Architecture, bool) {
	a := Architecture(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ArchitectureTacotron2, ArchitectureFastSpeech, ArchitectureFastSpeech2:
		return a, true
	}
	return "", false
}

// Inference returns the strategy used to call models of this architecture.
func (a Architecture) Inference() InferenceFunc {
	switch a {
	case ArchitectureTacotron2:
		return tacotron2Inference
	case ArchitectureFastSpeech:
		return fastSpeechInference
	case ArchitectureFastSpeech2:
		return fastSpeech2Inference
	}
	return nil
}

// tacotron2Inference passes ids, their length and the speaker.
func tacotron2Inference(ctx context.Context, m Text2MelModel, ids []int32, c Controls) (Mel, error) {
	return infer(ctx, m, InferenceInput{
		InputIDs:     [][]int32{ids},
		InputLengths: []int32{int32(len(ids))},
		SpeakerIDs:   []int32{c.SpeakerID},
	})
}

// fastSpeechInference passes ids, the speaker and a speed ratio.
func fastSpeechInference(ctx context.Context, m Text2MelModel, ids []int32, c Controls) (Mel, error) {
	return infer(ctx, m, InferenceInput{
		InputIDs:    [][]int32{ids},
		SpeakerIDs:  []int32{c.SpeakerID},
		SpeedRatios: []float32{c.SpeedRatio},
	})
}

// fastSpeech2Inference additionally passes pitch and energy ratios.
func fastSpeech2Inference(ctx context.Context, m Text2MelModel, ids []int32, c Controls) (Mel, error) {
	return infer(ctx, m, InferenceInput{
		InputIDs:     [][]int32{ids},
		SpeakerIDs:   []int32{c.SpeakerID},
		SpeedRatios:  []float32{c.SpeedRatio},
		F0Ratios:     []float32{c.F0Ratio},
		EnergyRatios: []float32{c.EnergyRatio},
	})
}

func infer(ctx context.Context, m Text2MelModel, in InferenceInput) (Mel, error) {
	mel, err := m.Infer(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("text2mel inference: %w", err)
	}
	return mel, nil
}
