package model

import "context"

// Mel is a mel-spectrogram with one row of mel channels per frame.
type Mel [][]float32

// Frames returns the number of frames.
func (m Mel) Frames() int {
	return len(m)
}

// Channels returns the number of mel channels, or 0 for an empty spectrogram.
func (m Mel) Channels() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Waveform is mono audio with samples in [-1, 1].
type Waveform []float32

// Controls are the optional conditioning values of a text-to-mel call.
type Controls struct {
	SpeakerID   int32   `json:"speaker_id"`
	SpeedRatio  float32 `json:"speed_ratio"`
	F0Ratio     float32 `json:"f0_ratio"`
	EnergyRatio float32 `json:"energy_ratio"`
}

// DefaultControls returns the neutral controls: speaker 0 and every ratio 1.0.
func DefaultControls() Controls {
	return Controls{
		SpeakerID:   0,
		SpeedRatio:  1,
		F0Ratio:     1,
		EnergyRatio: 1,
	}
}

// InferenceInput holds the batched tensors of one text-to-mel call.
// Nil fields are not passed to the model.
type InferenceInput struct {
	InputIDs     [][]int32
	InputLengths []int32
	SpeakerIDs   []int32
	SpeedRatios  []float32
	F0Ratios     []float32
	EnergyRatios []float32
}

// Text2MelModel is a loaded text-to-mel network.
type Text2MelModel interface {
	Infer(ctx context.Context, in InferenceInput) (Mel, error)
}

// VocoderModel is a loaded vocoder network.
type VocoderModel interface {
	Vocode(ctx context.Context, mel Mel) (Waveform, error)
}

// Processor turns raw text into the token ids a text-to-mel model was trained on.
type Processor interface {
	TextToSequence(ctx context.Context, text string) ([]int32, error)

	// SampleRate is the audio sample rate of the dataset the processor belongs to.
	SampleRate() int
}

// Loader obtains handles from the inference engine.
// location is either a path on disk or a model repository id.
type Loader interface {
	LoadText2Mel(ctx context.Context, name, location string) (Text2MelModel, error)
	LoadVocoder(ctx context.Context, name, location string) (VocoderModel, error)
	LoadProcessor(ctx context.Context, name, location string) (Processor, error)
}

// InferenceFunc runs a text-to-mel model on one sequence of token ids.
type InferenceFunc func(ctx context.Context, m Text2MelModel, ids []int32, c Controls) (Mel, error)

// Text2Mel is a registered text-to-mel model with the strategy used to call it.
type Text2Mel struct {
	Model     Text2MelModel
	Inference InferenceFunc
}
