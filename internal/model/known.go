package model

import (
	"maps"
	"slices"
)

// KnownText2Mel describes a pre-trained text-to-mel model of the fixed table.
// Its processor is published at the same location.
type KnownText2Mel struct {
	Location     string
	Architecture Architecture
}

var knownText2Mel = map[string]KnownText2Mel{
	"TACOTRON":    {Location: "tensorspeech/tts-tacotron2-ljspeech-en", Architecture: ArchitectureTacotron2},
	"FASTSPEECH":  {Location: "tensorspeech/tts-fastspeech-ljspeech-en", Architecture: ArchitectureFastSpeech},
	"FASTSPEECH2": {Location: "tensorspeech/tts-fastspeech2-ljspeech-en", Architecture: ArchitectureFastSpeech2},
}

var knownVocoders = map[string]string{
	"MELGAN":    "tensorspeech/tts-melgan-ljspeech-en",
	"MB-MELGAN": "tensorspeech/tts-mb_melgan-ljspeech-en",
}

// Known groups the names of the fixed model table.
type Known struct {
	Text2Mel []string `json:"text2mel"`
	Vocoder  []string `json:"vocoder"`
}

// KnownModels returns the names of the fixed model table in sorted order.
func KnownModels() Known {
	return Known{
		Text2Mel: slices.Sorted(maps.Keys(knownText2Mel)),
		Vocoder:  slices.Sorted(maps.Keys(knownVocoders)),
	}
}

// LookupKnownText2Mel returns the fixed-table entry for a text-to-mel name.
func LookupKnownText2Mel(name string) (KnownText2Mel, bool) {
	k, ok := knownText2Mel[name]
	return k, ok
}

// LookupKnownVocoder returns the location of a fixed-table vocoder.
func LookupKnownVocoder(name string) (string, bool) {
	loc, ok := knownVocoders[name]
	return loc, ok
}
