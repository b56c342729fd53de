package tts

import (
	"context"
	"errors"
)

// Synthesizer defines the interface for text-to-speech synthesis.
// A Synthesizer is the model handle: it is created once per process and owns
// whatever connection or engine state the backend needs.
type Synthesizer interface {
	// Name identifies the backend in logs.
	Name() string

	// SynthesizeToStreamWithContext sends encoded audio chunks for text on
	// audioData. Implementations must not close audioData; the caller owns it.
	SynthesizeToStreamWithContext(ctx context.Context, text string, options SynthesisOptions, audioData chan<- []byte) error

	Close() error
}

// SynthesisOptions represents the configuration for speech synthesis.
// Zero values select the backend default.
type SynthesisOptions struct {
	Model    string
	Voice    string
	Language string
	Speed    float64

	// Volume is read in the backend's own unit: a LUFS loudness hint for
	// yandex, gain in dB (-96 to 16) for google, a 0-100 level for dashscope.
	// coqui ignores it.
	Volume     float64
	Pitch      float64
	Format     string
	SampleRate int
}

const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
	FormatOGG = "ogg"
)

var (
	ErrEmptyText  = errors.New("tts: text is empty")
	ErrEmptyAudio = errors.New("tts: no audio received")
	ErrTransient  = errors.New("tts transient error")
	ErrAuth       = errors.New("tts auth error")
	ErrBadRequest = errors.New("tts bad request")
)

// ValidFormat reports whether format is one of the supported container formats.
func ValidFormat(format string) bool {
	switch format {
	case FormatWAV, FormatMP3, FormatOGG:
		return true
	}
	return false
}
