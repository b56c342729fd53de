package sound

import (
	"context"

	"github.com/d1nch8g/yukitts/audio"
)

// Player defines the interface for audio playback
type Player interface {
	// Initialize initializes the audio playback system
	Initialize() error

	// Terminate terminates the audio playback system
	Terminate()

	// Play blocks until clip has been played or ctx is cancelled
	Play(ctx context.Context, clip *audio.Clip) error
}

// PlayFile decodes the file at path and plays it on p.
func PlayFile(ctx context.Context, p Player, path string) error {
	clip, err := audio.Load(path)
	if err != nil {
		return err
	}

	if err := p.Initialize(); err != nil {
		return err
	}
	defer p.Terminate()

	return p.Play(ctx, clip)
}

// frames splits interleaved samples into buffers of exactly size samples,
// zero-filling the last one.
func frames(samples []int16, size int) [][]int16 {
	if size <= 0 || len(samples) == 0 {
		return nil
	}
	out := make([][]int16, 0, (len(samples)+size-1)/size)
	for i := 0; i < len(samples); i += size {
		frame := make([]int16, size)
		copy(frame, samples[i:min(i+size, len(samples))])
		out = append(out, frame)
	}
	return out
}
