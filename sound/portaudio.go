package sound

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/d1nch8g/yukitts/audio"
	"github.com/d1nch8g/yukitts/logging"
)

type PlayerConfig struct {
	FramesPerBuffer int
}

type PortaudioPlayer struct {
	config PlayerConfig
}

var _ Player = (*PortaudioPlayer)(nil)

func NewPortaudioPlayer(config PlayerConfig) *PortaudioPlayer {
	if config.FramesPerBuffer <= 0 {
		config.FramesPerBuffer = GetDefaultConfig().FramesPerBuffer
	}
	return &PortaudioPlayer{config: config}
}

func GetDefaultConfig() PlayerConfig {
	return PlayerConfig{
		FramesPerBuffer: 1024,
	}
}

func (p *PortaudioPlayer) Initialize() error {
	return portaudio.Initialize()
}

func (p *PortaudioPlayer) Terminate() {
	if err := portaudio.Terminate(); err != nil {
		logging.Warnf("portaudio terminate: %v", err)
	}
}

func (p *PortaudioPlayer) Play(ctx context.Context, clip *audio.Clip) error {
	if clip == nil || clip.Channels <= 0 || clip.SampleRate <= 0 {
		return errors.New("nothing to play")
	}

	buffer := make([]int16, p.config.FramesPerBuffer*clip.Channels)
	stream, err := portaudio.OpenDefaultStream(
		0,
		clip.Channels,
		float64(clip.SampleRate),
		p.config.FramesPerBuffer,
		buffer,
	)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	logging.Debugf("playing %s of audio at %d Hz", clip.Duration(), clip.SampleRate)
	for _, frame := range frames(clip.Samples, len(buffer)) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		copy(buffer, frame)
		if err := stream.Write(); err != nil {
			if errors.Is(err, portaudio.OutputUnderflowed) {
				continue
			}
			return fmt.Errorf("failed to write audio: %w", err)
		}
	}
	return nil
}
