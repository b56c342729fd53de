package audio

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
)

func inspectMP3(r io.ReadSeeker, info *Info) error {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return err
	}
	info.SampleRate = d.SampleRate()
	info.Channels = mp3Channels
	info.BitDepth = 16
	if length := d.Length(); length > 0 && info.SampleRate > 0 {
		frames := length / mp3BytesPerFrame
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}
	return nil
}

func decodeMP3(r io.ReadSeeker) (*Clip, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return &Clip{
		Samples:    samples,
		SampleRate: d.SampleRate(),
		Channels:   mp3Channels,
	}, nil
}
