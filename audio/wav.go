package audio

import (
	"errors"
	"io"

	"github.com/go-audio/wav"
)

var errInvalidWAV = errors.New("invalid wav file")

func inspectWAV(r io.ReadSeeker, info *Info) error {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return errInvalidWAV
	}
	info.SampleRate = int(d.SampleRate)
	info.Channels = int(d.NumChans)
	info.BitDepth = int(d.BitDepth)

	duration, err := d.Duration()
	if err != nil {
		return err
	}
	info.Duration = duration
	return nil
}

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errInvalidWAV
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	shift := int(d.BitDepth) - 16
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case d.BitDepth == 8:
			// 8-bit WAV is unsigned.
			samples[i] = int16((v - 128) << 8)
		case shift > 0:
			samples[i] = int16(v >> shift)
		default:
			samples[i] = int16(v)
		}
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}
