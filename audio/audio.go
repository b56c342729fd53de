// Package audio identifies, inspects and decodes the files the synthesizers
// write. WAV and MP3 are decoded; OGG is recognised but not decoded.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
	FormatOGG = "ogg"
)

var ErrUnsupported = errors.New("audio: unsupported format")

// Info describes an audio file on disk.
type Info struct {
	Format     string
	Size       int64
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

func (i Info) String() string {
	if i.SampleRate == 0 {
		return fmt.Sprintf("%s, %d bytes", i.Format, i.Size)
	}
	return fmt.Sprintf("%s, %d bytes, %d Hz, %d ch, %s", i.Format, i.Size, i.SampleRate, i.Channels, i.Duration.Round(time.Millisecond))
}

// Clip is decoded interleaved 16-bit PCM.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Sniff identifies the container from the first bytes of a file.
func Sniff(header []byte) string {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case len(header) >= 4 && bytes.Equal(header[0:4], []byte("OggS")):
		return FormatOGG
	case len(header) >= 3 && bytes.Equal(header[0:3], []byte("ID3")):
		return FormatMP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return ""
}

// Inspect reads the header of the file at path.
func Inspect(path string) (Info, error) {
	file, format, err := open(path)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", path, err)
	}
	info := Info{Format: format, Size: stat.Size()}

	switch format {
	case FormatWAV:
		err = inspectWAV(file, &info)
	case FormatMP3:
		err = inspectMP3(file, &info)
	case FormatOGG:
	default:
		err = ErrUnsupported
	}
	if err != nil {
		return info, fmt.Errorf("inspect %s: %w", path, err)
	}
	return info, nil
}

// Load decodes the file at path into PCM.
func Load(path string) (*Clip, error) {
	file, format, err := open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var clip *Clip
	switch format {
	case FormatWAV:
		clip, err = decodeWAV(file)
	case FormatMP3:
		clip, err = decodeMP3(file)
	default:
		err = ErrUnsupported
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

func open(path string) (*os.File, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}

	header := make([]byte, 12)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		file.Close()
		return nil, "", fmt.Errorf("read header of %s: %w", path, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, "", err
	}
	return file, Sniff(header[:n]), nil
}
