package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d1nch8g/yukitts/logging"
)

// SynthesizeToFile synthesizes text with s and writes the audio to path.
//
// Audio is streamed into a temporary file in the same directory and renamed
// into place once the backend reports success, so path is either the complete
// result or untouched. It returns the number of bytes written.
func SynthesizeToFile(ctx context.Context, s Synthesizer, text string, options SynthesisOptions, path string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyText
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	audioData := make(chan []byte, 16)
	synthErr := make(chan error, 1)
	go func() {
		defer close(audioData)
		synthErr <- s.SynthesizeToStreamWithContext(ctx, text, options, audioData)
	}()

	var written int64
	var writeErr error
	for chunk := range audioData {
		// Keep draining after a write failure so the backend never blocks.
		if writeErr != nil {
			continue
		}
		n, err := tmp.Write(chunk)
		written += int64(n)
		if err != nil {
			writeErr = err
		}
	}

	if err := <-synthErr; err != nil {
		return 0, fmt.Errorf("%s synthesis failed: %w", s.Name(), err)
	}
	if writeErr != nil {
		return 0, fmt.Errorf("failed to write audio: %w", writeErr)
	}
	if written == 0 {
		return 0, ErrEmptyAudio
	}

	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("failed to flush audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close audio file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		committed = true
		return 0, fmt.Errorf("failed to move audio into place: %w", err)
	}
	committed = true

	logging.Debugf("wrote %d bytes of %s audio to %s", written, s.Name(), path)
	return written, nil
}
