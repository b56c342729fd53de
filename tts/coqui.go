package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/d1nch8g/yukitts/logging"
)

const (
	DefaultCoquiBinary = "tts"
	DefaultCoquiModel  = "tts_models/ar/mai/tts"

	coquiChunkSize = 32 * 1024
)

type CoquiConfig struct {
	Binary  string
	UseCUDA bool
}

// CoquiClient drives the Coqui TTS command line. The model is loaded by the
// child process, so every synthesis pays the model load cost.
type CoquiClient struct {
	binary  string
	useCUDA bool
}

var _ Synthesizer = (*CoquiClient)(nil)

func NewCoquiClient(config CoquiConfig) (*CoquiClient, error) {
	binary := strings.TrimSpace(config.Binary)
	if binary == "" {
		binary = DefaultCoquiBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("coqui tts executable %q not found: %w", binary, err)
	}
	return &CoquiClient{binary: path, useCUDA: config.UseCUDA}, nil
}

func (c *CoquiClient) Name() string {
	return "coqui"
}

func (c *CoquiClient) SynthesizeToStreamWithContext(ctx context.Context, text string, options SynthesisOptions, audioData chan<- []byte) error {
	if options.Format != "" && options.Format != FormatWAV {
		return fmt.Errorf("%w: coqui only produces wav, got %q", ErrBadRequest, options.Format)
	}

	dir, err := os.MkdirTemp("", "yukitts-coqui-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	outPath := filepath.Join(dir, "out.wav")
	args := c.buildArgs(text, options, outPath)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = io.Discard

	logging.Debugf("running %s with model %s", c.binary, modelOrDefault(options.Model))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("coqui tts failed: %w (stderr: %s)", err, strings.TrimSpace(lastLines(stderr.String(), 5)))
	}

	file, err := os.Open(outPath)
	if err != nil {
		return fmt.Errorf("coqui tts produced no output: %w", err)
	}
	defer file.Close()

	for {
		buf := make([]byte, coquiChunkSize)
		n, err := file.Read(buf)
		if n > 0 {
			select {
			case audioData <- buf[:n]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read coqui output: %w", err)
		}
	}
}

func (c *CoquiClient) buildArgs(text string, options SynthesisOptions, outPath string) []string {
	args := []string{
		"--text", text,
		"--model_name", modelOrDefault(options.Model),
		"--out_path", outPath,
		"--progress_bar", "False",
	}
	if c.useCUDA {
		args = append(args, "--use_cuda", "True")
	}
	if options.Voice != "" {
		args = append(args, "--speaker_idx", options.Voice)
	}
	if options.Language != "" {
		args = append(args, "--language_idx", options.Language)
	}
	return args
}

func (c *CoquiClient) Close() error {
	return nil
}

func modelOrDefault(model string) string {
	if strings.TrimSpace(model) == "" {
		return DefaultCoquiModel
	}
	return model
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
