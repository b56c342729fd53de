package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1nch8g/yukitts/audio"
	"github.com/d1nch8g/yukitts/config"
	"github.com/d1nch8g/yukitts/sound"
	"github.com/d1nch8g/yukitts/tts"
)

// tinyWAV is 8 kHz mono 16-bit holding two samples.
var tinyWAV = []byte{
	'R', 'I', 'F', 'F', 40, 0, 0, 0, 'W', 'A', 'V', 'E',
	'f', 'm', 't', ' ', 16, 0, 0, 0,
	1, 0, 1, 0,
	0x40, 0x1F, 0, 0,
	0x80, 0x3E, 0, 0,
	2, 0, 16, 0,
	'd', 'a', 't', 'a', 4, 0, 0, 0,
	1, 0, 0xFF, 0xFF,
}

type recordingSynth struct {
	mu      sync.Mutex
	calls   int
	text    string
	options tts.SynthesisOptions
	err     error
	closed  bool
}

func (r *recordingSynth) Name() string { return "recording" }

func (r *recordingSynth) SynthesizeToStreamWithContext(_ context.Context, text string, options tts.SynthesisOptions, audioData chan<- []byte) error {
	r.mu.Lock()
	r.calls++
	r.text = text
	r.options = options
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	audioData <- tinyWAV[:20]
	audioData <- tinyWAV[20:]
	return nil
}

func (r *recordingSynth) Close() error {
	r.closed = true
	return nil
}

type fakePlayer struct {
	played *audio.Clip
}

func (f *fakePlayer) Initialize() error { return nil }
func (f *fakePlayer) Terminate()        {}
func (f *fakePlayer) Play(_ context.Context, clip *audio.Clip) error {
	f.played = clip
	return nil
}

type harness struct {
	synth     *recordingSynth
	player    *fakePlayer
	gotConfig *config.Config
	factErr   error
	stdout    bytes.Buffer
	stderr    bytes.Buffer
}

func newHarness() *harness {
	return &harness{synth: &recordingSynth{}, player: &fakePlayer{}}
}

func (h *harness) run(args ...string) int {
	return Run(context.Background(), "yukitts", args, Deps{
		Stdout: &h.stdout,
		Stderr: &h.stderr,
		NewSynthesizer: func(_ context.Context, cfg *config.Config) (tts.Synthesizer, error) {
			h.gotConfig = cfg
			if h.factErr != nil {
				return nil, h.factErr
			}
			return h.synth, nil
		},
		NewPlayer: func() sound.Player { return h.player },
	})
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMissingArgumentsPrintUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"hello"}} {
		h := newHarness()
		code := h.run(args...)

		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, h.stdout.String(), "Usage: yukitts [flags] <text> <output_path>")
		assert.Nil(t, h.gotConfig, "no synthesizer may be built without both arguments")
		assert.Zero(t, h.synth.calls)
	}
}

func TestMissingOutputPathCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	h := newHarness()
	assert.Equal(t, ExitFailure, h.run("hello"))
	assert.Empty(t, dirEntries(t, dir))
}

func TestSynthesizesTextToPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	code := h.run("hello", out)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, 1, h.synth.calls)
	assert.Equal(t, "hello", h.synth.text)
	assert.True(t, h.synth.closed)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, tinyWAV, data)
	assert.Empty(t, h.stdout.String(), "stdout is reserved for usage")
}

func TestArgumentsPassUnmodified(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested dir")
	out := filepath.Join(dir, " spaced name .wav")
	text := "  مرحبا، كيف حالك؟\n second line\t"

	h := newHarness()
	require.Equal(t, ExitOK, h.run(text, out))

	assert.Equal(t, text, h.synth.text)
	assert.FileExists(t, out)
	assert.Equal(t, []string{" spaced name .wav"}, dirEntries(t, dir))
}

func TestExtraArgumentsIgnored(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	require.Equal(t, ExitOK, h.run("hello", out, "surplus", "more"))
	assert.Equal(t, "hello", h.synth.text)
	assert.NoFileExists(t, "surplus")
}

func TestTerminatorStillAccepted(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	require.Equal(t, ExitOK, h.run("--", "-5 degrees", out))
	assert.Equal(t, "-5 degrees", h.synth.text)
}

func TestDefaultsReachSynthesizer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	require.Equal(t, ExitOK, h.run("hello", out))

	require.NotNil(t, h.gotConfig)
	assert.Equal(t, config.BackendCoqui, h.gotConfig.Backend)
	assert.Equal(t, "wav", h.synth.options.Format)
	assert.Empty(t, h.synth.options.Model, "backend picks its own default model")
}

func TestFlagsReachSynthesizer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.mp3")

	h := newHarness()
	code := h.run("--backend", "google", "--voice", "ar-XA-Wavenet-B", "--format", "mp3", "hello", out)

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, config.BackendGoogle, h.gotConfig.Backend)
	assert.Equal(t, "ar-XA-Wavenet-B", h.synth.options.Voice)
	assert.Equal(t, "mp3", h.synth.options.Format)
}

func TestSynthesisFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")

	h := newHarness()
	h.synth.err = errors.New("model failed to load")

	assert.Equal(t, ExitFailure, h.run("hello", out))
	assert.NoFileExists(t, out)
	assert.Empty(t, dirEntries(t, dir), "temporary files must be cleaned up")
	assert.True(t, h.synth.closed)
	assert.Contains(t, h.stderr.String(), "model failed to load")
}

func TestSynthesizerConstructionFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	h.factErr = errors.New("tts executable not found")

	assert.Equal(t, ExitFailure, h.run("hello", out))
	assert.NoFileExists(t, out)
}

func TestInvalidConfigFails(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	assert.Equal(t, ExitFailure, h.run("--backend", "festival", "hello", out))
	assert.Contains(t, h.stderr.String(), "unknown backend")
	assert.Nil(t, h.gotConfig)
	assert.NoFileExists(t, out)
}

func TestHelp(t *testing.T) {
	h := newHarness()
	assert.Equal(t, ExitOK, h.run("--help"))
	assert.Contains(t, h.stdout.String(), "Usage:")
	assert.Contains(t, h.stdout.String(), "--backend")
}

func TestHelpAfterFlags(t *testing.T) {
	h := newHarness()
	assert.Equal(t, ExitOK, h.run("--backend", "google", "-h"))
	assert.Contains(t, h.stdout.String(), "Usage:")
	assert.Nil(t, h.gotConfig)
}

func TestDashLeadingTextIsSpoken(t *testing.T) {
	texts := []string{
		"- أولاً، مرحبا",
		"- bullet",
		"-5 degrees",
		"--help",
		"-h",
		"--loud",
		"-call me",
		"-",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.wav")

			h := newHarness()
			code := h.run(text, out)

			require.Equal(t, ExitOK, code, h.stderr.String())
			assert.Equal(t, 1, h.synth.calls)
			assert.Equal(t, text, h.synth.text)
			assert.FileExists(t, out)
			assert.Equal(t, config.BackendCoqui, h.gotConfig.Backend)
		})
	}
}

func TestDashLeadingTextAfterFlags(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	require.Equal(t, ExitOK, h.run("--format", "wav", "- item one", out))
	assert.Equal(t, "- item one", h.synth.text)
}

func TestFlagsAfterTextAreNotParsed(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	require.Equal(t, ExitOK, h.run("hello", out, "--play"))
	assert.Equal(t, "hello", h.synth.text)
	assert.Nil(t, h.player.played)
}

func TestConfigShorthand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "yukitts.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: google\nvoice: ar-XA-Wavenet-A\n"), 0o644))
	out := filepath.Join(dir, "out.wav")

	h := newHarness()
	require.Equal(t, ExitOK, h.run("-c", cfgPath, "hello", out), h.stderr.String())
	assert.Equal(t, config.BackendGoogle, h.gotConfig.Backend)
	assert.Equal(t, "ar-XA-Wavenet-A", h.synth.options.Voice)

	h = newHarness()
	require.Equal(t, ExitOK, h.run("--config="+cfgPath, "hello", out), h.stderr.String())
	assert.Equal(t, config.BackendGoogle, h.gotConfig.Backend)
}

func TestBadFlagValue(t *testing.T) {
	h := newHarness()
	assert.Equal(t, ExitFailure, h.run("--timeout", "soon", "hello", "out.wav"))
	assert.Contains(t, h.stderr.String(), "timeout")
	assert.Contains(t, h.stdout.String(), "Usage:")
	assert.Zero(t, h.synth.calls)
}

func TestFlagMissingValue(t *testing.T) {
	h := newHarness()
	assert.Equal(t, ExitFailure, h.run("--backend"))
	assert.Contains(t, h.stderr.String(), "backend")
	assert.Zero(t, h.synth.calls)
}

func TestBlankTextRejected(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")

	h := newHarness()
	assert.Equal(t, ExitFailure, h.run("   ", out))
	assert.Zero(t, h.synth.calls)
	assert.Empty(t, dirEntries(t, dir))
	assert.Contains(t, h.stderr.String(), "text is empty")
}

func TestSplitArgs(t *testing.T) {
	flags, _ := newFlagSet("yukitts", &bytes.Buffer{})

	tests := []struct {
		args       []string
		flagArgs   []string
		positional []string
	}{
		{[]string{"hi", "out.wav"}, []string{}, []string{"hi", "out.wav"}},
		{[]string{"--voice", "-x", "hi", "o"}, []string{"--voice", "-x"}, []string{"hi", "o"}},
		{[]string{"--play", "hi", "o"}, []string{"--play"}, []string{"hi", "o"}},
		{[]string{"--play=false", "--model=m", "hi"}, []string{"--play=false", "--model=m"}, []string{"hi"}},
		{[]string{"-c", "f.yaml", "-5", "o"}, []string{"-c", "f.yaml"}, []string{"-5", "o"}},
		{[]string{"--", "--play", "o"}, []string{}, []string{"--play", "o"}},
		{[]string{"- x", "--play"}, []string{}, []string{"- x", "--play"}},
	}
	for _, tt := range tests {
		flagArgs, positional := splitArgs(flags, tt.args)
		assert.Equal(t, tt.flagArgs, append([]string{}, flagArgs...), "%q", tt.args)
		assert.Equal(t, tt.positional, append([]string{}, positional...), "%q", tt.args)
	}
}

func TestPlayAfterWriting(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	h := newHarness()
	require.Equal(t, ExitOK, h.run("--play", "hello", out))

	require.NotNil(t, h.player.played)
	assert.Equal(t, 8000, h.player.played.SampleRate)
	assert.Equal(t, []int16{1, -1}, h.player.played.Samples)
}

func TestSynthesisOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Model: "m", Voice: "v", Language: "ar", Format: "ogg",
		Speed: 1.2, Volume: 3, Pitch: -1, SampleRate: 24000,
	}
	assert.Equal(t, tts.SynthesisOptions{
		Model: "m", Voice: "v", Language: "ar", Format: "ogg",
		Speed: 1.2, Volume: 3, Pitch: -1, SampleRate: 24000,
	}, synthesisOptions(cfg))
}
