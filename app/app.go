// Package app implements the yukitts command line:
//
//	yukitts [flags] <text> <output_path>
//
// It validates the arguments, builds the synthesizer for the configured
// backend and writes the synthesized audio to output_path.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/d1nch8g/yukitts/audio"
	"github.com/d1nch8g/yukitts/config"
	"github.com/d1nch8g/yukitts/logging"
	"github.com/d1nch8g/yukitts/sound"
	"github.com/d1nch8g/yukitts/tts"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// Deps are the collaborators Run needs. Zero fields fall back to the real
// implementations.
type Deps struct {
	Stdout         io.Writer
	Stderr         io.Writer
	NewSynthesizer func(ctx context.Context, cfg *config.Config) (tts.Synthesizer, error)
	NewPlayer      func() sound.Player
}

type flagValues struct {
	configPath string
}

// Run executes the command line with args (without the program name) and
// returns the process exit status.
func Run(ctx context.Context, name string, args []string, deps Deps) int {
	deps = deps.withDefaults()

	flags, values := newFlagSet(name, deps.Stdout)
	flagArgs, positional := splitArgs(flags, args)
	if err := flags.Parse(flagArgs); err != nil {
		fmt.Fprintln(deps.Stderr, err)
		flags.Usage()
		return ExitFailure
	}

	if len(positional) == 1 && isHelp(positional[0]) {
		flags.Usage()
		return ExitOK
	}
	if len(positional) < 2 {
		flags.Usage()
		return ExitFailure
	}
	text := positional[0]
	outputPath := positional[1]

	cfg, err := config.Load(values.configPath, flags)
	if err != nil {
		// The logger is not configured yet.
		fmt.Fprintf(deps.Stderr, "config error: %v\n", err)
		return ExitFailure
	}

	err = logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		RunID:  logging.NewRunID(),
		Output: deps.Stderr,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Failed to init logger: %v\n", err)
		return ExitFailure
	}
	defer logging.Sync()

	if err := synthesize(ctx, cfg, text, outputPath, deps); err != nil {
		logging.Errorf("%v", err)
		return ExitFailure
	}
	return ExitOK
}

func synthesize(ctx context.Context, cfg *config.Config, text, outputPath string, deps Deps) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	synth, err := deps.NewSynthesizer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s synthesizer: %w", cfg.Backend, err)
	}
	defer func() {
		if err := synth.Close(); err != nil {
			logging.Warnf("failed to close %s synthesizer: %v", synth.Name(), err)
		}
	}()

	logging.Infof("synthesizing %d characters with %s", len([]rune(text)), synth.Name())
	written, err := tts.SynthesizeToFile(ctx, synth, text, synthesisOptions(cfg), outputPath)
	if err != nil {
		return err
	}

	if info, err := audio.Inspect(outputPath); err != nil {
		logging.Warnf("wrote %d bytes to %s but could not inspect it: %v", written, outputPath, err)
	} else {
		logging.Infof("wrote %s (%s)", outputPath, info)
	}

	if cfg.Play {
		if err := sound.PlayFile(ctx, deps.NewPlayer(), outputPath); err != nil {
			return fmt.Errorf("failed to play %s: %w", outputPath, err)
		}
	}
	return nil
}

func synthesisOptions(cfg *config.Config) tts.SynthesisOptions {
	return tts.SynthesisOptions{
		Model:      cfg.Model,
		Voice:      cfg.Voice,
		Language:   cfg.Language,
		Speed:      cfg.Speed,
		Volume:     cfg.Volume,
		Pitch:      cfg.Pitch,
		Format:     cfg.Format,
		SampleRate: cfg.SampleRate,
	}
}

func newFlagSet(name string, out io.Writer) (*pflag.FlagSet, *flagValues) {
	values := &flagValues{}
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.SortFlags = false

	flags.StringVarP(&values.configPath, "config", "c", "", "path to a YAML config file")
	flags.String("backend", "", "synthesis backend: coqui, yandex, google, dashscope (default coqui)")
	flags.String("model", "", "model name (default depends on backend)")
	flags.String("voice", "", "voice name (default depends on backend)")
	flags.String("language", "", "language code")
	flags.String("format", "", "output format: wav, mp3, ogg (default wav)")
	flags.Duration("timeout", 0, "synthesis deadline, 0 means none")
	flags.Bool("play", false, "play the file after writing it")

	flags.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [flags] <text> <output_path>\n", name)
		fmt.Fprintln(out, "\nFlags go before <text>; everything from <text> on is taken as is.")
		fmt.Fprintln(out, "\nFlags:")
		fmt.Fprint(out, flags.FlagUsages())
	}
	return flags, values
}

// splitArgs separates the leading registered flags from the positional
// arguments. Scanning stops at the first token that is not a registered flag
// (or at "--"), so a text such as "- item" or "-5 degrees" stays a text.
func splitArgs(flags *pflag.FlagSet, args []string) (flagArgs, positional []string) {
	i := 0
	for i < len(args) {
		if args[i] == "--" {
			return args[:i], args[i+1:]
		}
		flag, inline := lookupFlag(flags, args[i])
		if flag == nil {
			break
		}
		i++
		// A flag without an inline value takes the next token, bools excepted.
		if !inline && flag.NoOptDefVal == "" && i < len(args) {
			i++
		}
	}
	return args[:i], args[i:]
}

func lookupFlag(flags *pflag.FlagSet, arg string) (*pflag.Flag, bool) {
	switch {
	case strings.HasPrefix(arg, "--"):
		name, _, inline := strings.Cut(arg[2:], "=")
		if name == "" {
			return nil, false
		}
		return flags.Lookup(name), inline
	case strings.HasPrefix(arg, "-"):
		name, _, inline := strings.Cut(arg[1:], "=")
		if len(name) != 1 {
			return nil, false
		}
		return flags.ShorthandLookup(name), inline
	}
	return nil, false
}

// isHelp reports whether arg asks for usage. It is only honoured as the sole
// positional argument; otherwise it is the text to speak.
func isHelp(arg string) bool {
	return arg == "--help" || arg == "-h"
}

func (d Deps) withDefaults() Deps {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.NewSynthesizer == nil {
		d.NewSynthesizer = NewSynthesizer
	}
	if d.NewPlayer == nil {
		d.NewPlayer = func() sound.Player {
			return sound.NewPortaudioPlayer(sound.GetDefaultConfig())
		}
	}
	return d
}
