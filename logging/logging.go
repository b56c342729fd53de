// Package logging holds the process-wide zap logger. It discards everything
// until Init is called.
package logging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultLevel  = "warn"
	DefaultFormat = "console"
)

type Config struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is console or json.
	Format string
	// RunID is attached to every entry as run_id when set.
	RunID string
	// Output defaults to stderr.
	Output io.Writer
}

var (
	base  = zap.NewNop()
	sugar = base.Sugar()
)

func Init(cfg Config) error {
	levelName := strings.ToLower(strings.TrimSpace(cfg.Level))
	if levelName == "" {
		levelName = DefaultLevel
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q", cfg.Level)
	}

	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	logger := zap.New(
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	if id := strings.TrimSpace(cfg.RunID); id != "" {
		logger = logger.With(zap.String("run_id", id))
	}
	use(logger)
	return nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", DefaultFormat:
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encCfg), nil
	case "json":
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}

func use(logger *zap.Logger) {
	base = logger
	sugar = logger.Sugar()
}

func Sync() {
	_ = base.Sync()
}

// NewRunID returns 16 random hex characters.
func NewRunID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "run-unknown"
	}
	return hex.EncodeToString(buf[:])
}

func Debugf(format string, args ...any) { sugar.Debugf(format, args...) }
func Infof(format string, args ...any)  { sugar.Infof(format, args...) }
func Warnf(format string, args ...any)  { sugar.Warnf(format, args...) }
func Errorf(format string, args ...any) { sugar.Errorf(format, args...) }
