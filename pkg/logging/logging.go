// Package logging builds the zap loggers used by the executables.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rvm/pkg/config"
)

// ParseLevel maps a config level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	}
	return zap.InfoLevel, errors.Errorf("unknown log level %q", level)
}

// New builds a logger writing to stderr.
func New(cfg config.Log) (*zap.Logger, zap.AtomicLevel, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter builds a logger writing to w. The returned level can be
// raised or lowered while the logger is in use.
func NewWithWriter(cfg config.Log, w io.Writer) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	al := zap.NewAtomicLevelAt(lvl)

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		if colorize(w) {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, zap.AtomicLevel{}, errors.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), al)
	return zap.New(core), al, nil
}

func colorize(w io.Writer) bool {
	type fd interface{ Fd() uintptr }
	f, ok := w.(fd)
	return ok && isatty.IsTerminal(f.Fd())
}
