// Package logging builds the root logger every component derives from.
// Components tag themselves with logger.With().Str("component", ...).Logger()
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration
type Config struct {
	Level       string `json:"level"`       // debug, info, warn, error
	Output      string `json:"output"`      // stdout, stderr, or a file path
	JSONFormat  bool   `json:"json_format"` // JSON lines vs human-readable console
	IncludeFile bool   `json:"include_file"`
}

// New creates the root logger from configuration. Unknown levels fall back
// to info, unopenable outputs to stdout.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		file, ferr := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr != nil {
			out = os.Stdout
		} else {
			out = file
		}
	}

	if !cfg.JSONFormat {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	builder := zerolog.New(out).With().Timestamp()
	if cfg.IncludeFile {
		builder = builder.Caller()
	}
	return builder.Logger().Level(level)
}
