package main

import (
	"fmt"
	"io"
	"log/slog"
)

// Log output formats.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// newLogger builds the progress logger. quiet discards everything.
func newLogger(w io.Writer, format string, verbose, quiet bool) (*slog.Logger, error) {
	if quiet {
		return slog.New(slog.DiscardHandler), nil
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case logFormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case logFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", format, logFormatText, logFormatJSON)
	}
}
