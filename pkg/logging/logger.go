// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package logging constructs structured loggers for the passkey server.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures logger construction.
type Options struct {
	// Level is the minimum log level: debug, info, warn, or error.
	// Unrecognized values default to info.
	Level string

	// Format selects the handler encoding: text or json.
	// Unrecognized values default to text.
	Format string

	// Output is the destination writer. Defaults to os.Stderr.
	Output io.Writer
}

// New creates a structured logger from the given options.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler)
}

// Default returns a text logger at info level writing to stderr.
func Default() *slog.Logger {
	return New(Options{})
}

// ParseLevel maps a level name to a slog.Level. Unrecognized names
// map to slog.LevelInfo.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
