// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog loggers used across rigchat.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jeranaias/rigchat/internal/config"
)

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Closer releases the log file, if one was opened.
type Closer func() error

// New builds a logger from cfg writing to w. Console output is used when
// the format is "console", or when it is "auto" and w is a terminal. With a
// log file configured, entries also go to the file as JSON.
func New(cfg config.LogConfig, w io.Writer) (zerolog.Logger, Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}

	var out io.Writer
	if w != nil {
		out = w
		if useConsole(cfg.Format, w) {
			out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !IsTerminal(w)}
		}
	}

	closer := noop
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		closer = file.Close
		if out == nil {
			out = file
		} else {
			out = io.MultiWriter(out, file)
		}
	}
	if out == nil {
		return zerolog.Nop(), noop, nil
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// ForTUI builds a logger that never writes to the terminal: the file when
// one is configured, nothing otherwise.
func ForTUI(cfg config.LogConfig) (zerolog.Logger, Closer, error) {
	return New(cfg, nil)
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func useConsole(format string, w io.Writer) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	}
	return IsTerminal(w)
}

func noop() error { return nil }
