package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level string
	// File enables a rotated log file besides the console
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func New(cfg Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if cfg.File != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			Compress:   true,
		})
	}
	return NewWithWriter(w, lvl)
}

func NewWithWriter(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// Print adapts a logger to the func(v ...interface{}) used across packages.
// Messages with an error argument are logged at error level.
func Print(l zerolog.Logger) func(v ...interface{}) {
	return func(v ...interface{}) {
		var err error
		for _, a := range v {
			if e, ok := a.(error); ok {
				err = e
				break
			}
		}
		ev := l.Info()
		if err != nil {
			ev = l.Error().Err(err)
		}
		ev.Msg(strings.TrimSpace(fmt.Sprintln(v...)))
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
