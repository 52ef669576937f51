package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

type Logger struct{}

// Log is the command-level logger. Packages log through zerolog's global logger directly.
var Log *Logger

func (l *Logger) Info(msg string, err ...error) {
	if len(err) == 1 {
		zlog.Info().Err(err[0]).Msg(msg)
		return
	}
	zlog.Info().Msg(msg)
}

func (l *Logger) Infof(msg string, args ...interface{}) {
	zlog.Info().Msg(fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(msg string, err ...error) {
	if len(err) == 1 {
		zlog.Warn().Err(err[0]).Msg(msg)
		return
	}
	zlog.Warn().Msg(msg)
}

func (l *Logger) Warnf(msg string, args ...interface{}) {
	zlog.Warn().Msg(fmt.Sprintf(msg, args...))
}

func (l *Logger) Error(msg string, err ...error) {
	if len(err) == 1 {
		zlog.Error().Err(err[0]).Msg(msg)
		return
	}
	zlog.Error().Msg(msg)
}

// ParseLogLevel maps a config level to zerolog, defaulting to info.
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// DoConfigureLogger writes to stdout and, when logPath is set, appends to that file as well.
func DoConfigureLogger(logPath string, logLevel string, prettyLogging bool) error {
	writers := io.MultiWriter(os.Stdout)
	if len(logPath) > 0 {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		writers = io.MultiWriter(os.Stdout, file)
	}
	if prettyLogging {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: writers, TimeFormat: "15:04:05"})
	} else {
		zlog.Logger = zlog.Output(writers)
	}

	zerolog.SetGlobalLevel(ParseLogLevel(logLevel))
	return nil
}
