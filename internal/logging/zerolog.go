package logging

import (
	"io"
	"strings"
	"time"

	"github.com/flanker-wargame/client/internal/session"
	"github.com/rs/zerolog"
)

// ZerologLevel converts a config log level.
func ZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the logger handed to the database and influx managers.
// It writes console format to file, or to stderr when file is nil, and tags
// every event with the current route when sess is non-nil.
func NewZerolog(file io.Writer, level string, sess *session.Context) zerolog.Logger {
	out := file
	if out == nil {
		out = console
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    file != nil,
	}).Level(ZerologLevel(level)).With().Timestamp().Str("component", "journal").Logger()

	if sess != nil {
		logger = logger.Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			r := sess.Route()
			e.Str("scene", r.SceneName).Int("gameId", r.GameID)
		}))
	}
	return logger
}
