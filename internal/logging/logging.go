package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/flanker-wargame/client/internal/session"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}

// SessionContext tags records with the route the client is bound to.
func SessionContext(sess *session.Context) ContextProvider {
	return func() []slog.Attr {
		r := sess.Route()
		return []slog.Attr{
			slog.String("scene", r.SceneName),
			slog.Int("gameId", r.GameID),
		}
	}
}
