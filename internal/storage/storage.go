package storage

import (
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
)

// Backend is the interface all journal storage implementations must satisfy.
//
// RecordActionLogs is given the full log of a game as fetched from the
// server; entry i is stored with seq i and entries already stored are
// skipped, so the same log can be recorded any number of times.
type Backend interface {
	Init() error
	Close() error

	RecordActionLogs(route session.Route, logs []core.ActionLog) error
	RecordTerrain(route session.Route, terrain []core.Terrain) error
}

// Exporter is implemented by backends that write their journal to files.
type Exporter interface {
	ExportedFiles() []string
}
