// Package influxstorage writes the journal as InfluxDB points, falling back to
// a gzip line-protocol file when the server is unreachable.
package influxstorage

import (
	"context"
	"sync"
	"time"

	"github.com/flanker-wargame/client/internal/influx"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
)

// ConnectTimeout bounds the health check done by Init.
const ConnectTimeout = 10 * time.Second

type gameCursor struct {
	base    time.Time
	written int
}

// Backend implements storage.Backend on an influx.Manager.
//
// Influx overwrites points that share measurement, tags and timestamp, so
// entry seq of a game is stamped base+seq ms where base is when the game was
// first recorded. Re-recording a log in the same run rewrites the same points.
type Backend struct {
	manager *influx.Manager
	now     func() time.Time

	games map[session.Route]*gameCursor
	mu    sync.Mutex
}

// New creates a backend; Init connects.
func New(manager *influx.Manager) *Backend {
	return &Backend{
		manager: manager,
		now:     time.Now,
		games:   make(map[session.Route]*gameCursor),
	}
}

// Init connects to the server or opens the backup file.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
	defer cancel()
	return b.manager.Connect(ctx)
}

// Close flushes the manager.
func (b *Backend) Close() error {
	return b.manager.Close()
}

func (b *Backend) cursor(route session.Route) *gameCursor {
	c, ok := b.games[route]
	if !ok {
		c = &gameCursor{base: b.now().Truncate(time.Millisecond)}
		b.games[route] = c
	}
	return c
}

// RecordActionLogs writes the entries not written yet.
func (b *Backend) RecordActionLogs(route session.Route, logs []core.ActionLog) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.cursor(route)
	for seq := c.written; seq < len(logs); seq++ {
		ts := c.base.Add(time.Duration(seq) * time.Millisecond)
		if err := b.manager.WritePoint(influx.ActionLogPoint(route, seq, logs[seq], ts)); err != nil {
			return err
		}
		c.written = seq + 1
	}
	return nil
}

// RecordTerrain writes one point per feature stamped now.
func (b *Backend) RecordTerrain(route session.Route, terrain []core.Terrain) error {
	ts := b.now()
	for _, t := range terrain {
		if err := b.manager.WritePoint(influx.TerrainPoint(route, t, ts)); err != nil {
			return err
		}
	}
	return nil
}

// ExportedFiles returns the backup file when points went there.
func (b *Backend) ExportedFiles() []string {
	if b.manager.IsValid {
		return nil
	}
	return []string{b.manager.BackupPath()}
}
