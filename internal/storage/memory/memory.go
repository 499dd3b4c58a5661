// internal/storage/memory/memory.go
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/flanker-wargame/client/internal/config"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
)

// GameRecord holds everything journaled for one game.
type GameRecord struct {
	Route      session.Route
	ActionLogs []core.ActionLog
	Terrain    map[int]core.Terrain // keyed by TerrainID
	UpdatedAt  time.Time
}

// Backend keeps journals in memory and exports one JSON file per game on Close.
type Backend struct {
	cfg   config.MemoryConfig
	games map[session.Route]*GameRecord
	now   func() time.Time

	exported []string
	mu       sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		games: make(map[session.Route]*GameRecord),
		now:   time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports every journaled game.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.exportAll()
}

func (b *Backend) game(route session.Route) *GameRecord {
	g, ok := b.games[route]
	if !ok {
		g = &GameRecord{Route: route, Terrain: make(map[int]core.Terrain)}
		b.games[route] = g
	}
	g.UpdatedAt = b.now()
	return g
}

// RecordActionLogs stores the log. Entries past the ones already held are
// appended; a shorter log never truncates what was recorded.
func (b *Backend) RecordActionLogs(route session.Route, logs []core.ActionLog) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.game(route)
	if len(logs) > len(g.ActionLogs) {
		g.ActionLogs = append(g.ActionLogs, logs[len(g.ActionLogs):]...)
	}
	return nil
}

// RecordTerrain stores the latest version of each feature.
func (b *Backend) RecordTerrain(route session.Route, terrain []core.Terrain) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.game(route)
	for _, t := range terrain {
		g.Terrain[t.TerrainID] = t.Clone()
	}
	return nil
}

// Games returns the journaled routes ordered by scene then game.
func (b *Backend) Games() []session.Route {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]session.Route, 0, len(b.games))
	for r := range b.games {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SceneName != out[j].SceneName {
			return out[i].SceneName < out[j].SceneName
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}

// ActionLogs returns a copy of the journaled log of a game.
func (b *Backend) ActionLogs(route session.Route) []core.ActionLog {
	b.mu.RLock()
	defer b.mu.RUnlock()

	g, ok := b.games[route]
	if !ok {
		return nil
	}
	out := make([]core.ActionLog, len(g.ActionLogs))
	copy(out, g.ActionLogs)
	return out
}

// ExportedFiles returns the files written by the last Close.
func (b *Backend) ExportedFiles() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.exported...)
}
