// Package gormstorage implements storage.Backend on top of a GORM connection
// with queued rows and a background writer goroutine. The sqlite and postgres
// backends embed it and only own the connection.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flanker-wargame/client/internal/model"
	"github.com/flanker-wargame/client/internal/model/convert"
	"github.com/flanker-wargame/client/internal/queue"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = time.Second

const batchSize = 500

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps Dependencies

	actionLogs *queue.Queue[model.ActionLogRecord]
	terrain    *queue.Queue[model.TerrainRecord]

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:       deps,
		actionLogs: queue.NewBounded[model.ActionLogRecord](100_000),
		terrain:    queue.NewBounded[model.TerrainRecord](10_000),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database")
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done
	return b.Flush()
}

// RecordActionLogs converts and queues a game's log.
func (b *Backend) RecordActionLogs(route session.Route, logs []core.ActionLog) error {
	recs, err := convert.CoreToActionLogs(route, logs)
	if err != nil {
		return err
	}
	b.actionLogs.Push(recs...)
	return nil
}

// RecordTerrain converts and queues the terrain of a game.
func (b *Backend) RecordTerrain(route session.Route, terrain []core.Terrain) error {
	recs := make([]model.TerrainRecord, 0, len(terrain))
	for _, t := range terrain {
		rec, err := convert.CoreToTerrain(route, t)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	b.terrain.Push(recs...)
	return nil
}

// Pending returns the number of rows waiting to be written.
func (b *Backend) Pending() int {
	return b.actionLogs.Len() + b.terrain.Len()
}

// Flush writes every queued row now. A batch that fails is requeued.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	var errs []error

	if logs := b.actionLogs.Take(); len(logs) > 0 {
		// the server log only grows, an entry already stored never changes
		err := b.deps.DB.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(&logs, batchSize).Error
		if err != nil {
			b.actionLogs.Requeue(logs)
			errs = append(errs, fmt.Errorf("write action logs: %w", err))
		} else {
			b.deps.Logger.Debug().Int("count", len(logs)).Msg("Wrote action logs")
		}
	}

	if terrain := latestTerrain(b.terrain.Take()); len(terrain) > 0 {
		err := b.deps.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scene_name"}, {Name: "game_id"}, {Name: "terrain_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"recorded_at", "terrain_type", "position_x", "position_y", "degrees", "area", "vertices",
			}),
		}).CreateInBatches(&terrain, batchSize).Error
		if err != nil {
			b.terrain.Requeue(terrain)
			errs = append(errs, fmt.Errorf("write terrain: %w", err))
		} else {
			b.deps.Logger.Debug().Int("count", len(terrain)).Msg("Wrote terrain")
		}
	}

	return errors.Join(errs...)
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Int("pending", b.Pending()).Msg("Failed to write journal")
			}
		}
	}
}

// latestTerrain keeps the last queued row per feature, postgres rejects an
// upsert that touches the same row twice.
func latestTerrain(rows []model.TerrainRecord) []model.TerrainRecord {
	type key struct {
		scene    string
		game, id int
	}
	index := make(map[key]int, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := key{r.SceneName, r.GameID, r.TerrainID}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}
