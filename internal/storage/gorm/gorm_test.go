package gormstorage

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/flanker-wargame/client/internal/database"
	"github.com/flanker-wargame/client/internal/model"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var route = session.Route{SceneName: "ridge", GameID: 2}

func newTestBackend(t *testing.T) (*Backend, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	// long interval so tests control flushing
	b := New(Dependencies{DB: db, Logger: zerolog.Nop(), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b, db
}

func fire(unit, target int, o core.FireOutcome) core.ActionLog {
	return core.FireLog{
		Body:      core.TargetRequest{UnitID: unit, TargetID: target},
		Outcome:   &o,
		UnitState: core.NewUnitsViewState(),
	}
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{Logger: zerolog.Nop()})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestRecordActionLogs_Deduplicates(t *testing.T) {
	b, db := newTestBackend(t)

	logs := []core.ActionLog{fire(1, 7, core.FireMiss), fire(1, 7, core.FirePin)}
	require.NoError(t, b.RecordActionLogs(route, logs))
	assert.Equal(t, 2, b.Pending())
	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.Pending())

	// the log grew by one entry and is archived again
	logs = append(logs, fire(2, 7, core.FireKill))
	require.NoError(t, b.RecordActionLogs(route, logs))
	require.NoError(t, b.Flush())

	assert.Equal(t, int64(3), countRows(t, db, &model.ActionLogRecord{}))

	var last model.ActionLogRecord
	require.NoError(t, db.Where("seq = ?", 2).First(&last).Error)
	assert.Equal(t, "KILL", last.Outcome)
	assert.Equal(t, 2, last.UnitID)
	assert.Equal(t, "ridge", last.SceneName)
}

func TestRecordActionLogs_SeparateGames(t *testing.T) {
	b, db := newTestBackend(t)

	require.NoError(t, b.RecordActionLogs(route, []core.ActionLog{fire(1, 7, core.FireMiss)}))
	require.NoError(t, b.RecordActionLogs(session.Route{SceneName: "ridge", GameID: 3}, []core.ActionLog{fire(1, 7, core.FireMiss)}))
	require.NoError(t, b.Flush())

	assert.Equal(t, int64(2), countRows(t, db, &model.ActionLogRecord{}))
}

func TestRecordTerrain_Upserts(t *testing.T) {
	b, db := newTestBackend(t)

	square := []core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	require.NoError(t, b.RecordTerrain(route, []core.Terrain{
		{TerrainID: 1, TerrainType: core.TerrainForest, Vertices: square},
		{TerrainID: 2, TerrainType: core.TerrainRoad, Vertices: square},
	}))
	require.NoError(t, b.Flush())

	require.NoError(t, b.RecordTerrain(route, []core.Terrain{
		{TerrainID: 1, TerrainType: core.TerrainWater, Vertices: square},
		{TerrainID: 1, TerrainType: core.TerrainField, Vertices: square},
	}))
	require.NoError(t, b.Flush())

	assert.Equal(t, int64(2), countRows(t, db, &model.TerrainRecord{}))

	var rec model.TerrainRecord
	require.NoError(t, db.Where("terrain_id = ?", 1).First(&rec).Error)
	assert.Equal(t, "FIELD", rec.TerrainType)
	assert.InDelta(t, 1.0, rec.Area, 1e-9)
}

func TestRecordTerrain_RejectsUnencodableVertices(t *testing.T) {
	b, _ := newTestBackend(t)

	err := b.RecordTerrain(route, []core.Terrain{
		{TerrainID: 1, TerrainType: core.TerrainField, Vertices: []core.Vec2{{X: 0, Y: 0}}},
		{TerrainID: 2, TerrainType: core.TerrainField, Vertices: []core.Vec2{{X: math.NaN(), Y: 0}}},
	})
	require.Error(t, err)
	assert.Zero(t, b.Pending())
}

func TestClose_FlushesQueue(t *testing.T) {
	b, db := newTestBackend(t)

	require.NoError(t, b.RecordActionLogs(route, []core.ActionLog{fire(1, 7, core.FireMiss)}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.Equal(t, int64(1), countRows(t, db, &model.ActionLogRecord{}))
}

func TestWriteLoop_Flushes(t *testing.T) {
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, Logger: zerolog.Nop(), FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordActionLogs(route, []core.ActionLog{fire(1, 7, core.FireMiss)}))

	assert.Eventually(t, func() bool {
		var n int64
		db.Model(&model.ActionLogRecord{}).Count(&n)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLatestTerrain(t *testing.T) {
	rows := []model.TerrainRecord{
		{SceneName: "a", TerrainID: 1, TerrainType: "FOREST"},
		{SceneName: "a", TerrainID: 2},
		{SceneName: "a", TerrainID: 1, TerrainType: "ROAD"},
		{SceneName: "b", TerrainID: 1},
	}
	out := latestTerrain(rows)
	require.Len(t, out, 3)
	assert.Equal(t, "ROAD", out[0].TerrainType)
	assert.Equal(t, 2, out[1].TerrainID)
	assert.Equal(t, "b", out[2].SceneName)
}
