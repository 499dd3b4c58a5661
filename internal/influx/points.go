package influx

import (
	"time"

	"github.com/flanker-wargame/client/internal/geo"
	"github.com/flanker-wargame/client/internal/model/convert"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementActionLog = "action_log"
	MeasurementTerrain   = "terrain"
)

// ActionLogPoint builds the point for the seq-th entry of a game's log.
func ActionLogPoint(route session.Route, seq int, l core.ActionLog, ts time.Time) *influxdb2_write.Point {
	snapshot := l.Snapshot()

	p := influxdb2_write.NewPointWithMeasurement(MeasurementActionLog).
		AddTag("scene", route.SceneName).
		AddTag("logType", string(l.LogType())).
		AddField("gameId", route.GameID).
		AddField("seq", seq).
		AddField("unitId", l.ActorID()).
		AddField("hasInitiative", snapshot.HasInitiative).
		AddField("objectiveState", string(snapshot.ObjectiveState)).
		SetTime(ts)

	if o := convert.Outcome(l); o != "" {
		p.AddTag("outcome", o)
	}
	if o := convert.ReactiveOutcome(l); o != "" {
		p.AddField("reactiveFireOutcome", o)
	}
	if id, ok := convert.TargetID(l); ok {
		p.AddField("targetId", id)
	}
	return p
}

// TerrainPoint builds the point for one terrain feature.
func TerrainPoint(route session.Route, t core.Terrain, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementTerrain).
		AddTag("scene", route.SceneName).
		AddTag("terrainType", string(t.TerrainType)).
		AddField("gameId", route.GameID).
		AddField("terrainId", t.TerrainID).
		AddField("x", t.Position.X).
		AddField("y", t.Position.Y).
		AddField("degrees", t.Degrees).
		AddField("vertices", len(t.Vertices)).
		AddField("area", geo.Area(t)).
		SetTime(ts)
}
