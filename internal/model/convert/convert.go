// Package convert maps core journal values onto the GORM models.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/flanker-wargame/client/internal/geo"
	"github.com/flanker-wargame/client/internal/model"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
	"gorm.io/datatypes"
)

// Outcome returns the primary outcome of an entry, or "" for a move.
func Outcome(l core.ActionLog) string {
	switch v := l.(type) {
	case core.FireLog:
		if v.Outcome != nil {
			return string(*v.Outcome)
		}
	case core.AssaultLog:
		if v.Outcome != nil {
			return string(*v.Outcome)
		}
	}
	return ""
}

// ReactiveOutcome returns the outcome of the reactive fire an entry drew, if any.
func ReactiveOutcome(l core.ActionLog) string {
	switch v := l.(type) {
	case core.MoveLog:
		if v.ReactiveFireOutcome != nil {
			return string(*v.ReactiveFireOutcome)
		}
	case core.AssaultLog:
		if v.ReactiveFireOutcome != nil {
			return string(*v.ReactiveFireOutcome)
		}
	}
	return ""
}

// TargetID returns the target of a fire or assault entry.
func TargetID(l core.ActionLog) (int, bool) {
	switch v := l.(type) {
	case core.FireLog:
		return v.Body.TargetID, true
	case core.AssaultLog:
		return v.Body.TargetID, true
	}
	return 0, false
}

// CoreToActionLog converts the seq-th entry of a game's log.
func CoreToActionLog(route session.Route, seq int, l core.ActionLog) (model.ActionLogRecord, error) {
	snapshot := l.Snapshot()
	unitState, err := json.Marshal(snapshot)
	if err != nil {
		return model.ActionLogRecord{}, fmt.Errorf("entry %d: marshal unit state: %w", seq, err)
	}

	rec := model.ActionLogRecord{
		SceneName:           route.SceneName,
		GameID:              route.GameID,
		Seq:                 seq,
		LogType:             string(l.LogType()),
		UnitID:              l.ActorID(),
		Outcome:             Outcome(l),
		ReactiveFireOutcome: ReactiveOutcome(l),
		HasInitiative:       snapshot.HasInitiative,
		ObjectiveState:      string(snapshot.ObjectiveState),
		UnitState:           datatypes.JSON(unitState),
	}
	if id, ok := TargetID(l); ok {
		rec.TargetID = &id
	}
	if m, ok := l.(core.MoveLog); ok {
		x, y := m.Body.To.X, m.Body.To.Y
		rec.ToX, rec.ToY = &x, &y
	}
	return rec, nil
}

// CoreToActionLogs converts a full log. Entry i gets seq i.
func CoreToActionLogs(route session.Route, logs []core.ActionLog) ([]model.ActionLogRecord, error) {
	out := make([]model.ActionLogRecord, 0, len(logs))
	for i, l := range logs {
		rec, err := CoreToActionLog(route, i, l)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// CoreToTerrain converts a terrain feature. Area is computed in world space.
func CoreToTerrain(route session.Route, t core.Terrain) (model.TerrainRecord, error) {
	vertices := []byte("[]")
	if t.Vertices != nil {
		var err error
		if vertices, err = json.Marshal(t.Vertices); err != nil {
			return model.TerrainRecord{}, fmt.Errorf("terrain %d: marshal vertices: %w", t.TerrainID, err)
		}
	}
	return model.TerrainRecord{
		SceneName:   route.SceneName,
		GameID:      route.GameID,
		TerrainID:   t.TerrainID,
		TerrainType: string(t.TerrainType),
		PositionX:   t.Position.X,
		PositionY:   t.Position.Y,
		Degrees:     t.Degrees,
		Area:        geo.Area(t),
		Vertices:    datatypes.JSON(vertices),
	}, nil
}

// ActionLogToCore decodes the unit state snapshot kept in a record.
func ActionLogToCore(rec model.ActionLogRecord) (core.UnitsViewState, error) {
	var state core.UnitsViewState
	if err := json.Unmarshal(rec.UnitState, &state); err != nil {
		return core.UnitsViewState{}, fmt.Errorf("entry %d: unit state: %w", rec.Seq, err)
	}
	return state, nil
}

// TerrainToCore is the inverse of CoreToTerrain.
func TerrainToCore(rec model.TerrainRecord) (core.Terrain, error) {
	t := core.Terrain{
		TerrainID:   rec.TerrainID,
		TerrainType: core.TerrainType(rec.TerrainType),
		Position:    core.Vec2{X: rec.PositionX, Y: rec.PositionY},
		Degrees:     rec.Degrees,
	}
	if err := json.Unmarshal(rec.Vertices, &t.Vertices); err != nil {
		return core.Terrain{}, fmt.Errorf("terrain %d: vertices: %w", rec.TerrainID, err)
	}
	return t, nil
}
