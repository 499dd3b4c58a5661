package core

import (
	"encoding/json"
	"fmt"
)

// UnitStatus is the combat status of a squad as reported by the server.
type UnitStatus string

const (
	StatusActive     UnitStatus = "ACTIVE"
	StatusPinned     UnitStatus = "PINNED"
	StatusSuppressed UnitStatus = "SUPPRESSED"
)

// Valid reports whether s is a known status.
func (s UnitStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPinned, StatusSuppressed:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown statuses.
func (s *UnitStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unit status: %w", err)
	}
	if !UnitStatus(raw).Valid() {
		return fmt.Errorf("unit status: unknown value %q", raw)
	}
	*s = UnitStatus(raw)
	return nil
}

// ObjectiveState is the local player's objective progress.
type ObjectiveState string

const (
	ObjectiveIncomplete ObjectiveState = "INCOMPLETE"
	ObjectiveCompleted  ObjectiveState = "COMPLETED"
	ObjectiveFailed     ObjectiveState = "FAILED"
)

// Valid reports whether o is a known objective state.
func (o ObjectiveState) Valid() bool {
	switch o {
	case ObjectiveIncomplete, ObjectiveCompleted, ObjectiveFailed:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown objective states.
func (o *ObjectiveState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("objective state: %w", err)
	}
	if !ObjectiveState(raw).Valid() {
		return fmt.Errorf("objective state: unknown value %q", raw)
	}
	*o = ObjectiveState(raw)
	return nil
}

// Squad is the server's view of a single rifle squad.
// IsSelected is a rendering marker only and never leaves the client.
type Squad struct {
	UnitID     int        `json:"unitId"`
	Position   Vec2       `json:"position"`
	Status     UnitStatus `json:"status"`
	IsFriendly bool       `json:"isFriendly"`
	NoFire     bool       `json:"noFire"`
	IsSelected bool       `json:"-"`
}

// UnitsViewState is the authoritative unit snapshot for one player.
type UnitsViewState struct {
	ObjectiveState ObjectiveState `json:"objectiveState"`
	HasInitiative  bool           `json:"hasInitiative"`
	Squads         []Squad        `json:"squads"`
}

// NewUnitsViewState returns the empty view used before the first fetch.
func NewUnitsViewState() UnitsViewState {
	return UnitsViewState{
		ObjectiveState: ObjectiveIncomplete,
		Squads:         []Squad{},
	}
}

// FindSquad returns the squad with the given id.
func (v UnitsViewState) FindSquad(unitID int) (Squad, bool) {
	for _, s := range v.Squads {
		if s.UnitID == unitID {
			return s, true
		}
	}
	return Squad{}, false
}

// Clone returns a deep copy so callers cannot alias the squad slice.
func (v UnitsViewState) Clone() UnitsViewState {
	out := v
	out.Squads = make([]Squad, len(v.Squads))
	copy(out.Squads, v.Squads)
	return out
}

// MarkSelected returns a copy with IsSelected set only on unitID.
// A zero or unknown unitID clears every marker.
func (v UnitsViewState) MarkSelected(unitID int) UnitsViewState {
	out := v.Clone()
	for i := range out.Squads {
		out.Squads[i].IsSelected = out.Squads[i].UnitID == unitID
	}
	return out
}
