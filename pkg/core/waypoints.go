package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Faction identifies a side for AI waypoint configuration.
type Faction string

const (
	FactionBlue Faction = "BLUE"
	FactionRed  Faction = "RED"
)

// Valid reports whether f is a known faction.
func (f Faction) Valid() bool {
	return f == FactionBlue || f == FactionRed
}

// ParseFaction accepts BLUE or RED in any case.
func ParseFaction(s string) (Faction, error) {
	f := Faction(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown faction %q", s)
	}
	return f, nil
}

// UnmarshalJSON rejects unknown factions.
func (f *Faction) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("faction: %w", err)
	}
	if !Faction(raw).Valid() {
		return fmt.Errorf("faction: unknown value %q", raw)
	}
	*f = Faction(raw)
	return nil
}

// Waypoints is the AI waypoint configuration for one faction.
type Waypoints struct {
	Faction Faction `json:"faction"`
	Points  []Vec2  `json:"points"`
}

// Clone returns a copy with its own point slice.
func (w Waypoints) Clone() Waypoints {
	out := w
	out.Points = make([]Vec2, len(w.Points))
	copy(out.Points, w.Points)
	return out
}
