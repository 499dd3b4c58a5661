package editor

import "github.com/flanker-wargame/client/pkg/core"

// State is the editor's UI state: Default, Selected, Draw or DrawWaypoints.
// Variants are values; slices they carry are never modified after the state
// is published.
type State interface {
	Name() string
	isState()
}

// Default means no terrain is selected and nothing is being drawn.
type Default struct{}

// Selected holds the terrain being edited.
type Selected struct {
	Terrain core.Terrain
}

// Draw holds the world-space polygon drawn so far.
type Draw struct {
	Polygon []core.Vec2
}

// DrawWaypoints holds the waypoints placed so far for one faction.
type DrawWaypoints struct {
	Waypoints core.Waypoints
}

func (Default) Name() string       { return "default" }
func (Selected) Name() string      { return "selected" }
func (Draw) Name() string          { return "draw" }
func (DrawWaypoints) Name() string { return "draw_waypoints" }

func (Default) isState()       {}
func (Selected) isState()      {}
func (Draw) isState()          {}
func (DrawWaypoints) isState() {}
