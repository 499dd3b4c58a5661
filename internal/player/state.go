package player

import "github.com/flanker-wargame/client/pkg/core"

// State is the turn controller's UI state. Exactly one variant is active:
// Default, Selected, MoveMarked or AttackMarked.
type State interface {
	// Name is a stable label for logs and renderers.
	Name() string
	isState()
}

// Default means nothing is selected.
type Default struct{}

// Selected holds the chosen actor. An enemy may be selected from Default
// for inspection only.
type Selected struct {
	Unit core.Squad
}

// MoveMarked holds a destination awaiting confirmation.
type MoveMarked struct {
	Unit   core.Squad
	Marker core.Vec2
}

// AttackMarked holds a hostile target awaiting fire or assault.
type AttackMarked struct {
	Unit   core.Squad
	Target core.Squad
}

func (Default) Name() string      { return "default" }
func (Selected) Name() string     { return "selected" }
func (MoveMarked) Name() string   { return "move_marked" }
func (AttackMarked) Name() string { return "attack_marked" }

func (Default) isState()      {}
func (Selected) isState()     {}
func (MoveMarked) isState()   {}
func (AttackMarked) isState() {}

// SelectedUnit returns the actor of every non-Default state.
func SelectedUnit(s State) (core.Squad, bool) {
	switch s := s.(type) {
	case Selected:
		return s.Unit, true
	case MoveMarked:
		return s.Unit, true
	case AttackMarked:
		return s.Unit, true
	default:
		return core.Squad{}, false
	}
}
