package stream

import (
	"encoding/json"

	"github.com/flanker-wargame/client/internal/editor"
	"github.com/flanker-wargame/client/internal/player"
	"github.com/flanker-wargame/client/pkg/core"
)

// Message type constants of the relay protocol.
const (
	TypeHello      = "hello"
	TypePlayerView = "player_view"
	TypeEditorView = "editor_view"
	TypeActionLogs = "action_logs"
	TypeGoodbye    = "goodbye"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the renderer's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload identifies the client and the game it is bound to.
type HelloPayload struct {
	ClientID  string `json:"clientId"`
	SceneName string `json:"sceneName"`
	GameID    int    `json:"gameId"`
}

// PlayerViewPayload is the wire form of a player.View.
type PlayerViewPayload struct {
	State        string              `json:"state"`
	SelectedUnit *int                `json:"selectedUnit,omitempty"`
	MoveMarker   *core.Vec2          `json:"moveMarker,omitempty"`
	Target       *int                `json:"target,omitempty"`
	Units        core.UnitsViewState `json:"units"`
	Terrain      []core.Terrain      `json:"terrain"`
	Fetching     bool                `json:"fetching"`
	MoveValid    bool                `json:"moveValid"`
	FireValid    bool                `json:"fireValid"`
	AssaultValid bool                `json:"assaultValid"`
}

// EditorViewPayload is the wire form of an editor.View.
type EditorViewPayload struct {
	State       string          `json:"state"`
	Selected    *core.Terrain   `json:"selected,omitempty"`
	DrawPolygon []core.Vec2     `json:"drawPolygon,omitempty"`
	Waypoints   *core.Waypoints `json:"waypoints,omitempty"`
	Terrain     []core.Terrain  `json:"terrain"`
	Pending     int             `json:"pending"`
}

// NewPlayerViewPayload flattens the state variant into optional fields.
func NewPlayerViewPayload(v player.View) PlayerViewPayload {
	p := PlayerViewPayload{
		State:        v.State.Name(),
		Units:        v.Units,
		Terrain:      v.Terrain,
		Fetching:     v.Fetching,
		MoveValid:    v.MoveValid,
		FireValid:    v.FireValid,
		AssaultValid: v.AssaultValid,
	}
	if unit, ok := player.SelectedUnit(v.State); ok {
		id := unit.UnitID
		p.SelectedUnit = &id
	}
	switch s := v.State.(type) {
	case player.MoveMarked:
		marker := s.Marker
		p.MoveMarker = &marker
	case player.AttackMarked:
		target := s.Target.UnitID
		p.Target = &target
	}
	return p
}

// NewEditorViewPayload flattens the state variant into optional fields.
func NewEditorViewPayload(v editor.View) EditorViewPayload {
	p := EditorViewPayload{
		State:   v.State.Name(),
		Terrain: v.Terrain,
		Pending: v.Pending,
	}
	switch s := v.State.(type) {
	case editor.Selected:
		t := s.Terrain
		p.Selected = &t
	case editor.Draw:
		p.DrawPolygon = s.Polygon
	case editor.DrawWaypoints:
		w := s.Waypoints
		p.Waypoints = &w
	}
	return p
}
