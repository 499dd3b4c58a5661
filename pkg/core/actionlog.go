// pkg/core/actionlog.go
package core

import (
	"encoding/json"
	"fmt"
)

// LogType discriminates the entries of the server action log.
type LogType string

const (
	LogTypeMove    LogType = "MoveActionLog"
	LogTypeFire    LogType = "FireActionLog"
	LogTypeAssault LogType = "AssaultActionLog"
)

// MoveRequest is the body of a move action.
type MoveRequest struct {
	UnitID int  `json:"unitId"`
	To     Vec2 `json:"to"`
}

// TargetRequest is the body of a fire or assault action.
type TargetRequest struct {
	UnitID   int `json:"unitId"`
	TargetID int `json:"targetId"`
}

// ActionLog is one entry of the server action log.
// Implementations: MoveLog, FireLog, AssaultLog.
type ActionLog interface {
	LogType() LogType
	// ActorID is the unit that performed the action.
	ActorID() int
	// Snapshot is the unit view state right after the action resolved.
	Snapshot() UnitsViewState
	isActionLog()
}

// MoveLog records a move and any reactive fire it drew.
type MoveLog struct {
	Body                MoveRequest    `json:"body"`
	ReactiveFireOutcome *FireOutcome   `json:"reactiveFireOutcome,omitempty"`
	UnitState           UnitsViewState `json:"unitState"`
}

// FireLog records a fire action.
type FireLog struct {
	Body      TargetRequest  `json:"body"`
	Outcome   *FireOutcome   `json:"outcome,omitempty"`
	UnitState UnitsViewState `json:"unitState"`
}

// AssaultLog records an assault and any reactive fire it drew.
type AssaultLog struct {
	Body                TargetRequest   `json:"body"`
	Outcome             *AssaultOutcome `json:"outcome,omitempty"`
	ReactiveFireOutcome *FireOutcome    `json:"reactiveFireOutcome,omitempty"`
	UnitState           UnitsViewState  `json:"unitState"`
}

func (MoveLog) LogType() LogType    { return LogTypeMove }
func (FireLog) LogType() LogType    { return LogTypeFire }
func (AssaultLog) LogType() LogType { return LogTypeAssault }

func (l MoveLog) ActorID() int    { return l.Body.UnitID }
func (l FireLog) ActorID() int    { return l.Body.UnitID }
func (l AssaultLog) ActorID() int { return l.Body.UnitID }

func (l MoveLog) Snapshot() UnitsViewState    { return l.UnitState }
func (l FireLog) Snapshot() UnitsViewState    { return l.UnitState }
func (l AssaultLog) Snapshot() UnitsViewState { return l.UnitState }

func (MoveLog) isActionLog()    {}
func (FireLog) isActionLog()    {}
func (AssaultLog) isActionLog() {}

// MarshalJSON adds the logType discriminator.
func (l MoveLog) MarshalJSON() ([]byte, error) {
	type alias MoveLog
	return json.Marshal(struct {
		LogType LogType `json:"logType"`
		alias
	}{LogTypeMove, alias(l)})
}

// MarshalJSON adds the logType discriminator.
func (l FireLog) MarshalJSON() ([]byte, error) {
	type alias FireLog
	return json.Marshal(struct {
		LogType LogType `json:"logType"`
		alias
	}{LogTypeFire, alias(l)})
}

// MarshalJSON adds the logType discriminator.
func (l AssaultLog) MarshalJSON() ([]byte, error) {
	type alias AssaultLog
	return json.Marshal(struct {
		LogType LogType `json:"logType"`
		alias
	}{LogTypeAssault, alias(l)})
}

// DecodeActionLog decodes a single discriminated log entry.
func DecodeActionLog(data []byte) (ActionLog, error) {
	var head struct {
		LogType LogType `json:"logType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("action log: %w", err)
	}

	switch head.LogType {
	case LogTypeMove:
		var l MoveLog
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("move action log: %w", err)
		}
		return l, nil
	case LogTypeFire:
		var l FireLog
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("fire action log: %w", err)
		}
		return l, nil
	case LogTypeAssault:
		var l AssaultLog
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("assault action log: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("action log: unknown logType %q", head.LogType)
	}
}

// DecodeActionLogs decodes a JSON array of discriminated log entries.
func DecodeActionLogs(data []byte) ([]ActionLog, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("action logs: %w", err)
	}
	logs := make([]ActionLog, 0, len(raw))
	for i, r := range raw {
		l, err := DecodeActionLog(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
