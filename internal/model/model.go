package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is the list of tables in the journal schema.
var DatabaseModels = []interface{}{
	&JournalInfo{},
	&ActionLogRecord{},
	&TerrainRecord{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// JournalInfo identifies the client that wrote a journal database.
type JournalInfo struct {
	gorm.Model
	ClientID      string `json:"clientId" gorm:"size:64;uniqueIndex"`
	ClientVersion string `json:"clientVersion" gorm:"size:32"`
	ServerURL     string `json:"serverUrl" gorm:"size:255"`
}

func (*JournalInfo) TableName() string {
	return "journal_infos"
}

////////////////////////
// JOURNAL MODELS
////////////////////////

// ActionLogRecord is one archived entry of a game's action log.
// Seq is the entry's index in the server log, which only ever grows, so
// (scene, game, seq) identifies an entry across repeated archives.
type ActionLogRecord struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RecordedAt time.Time `json:"recordedAt" gorm:"autoCreateTime"`
	SceneName  string    `json:"sceneName" gorm:"size:127;uniqueIndex:idx_action_log_entry"`
	GameID     int       `json:"gameId" gorm:"uniqueIndex:idx_action_log_entry"`
	Seq        int       `json:"seq" gorm:"uniqueIndex:idx_action_log_entry"`

	LogType             string         `json:"logType" gorm:"size:32;index"`
	UnitID              int            `json:"unitId" gorm:"index"`
	TargetID            *int           `json:"targetId,omitempty"`
	ToX                 *float64       `json:"toX,omitempty"`
	ToY                 *float64       `json:"toY,omitempty"`
	Outcome             string         `json:"outcome,omitempty" gorm:"size:16"`
	ReactiveFireOutcome string         `json:"reactiveFireOutcome,omitempty" gorm:"size:16"`
	HasInitiative       bool           `json:"hasInitiative"`
	ObjectiveState      string         `json:"objectiveState" gorm:"size:16"`
	UnitState           datatypes.JSON `json:"unitState"`
}

func (*ActionLogRecord) TableName() string {
	return "action_logs"
}

// TerrainRecord is a terrain feature as it was when a game's log was archived.
type TerrainRecord struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RecordedAt time.Time `json:"recordedAt" gorm:"autoCreateTime"`
	SceneName  string    `json:"sceneName" gorm:"size:127;uniqueIndex:idx_terrain_entry"`
	GameID     int       `json:"gameId" gorm:"uniqueIndex:idx_terrain_entry"`
	TerrainID  int       `json:"terrainId" gorm:"uniqueIndex:idx_terrain_entry"`

	TerrainType string         `json:"terrainType" gorm:"size:16"`
	PositionX   float64        `json:"positionX"`
	PositionY   float64        `json:"positionY"`
	Degrees     float64        `json:"degrees"`
	Area        float64        `json:"area"`
	Vertices    datatypes.JSON `json:"vertices"`
}

func (*TerrainRecord) TableName() string {
	return "terrain"
}
