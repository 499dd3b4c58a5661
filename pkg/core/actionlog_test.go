package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLogs = `[
	{
		"logType": "MoveActionLog",
		"body": {"unitId": 1, "to": {"x": 10, "y": 5}},
		"reactiveFireOutcome": "PIN",
		"unitState": {"objectiveState": "INCOMPLETE", "hasInitiative": false, "squads": []}
	},
	{
		"logType": "FireActionLog",
		"body": {"unitId": 1, "targetId": 2},
		"outcome": 3,
		"unitState": {"objectiveState": "INCOMPLETE", "hasInitiative": true, "squads": [
			{"unitId": 1, "position": {"x": 10, "y": 5}, "status": "ACTIVE", "isFriendly": true, "noFire": false}
		]}
	},
	{
		"logType": "AssaultActionLog",
		"body": {"unitId": 3, "targetId": 4},
		"outcome": "SUCCESS",
		"unitState": {"objectiveState": "COMPLETED", "hasInitiative": true, "squads": []}
	}
]`

func TestDecodeActionLogs_Heterogeneous(t *testing.T) {
	logs, err := DecodeActionLogs([]byte(sampleLogs))
	require.NoError(t, err)
	require.Len(t, logs, 3)

	move, ok := logs[0].(MoveLog)
	require.True(t, ok)
	assert.Equal(t, LogTypeMove, move.LogType())
	assert.Equal(t, Vec2{X: 10, Y: 5}, move.Body.To)
	require.NotNil(t, move.ReactiveFireOutcome)
	assert.Equal(t, FirePin, *move.ReactiveFireOutcome)

	fire, ok := logs[1].(FireLog)
	require.True(t, ok)
	assert.Equal(t, 2, fire.Body.TargetID)
	require.NotNil(t, fire.Outcome)
	assert.Equal(t, FireKill, *fire.Outcome, "ordinal 3 decodes to KILL")
	assert.Len(t, fire.Snapshot().Squads, 1)

	assault, ok := logs[2].(AssaultLog)
	require.True(t, ok)
	assert.Equal(t, 3, assault.ActorID())
	require.NotNil(t, assault.Outcome)
	assert.Equal(t, AssaultSuccess, *assault.Outcome)
	assert.Nil(t, assault.ReactiveFireOutcome)
	assert.Equal(t, ObjectiveCompleted, assault.Snapshot().ObjectiveState)
}

func TestDecodeActionLogs_UnknownType(t *testing.T) {
	_, err := DecodeActionLogs([]byte(`[{"logType": "SmokeActionLog"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 0")
}

func TestFireOutcome_Encodings(t *testing.T) {
	tests := []struct {
		raw  string
		want FireOutcome
	}{
		{`"MISS"`, FireMiss},
		{`"SUPPRESS"`, FireSuppress},
		{`0`, FireMiss},
		{`1`, FirePin},
		{`2`, FireSuppress},
	}
	for _, tt := range tests {
		var got FireOutcome
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &got), tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	var bad FireOutcome
	assert.Error(t, json.Unmarshal([]byte(`4`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`"GRAZE"`), &bad))
}

func TestAssaultOutcome_OrdinalOutOfRange(t *testing.T) {
	var o AssaultOutcome
	assert.Error(t, json.Unmarshal([]byte(`2`), &o))
	require.NoError(t, json.Unmarshal([]byte(`1`), &o))
	assert.Equal(t, AssaultSuccess, o)
}

func TestMarshal_EmitsDiscriminatorAndNames(t *testing.T) {
	kill := FireKill
	data, err := json.Marshal(FireLog{
		Body:      TargetRequest{UnitID: 1, TargetID: 2},
		Outcome:   &kill,
		UnitState: NewUnitsViewState(),
	})
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "FireActionLog", generic["logType"])
	assert.Equal(t, "KILL", generic["outcome"])

	back, err := DecodeActionLog(data)
	require.NoError(t, err)
	assert.Equal(t, LogTypeFire, back.LogType())
}
