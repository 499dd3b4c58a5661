package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/flanker-wargame/client/internal/dispatcher"
	"github.com/flanker-wargame/client/internal/gateway/gatewaytest"
	"github.com/flanker-wargame/client/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	forest = core.Terrain{
		TerrainID:   1,
		TerrainType: core.TerrainForest,
		Position:    core.Vec2{X: 0, Y: 0},
		Vertices:    []core.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
	}
	road = core.Terrain{
		TerrainID:   2,
		TerrainType: core.TerrainRoad,
		Position:    core.Vec2{X: 100, Y: 100},
		Vertices:    []core.Vec2{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 4}, {X: 0, Y: 4}},
	}
)

func newTestEditor(t *testing.T) (*Controller, *gatewaytest.Fake) {
	t.Helper()
	fake := gatewaytest.New([]core.Terrain{forest, road}, core.NewUnitsViewState())
	c, err := New(fake, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	c.RefreshTerrain()
	require.NoError(t, c.Wait(context.Background()))
	return c, fake
}

func TestRefreshTerrain(t *testing.T) {
	c, fake := newTestEditor(t)

	assert.Len(t, c.Terrain(), 2)
	assert.Len(t, fake.CallsTo("FetchTerrain"), 1)
	assert.Equal(t, Default{}, c.State())
}

func TestRefreshTerrain_LastQueuedWins(t *testing.T) {
	c, fake := newTestEditor(t)

	c.RefreshTerrain()
	fake.SetTerrain([]core.Terrain{road})
	c.RefreshTerrain()
	require.NoError(t, c.Wait(context.Background()))

	terrain := c.Terrain()
	require.Len(t, terrain, 1)
	assert.Equal(t, 2, terrain[0].TerrainID)
}

func TestRefreshTerrain_FailureKeepsTerrain(t *testing.T) {
	c, fake := newTestEditor(t)
	fake.Fail("FetchTerrain", errors.New("timeout"))

	c.RefreshTerrain()
	require.NoError(t, c.Wait(context.Background()))

	assert.Len(t, c.Terrain(), 2)
}

func TestSelectTerrain_FromDefault(t *testing.T) {
	c, fake := newTestEditor(t)

	c.SelectTerrain(forest)
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, Selected{Terrain: forest}, c.State())
	assert.Empty(t, fake.CallsTo("UpdateTerrain"))
}

func TestSelectTerrain_ImplicitlySavesPrevious(t *testing.T) {
	c, fake := newTestEditor(t)

	c.SelectTerrain(forest)
	require.True(t, c.EditSelected(func(t *core.Terrain) { t.Degrees = 45 }))
	c.SelectTerrain(road)
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, Selected{Terrain: road}, c.State())
	calls := fake.CallsTo("UpdateTerrain")
	require.Len(t, calls, 1)
	saved := calls[0].Args[0].(core.Terrain)
	assert.Equal(t, 1, saved.TerrainID)
	assert.Equal(t, 45.0, saved.Degrees)
}

func TestSelectTerrain_SaveWaitsForFullQueue(t *testing.T) {
	c, fake := newTestEditor(t)
	c.SelectTerrain(forest)
	require.True(t, c.EditSelected(func(t *core.Terrain) { t.Position = core.Vec2{X: 99, Y: 99} }))

	entered, release := fake.Hold()
	defer release()
	c.RefreshTerrain()
	<-entered
	for i := 0; i < dispatcher.DefaultBufferSize+1; i++ {
		c.RefreshTerrain()
	}
	require.Equal(t, dispatcher.DefaultBufferSize, c.View().Pending)

	selected := make(chan struct{})
	go func() {
		c.SelectTerrain(road)
		close(selected)
	}()

	select {
	case <-selected:
		t.Fatal("SelectTerrain returned while the queue was full")
	case <-time.After(30 * time.Millisecond):
	}

	release()
	<-selected
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, Selected{Terrain: road}, c.State())
	calls := fake.CallsTo("UpdateTerrain")
	require.Len(t, calls, 1)
	saved := calls[0].Args[0].(core.Terrain)
	assert.Equal(t, 1, saved.TerrainID)
	assert.Equal(t, core.Vec2{X: 99, Y: 99}, saved.Position)
}

func TestSelectTerrain_SameFeatureIsSavedAgain(t *testing.T) {
	c, fake := newTestEditor(t)

	c.SelectTerrain(forest)
	c.SelectTerrain(forest)
	require.NoError(t, c.Wait(context.Background()))

	assert.Len(t, fake.CallsTo("UpdateTerrain"), 1)
}

func TestSelectTerrain_HookCanDeclineSave(t *testing.T) {
	c, fake := newTestEditor(t)

	var seen []int
	c.OnImplicitSave(func(previous core.Terrain) bool {
		seen = append(seen, previous.TerrainID)
		return false
	})

	c.SelectTerrain(forest)
	c.SelectTerrain(road)
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, []int{1}, seen)
	assert.Empty(t, fake.CallsTo("UpdateTerrain"))
	assert.Equal(t, Selected{Terrain: road}, c.State())
}

func TestSelectTerrain_IgnoredWhileDrawing(t *testing.T) {
	c, _ := newTestEditor(t)

	c.DrawMode()
	c.SelectTerrain(forest)
	assert.IsType(t, Draw{}, c.State())

	c.WaypointsMode(core.FactionBlue)
	c.SelectTerrain(forest)
	assert.IsType(t, DrawWaypoints{}, c.State())
}

func TestSelectAt(t *testing.T) {
	c, _ := newTestEditor(t)

	assert.True(t, c.SelectAt(core.Vec2{X: 120, Y: 102}))
	assert.Equal(t, Selected{Terrain: road}, c.State())

	assert.False(t, c.SelectAt(core.Vec2{X: -500, Y: -500}))
	assert.Equal(t, Selected{Terrain: road}, c.State())
}

func TestUpdateTerrain(t *testing.T) {
	c, fake := newTestEditor(t)

	require.NoError(t, c.UpdateTerrain(context.Background()))
	assert.Empty(t, fake.CallsTo("UpdateTerrain"), "no-op without a selection")

	c.SelectTerrain(forest)
	require.NoError(t, c.UpdateTerrain(context.Background()))
	assert.Len(t, fake.CallsTo("UpdateTerrain"), 1)

	fake.Fail("UpdateTerrain", errors.New("conflict"))
	err := c.UpdateTerrain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict")
	assert.Equal(t, Selected{Terrain: forest}, c.State())
}

func TestDeleteTerrain_KeepsLocalCopy(t *testing.T) {
	c, fake := newTestEditor(t)

	require.NoError(t, c.DeleteTerrain(context.Background()))
	assert.Empty(t, fake.CallsTo("DeleteTerrain"))

	c.SelectTerrain(road)
	require.NoError(t, c.DeleteTerrain(context.Background()))

	calls := fake.CallsTo("DeleteTerrain")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{2}, calls[0].Args)
	assert.Len(t, c.Terrain(), 2, "local terrain waits for a refresh")

	c.RefreshTerrain()
	require.NoError(t, c.Wait(context.Background()))
	assert.Len(t, c.Terrain(), 1)
}

func TestAddVertex_OnlyInDrawMode(t *testing.T) {
	c, _ := newTestEditor(t)

	c.AddVertex(core.Vec2{X: 1, Y: 1})
	assert.Equal(t, Default{}, c.State())

	c.DrawMode()
	c.AddVertex(core.Vec2{X: 1, Y: 1})
	c.AddWaypoint(core.Vec2{X: 9, Y: 9})
	assert.Equal(t, Draw{Polygon: []core.Vec2{{X: 1, Y: 1}}}, c.State())
}

func TestDrawMode_DiscardsPreviousDrawing(t *testing.T) {
	c, _ := newTestEditor(t)

	c.DrawMode()
	c.AddVertex(core.Vec2{X: 1, Y: 1})
	c.DrawMode()
	assert.Equal(t, Draw{Polygon: []core.Vec2{}}, c.State())
}

func TestAddVertex_PublishedStatesAreImmutable(t *testing.T) {
	c, _ := newTestEditor(t)

	c.DrawMode()
	c.AddVertex(core.Vec2{X: 1, Y: 1})
	before := c.State().(Draw)
	c.AddVertex(core.Vec2{X: 2, Y: 2})

	assert.Len(t, before.Polygon, 1)
	assert.Len(t, c.State().(Draw).Polygon, 2)
}

func TestFinishDraw_TwoVerticesIsNoop(t *testing.T) {
	c, fake := newTestEditor(t)

	c.DrawMode()
	c.AddVertex(core.Vec2{X: 0, Y: 0})
	c.AddVertex(core.Vec2{X: 10, Y: 0})
	require.NoError(t, c.FinishDraw(context.Background()))

	assert.Empty(t, fake.CallsTo("CreateTerrain"))
	assert.IsType(t, Draw{}, c.State())
}

func TestFinishDraw_NotDrawingIsNoop(t *testing.T) {
	c, fake := newTestEditor(t)

	require.NoError(t, c.FinishDraw(context.Background()))
	assert.Empty(t, fake.CallsTo("CreateTerrain"))
}

func TestFinishDraw_CreatesForestAnchoredAtFirstVertex(t *testing.T) {
	c, fake := newTestEditor(t)

	c.DrawMode()
	c.AddVertex(core.Vec2{X: 0, Y: 0})
	c.AddVertex(core.Vec2{X: 10, Y: 0})
	c.AddVertex(core.Vec2{X: 10, Y: 10})
	require.NoError(t, c.FinishDraw(context.Background()))

	calls := fake.CallsTo("CreateTerrain")
	require.Len(t, calls, 1)
	created := calls[0].Args[0].(core.Terrain)
	assert.Equal(t, core.Terrain{
		TerrainID:   0,
		TerrainType: core.TerrainForest,
		Position:    core.Vec2{X: 0, Y: 0},
		Degrees:     0,
		Vertices:    []core.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
	}, created)
	assert.Equal(t, Default{}, c.State())

	require.NoError(t, c.Wait(context.Background()))
	assert.Len(t, c.Terrain(), 3, "finish queues a refresh")
}

func TestFinishDraw_OffsetsFromFirstVertex(t *testing.T) {
	c, fake := newTestEditor(t)

	c.DrawMode()
	c.AddVertex(core.Vec2{X: 30, Y: 40})
	c.AddVertex(core.Vec2{X: 35, Y: 40})
	c.AddVertex(core.Vec2{X: 35, Y: 48})
	c.AddVertex(core.Vec2{X: 30, Y: 48})
	require.NoError(t, c.FinishDraw(context.Background()))

	created := fake.CallsTo("CreateTerrain")[0].Args[0].(core.Terrain)
	assert.Equal(t, core.Vec2{X: 30, Y: 40}, created.Position)
	assert.Equal(t, core.Vec2{}, created.Vertices[0])
	assert.Equal(t, core.Vec2{X: 5, Y: 8}, created.Vertices[2])
}

func TestFinishDraw_FailureKeepsDrawing(t *testing.T) {
	c, fake := newTestEditor(t)
	fake.Fail("CreateTerrain", errors.New("invalid polygon"))

	c.DrawMode()
	for _, v := range []core.Vec2{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}} {
		c.AddVertex(v)
	}
	err := c.FinishDraw(context.Background())

	require.Error(t, err)
	draw, ok := c.State().(Draw)
	require.True(t, ok)
	assert.Len(t, draw.Polygon, 3)
	assert.Len(t, fake.CallsTo("FetchTerrain"), 1, "no refresh after a failed create")
}

func TestWaypoints(t *testing.T) {
	c, fake := newTestEditor(t)

	require.NoError(t, c.UpdateWaypoints(context.Background()))
	assert.Empty(t, fake.Waypoints())

	c.WaypointsMode(core.FactionRed)
	c.AddWaypoint(core.Vec2{X: 1, Y: 2})
	c.AddVertex(core.Vec2{X: 9, Y: 9})
	c.AddWaypoint(core.Vec2{X: 3, Y: 4})
	require.NoError(t, c.UpdateWaypoints(context.Background()))

	got := fake.Waypoints()
	require.Len(t, got, 1)
	assert.Equal(t, core.Waypoints{
		Faction: core.FactionRed,
		Points:  []core.Vec2{{X: 1, Y: 2}, {X: 3, Y: 4}},
	}, got[0])
	assert.IsType(t, DrawWaypoints{}, c.State(), "waypoints stay editable after sending")
}

func TestReset(t *testing.T) {
	c, fake := newTestEditor(t)

	c.SelectTerrain(forest)
	c.Reset()
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, Default{}, c.State())
	assert.Empty(t, fake.CallsTo("UpdateTerrain"), "reset does not save")
}

func TestEditSelected(t *testing.T) {
	c, _ := newTestEditor(t)

	assert.False(t, c.EditSelected(func(t *core.Terrain) {}))

	c.SelectTerrain(forest)
	assert.True(t, c.EditSelected(func(t *core.Terrain) {
		t.TerrainType = core.TerrainWater
		t.Vertices[0] = core.Vec2{X: -1, Y: -1}
	}))

	s := c.State().(Selected)
	assert.Equal(t, core.TerrainWater, s.Terrain.TerrainType)
	assert.Equal(t, core.Vec2{X: 0, Y: 0}, forest.Vertices[0], "caller's terrain is never aliased")
}

func TestGatewayCallsAreSerialized(t *testing.T) {
	c, fake := newTestEditor(t)
	c.SelectTerrain(forest)

	entered, release := fake.Hold()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.UpdateTerrain(context.Background())
	}()
	<-entered

	c.RefreshTerrain()
	c.SelectTerrain(road)

	select {
	case op := <-entered:
		t.Fatalf("%s ran while another call was in flight", op)
	case <-time.After(30 * time.Millisecond):
	}
	assert.Equal(t, 2, c.View().Pending)

	release()
	wg.Wait()
	require.NoError(t, c.Wait(context.Background()))

	var ops []string
	for _, call := range fake.Calls()[1:] {
		ops = append(ops, call.Op)
	}
	assert.Equal(t, []string{"UpdateTerrain", "FetchTerrain", "UpdateTerrain"}, ops)
}

func TestView_Published(t *testing.T) {
	c, _ := newTestEditor(t)

	views, cancel := c.Subscribe(8)
	defer cancel()

	c.DrawMode()
	deadline := time.After(time.Second)
	for {
		select {
		case v := <-views.Receive():
			if v.State.Name() == "draw" {
				assert.Len(t, v.Terrain, 2)
				return
			}
		case <-deadline:
			t.Fatal("draw view never published")
		}
	}
}
