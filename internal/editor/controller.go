// Package editor implements the terrain editor controller: selection with
// implicit save, freehand polygon drawing, AI waypoint drawing and terrain
// CRUD. Gateway calls run one at a time on a dispatcher queue.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/flanker-wargame/client/internal/channel"
	"github.com/flanker-wargame/client/internal/dispatcher"
	"github.com/flanker-wargame/client/internal/gateway"
	"github.com/flanker-wargame/client/internal/geo"
	"github.com/flanker-wargame/client/pkg/core"
)

// DrawnTerrainType is the type given to every polygon finished in draw mode.
const DrawnTerrainType = core.TerrainForest

// View is an immutable snapshot of the editor for rendering.
type View struct {
	State   State
	Terrain []core.Terrain
	// Pending is the number of gateway calls waiting in the queue.
	Pending int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithQueueOptions passes options to the gateway queue.
func WithQueueOptions(opts ...dispatcher.Option) Option {
	return func(c *Controller) {
		c.queueOpts = append(c.queueOpts, opts...)
	}
}

// Controller is the editor state machine.
type Controller struct {
	gw        gateway.Gateway
	logger    *slog.Logger
	queue     *dispatcher.Dispatcher
	queueOpts []dispatcher.Option
	views     *channel.Broadcaster[View]

	mu           sync.Mutex
	terrain      []core.Terrain
	state        State
	implicitSave func(core.Terrain) bool
}

// New creates an editor in the Default state with no terrain loaded.
func New(gw gateway.Gateway, opts ...Option) (*Controller, error) {
	c := &Controller{
		gw:     gw,
		logger: slog.Default(),
		views:  channel.NewBroadcaster[View](),
		state:  Default{},
	}
	for _, opt := range opts {
		opt(c)
	}

	q, err := dispatcher.New("editor", c.logger, c.queueOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating editor queue: %w", err)
	}
	c.queue = q

	return c, nil
}

// OnImplicitSave installs a hook consulted before the previous selection is
// saved by SelectTerrain. Returning false skips the save. A nil hook, the
// default, always saves.
func (c *Controller) OnImplicitSave(fn func(previous core.Terrain) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.implicitSave = fn
}

// RefreshTerrain queues a terrain fetch and returns immediately. Fetches run
// in submission order, so the last one queued determines the terrain.
func (c *Controller) RefreshTerrain() {
	err := c.queue.Go("refresh_terrain", func(ctx context.Context) error {
		terrain, err := c.gw.FetchTerrain(ctx)
		if err != nil {
			return fmt.Errorf("fetch terrain: %w", err)
		}
		c.mu.Lock()
		c.terrain = terrain
		c.mu.Unlock()
		c.publish()
		return nil
	})
	if err != nil {
		c.logger.Warn("terrain refresh not queued", "error", err)
	}
}

// SelectTerrain selects t. Only valid from Default or Selected; whatever
// was selected before, the same feature included, is saved first unless the
// implicit save hook declines. The save is never dropped: while the queue is
// full SelectTerrain blocks until it has room.
func (c *Controller) SelectTerrain(t core.Terrain) {
	c.mu.Lock()
	var previous *core.Terrain
	switch s := c.state.(type) {
	case Default:
	case Selected:
		previous = &s.Terrain
	default:
		c.mu.Unlock()
		return
	}
	hook := c.implicitSave
	c.state = Selected{Terrain: t.Clone()}
	c.mu.Unlock()

	if previous != nil {
		if hook == nil || hook(*previous) {
			c.save(*previous)
		} else {
			c.logger.Debug("implicit save declined", "terrainId", previous.TerrainID)
		}
	}
	c.publish()
}

// SelectAt selects the topmost loaded feature containing p. It reports
// whether one was found.
func (c *Controller) SelectAt(p core.Vec2) bool {
	c.mu.Lock()
	t, ok := geo.TerrainAt(c.terrain, p)
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.SelectTerrain(t)
	return true
}

func (c *Controller) save(t core.Terrain) {
	t = t.Clone()
	err := c.queue.Enqueue("implicit_save", func(ctx context.Context) error {
		if err := c.gw.UpdateTerrain(ctx, t); err != nil {
			return fmt.Errorf("implicit save of terrain %d: %w", t.TerrainID, err)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("implicit save not queued", "terrainId", t.TerrainID, "error", err)
	}
}

// EditSelected applies fn to a copy of the selected terrain and makes the
// copy the selection. Not persisted until UpdateTerrain or the next
// selection.
func (c *Controller) EditSelected(fn func(t *core.Terrain)) bool {
	c.mu.Lock()
	s, ok := c.state.(Selected)
	if !ok {
		c.mu.Unlock()
		return false
	}
	t := s.Terrain.Clone()
	fn(&t)
	c.state = Selected{Terrain: t}
	c.mu.Unlock()
	c.publish()
	return true
}

// UpdateTerrain saves the selected terrain. No-op unless Selected.
func (c *Controller) UpdateTerrain(ctx context.Context) error {
	c.mu.Lock()
	s, ok := c.state.(Selected)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	t := s.Terrain.Clone()
	return c.queue.Do(ctx, "update_terrain", func(ctx context.Context) error {
		if err := c.gw.UpdateTerrain(ctx, t); err != nil {
			return fmt.Errorf("update terrain %d: %w", t.TerrainID, err)
		}
		return nil
	})
}

// DeleteTerrain deletes the selected terrain on the server. The local
// terrain list is left as is until the next RefreshTerrain.
func (c *Controller) DeleteTerrain(ctx context.Context) error {
	c.mu.Lock()
	s, ok := c.state.(Selected)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	id := s.Terrain.TerrainID
	return c.queue.Do(ctx, "delete_terrain", func(ctx context.Context) error {
		if err := c.gw.DeleteTerrain(ctx, id); err != nil {
			return fmt.Errorf("delete terrain %d: %w", id, err)
		}
		return nil
	})
}

// DrawMode starts a new polygon, discarding any unsaved drawing.
func (c *Controller) DrawMode() {
	c.setState(Draw{Polygon: []core.Vec2{}})
}

// WaypointsMode starts a new waypoint list for faction, discarding any
// unsaved drawing.
func (c *Controller) WaypointsMode(faction core.Faction) {
	c.setState(DrawWaypoints{Waypoints: core.Waypoints{Faction: faction, Points: []core.Vec2{}}})
}

// AddVertex appends a world-space vertex in Draw mode.
func (c *Controller) AddVertex(pos core.Vec2) {
	c.mu.Lock()
	s, ok := c.state.(Draw)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.state = Draw{Polygon: append(slices.Clip(s.Polygon), pos)}
	c.mu.Unlock()
	c.publish()
}

// AddWaypoint appends a point in DrawWaypoints mode.
func (c *Controller) AddWaypoint(pos core.Vec2) {
	c.mu.Lock()
	s, ok := c.state.(DrawWaypoints)
	if !ok {
		c.mu.Unlock()
		return
	}
	w := s.Waypoints
	w.Points = append(slices.Clip(w.Points), pos)
	c.state = DrawWaypoints{Waypoints: w}
	c.mu.Unlock()
	c.publish()
}

// FinishDraw creates a forest from the drawn polygon, anchored at its first
// vertex, then refreshes terrain and resets. No-op unless in Draw mode with
// at least three vertices. On failure the drawing is kept.
func (c *Controller) FinishDraw(ctx context.Context) error {
	c.mu.Lock()
	s, ok := c.state.(Draw)
	c.mu.Unlock()
	if !ok || len(s.Polygon) < geo.MinVertices {
		return nil
	}

	if err := geo.Validate(s.Polygon); err != nil {
		c.logger.Warn("drawn polygon is not simple", "vertices", len(s.Polygon), "error", err)
	}

	position, vertices := geo.ToLocal(s.Polygon)
	terrain := core.Terrain{
		TerrainID:   0, // assigned by the server
		TerrainType: DrawnTerrainType,
		Position:    position,
		Degrees:     0,
		Vertices:    vertices,
	}

	err := c.queue.Do(ctx, "create_terrain", func(ctx context.Context) error {
		if err := c.gw.CreateTerrain(ctx, terrain); err != nil {
			return fmt.Errorf("create terrain: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("terrain created", "type", terrain.TerrainType, "vertices", len(vertices))
	c.RefreshTerrain()
	c.Reset()
	return nil
}

// UpdateWaypoints sends the drawn waypoints. No-op unless in DrawWaypoints.
func (c *Controller) UpdateWaypoints(ctx context.Context) error {
	c.mu.Lock()
	s, ok := c.state.(DrawWaypoints)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	w := s.Waypoints.Clone()
	return c.queue.Do(ctx, "update_waypoints", func(ctx context.Context) error {
		if err := c.gw.DispatchWaypoints(ctx, w); err != nil {
			return fmt.Errorf("update %s waypoints: %w", w.Faction, err)
		}
		return nil
	})
}

// Reset returns to Default without saving anything.
func (c *Controller) Reset() {
	c.setState(Default{})
}

// Wait blocks until every gateway call queued so far has finished.
func (c *Controller) Wait(ctx context.Context) error {
	err := c.queue.Do(ctx, "barrier", func(context.Context) error { return nil })
	if errors.Is(err, dispatcher.ErrClosed) {
		return nil
	}
	return err
}

// State returns the current UI state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Terrain returns a copy of the loaded terrain.
func (c *Controller) Terrain() []core.Terrain {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTerrain(c.terrain)
}

// View returns an immutable snapshot of the editor.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe returns a stream of views published after every transition.
func (c *Controller) Subscribe(size int) (channel.Receiver[View], func()) {
	return c.views.Subscribe(size)
}

// Close runs the gateway calls still queued, then ends every subscription.
func (c *Controller) Close() {
	c.queue.Close()
	c.views.Close()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) viewLocked() View {
	return View{
		State:   c.state,
		Terrain: cloneTerrain(c.terrain),
		Pending: c.queue.Len(),
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views.Publish(c.viewLocked())
}

func cloneTerrain(terrain []core.Terrain) []core.Terrain {
	out := make([]core.Terrain, len(terrain))
	for i, t := range terrain {
		out[i] = t.Clone()
	}
	return out
}
