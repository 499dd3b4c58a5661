// Package player implements the turn controller: unit selection, move and
// attack targeting, validity gating and action submission.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flanker-wargame/client/internal/channel"
	"github.com/flanker-wargame/client/internal/gateway"
	"github.com/flanker-wargame/client/pkg/core"
	"golang.org/x/sync/errgroup"
)

// ErrBusy is returned by Initialize while another request is in flight.
var ErrBusy = errors.New("request already in flight")

// View is an immutable snapshot of the controller for rendering.
type View struct {
	State State
	// Units has IsSelected set on the current actor.
	Units    core.UnitsViewState
	Terrain  []core.Terrain
	Fetching bool

	MoveValid    bool
	FireValid    bool
	AssaultValid bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// Controller is the turn-action state machine for the local player.
// The mutex is never held across a gateway call.
type Controller struct {
	gw      gateway.Gateway
	logger  *slog.Logger
	metrics *metrics
	views   *channel.Broadcaster[View]

	mu        sync.Mutex
	viewState core.UnitsViewState
	terrain   []core.Terrain
	fetching  bool
	state     State
}

// New creates a controller in the Default state with an empty view.
func New(gw gateway.Gateway, opts ...Option) (*Controller, error) {
	c := &Controller{
		gw:        gw,
		logger:    slog.Default(),
		views:     channel.NewBroadcaster[View](),
		viewState: core.NewUnitsViewState(),
		state:     Default{},
	}
	for _, opt := range opts {
		opt(c)
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	c.metrics = m

	return c, nil
}

// Initialize fetches terrain and unit state concurrently and resets the
// selection. On failure nothing but the fetching flag changes.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.fetching {
		c.mu.Unlock()
		return ErrBusy
	}
	c.fetching = true
	c.mu.Unlock()
	c.publish()
	defer c.release()

	var (
		terrain []core.Terrain
		units   core.UnitsViewState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		terrain, err = c.gw.FetchTerrain(gctx)
		if err != nil {
			return fmt.Errorf("fetch terrain: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		units, err = c.gw.FetchUnitState(gctx)
		if err != nil {
			return fmt.Errorf("fetch unit state: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("initialize failed", "error", err)
		return err
	}

	c.mu.Lock()
	c.terrain = terrain
	c.viewState = units
	c.state = Default{}
	c.mu.Unlock()

	c.logger.Info("player initialized",
		"squads", len(units.Squads),
		"terrain", len(terrain),
		"hasInitiative", units.HasInitiative)
	return nil
}

// SelectUnit picks a unit by id. Friendly units always become the actor.
// An enemy becomes the actor only from Default; otherwise it is targeted.
// Unknown ids are ignored.
func (c *Controller) SelectUnit(unitID int) {
	c.mu.Lock()
	unit, ok := c.viewState.FindSquad(unitID)
	if !ok {
		c.mu.Unlock()
		return
	}

	switch {
	case unit.IsFriendly:
		c.state = Selected{Unit: unit}
	case isDefault(c.state):
		c.state = Selected{Unit: unit}
	default:
		c.setAttackMarkerLocked(unit)
	}
	c.mu.Unlock()
	c.publish()
}

// SetMoveMarker marks a destination for the selected friendly unit.
// Passability is not checked; the server decides.
func (c *Controller) SetMoveMarker(at core.Vec2) {
	c.mu.Lock()
	if !c.viewState.HasInitiative {
		c.mu.Unlock()
		return
	}
	unit, ok := SelectedUnit(c.state)
	if !ok || !unit.IsFriendly {
		c.mu.Unlock()
		return
	}
	c.state = MoveMarked{Unit: unit, Marker: at}
	c.mu.Unlock()
	c.publish()
}

// SetAttackMarker targets a hostile unit with the selected unit.
func (c *Controller) SetAttackMarker(target core.Squad) {
	c.mu.Lock()
	changed := c.setAttackMarkerLocked(target)
	c.mu.Unlock()
	if changed {
		c.publish()
	}
}

func (c *Controller) setAttackMarkerLocked(target core.Squad) bool {
	if !c.viewState.HasInitiative || target.IsFriendly {
		return false
	}
	unit, ok := SelectedUnit(c.state)
	if !ok {
		return false
	}
	c.state = AttackMarked{Unit: unit, Target: target}
	return true
}

// CloseSelection returns to Default.
func (c *Controller) CloseSelection() {
	c.mu.Lock()
	c.state = Default{}
	c.mu.Unlock()
	c.publish()
}

// State returns the current UI state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsFetching reports whether a request is in flight.
func (c *Controller) IsFetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetching
}

// UnitState returns a copy of the last server unit state.
func (c *Controller) UnitState() core.UnitsViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewState.Clone()
}

// Terrain returns the terrain fetched by Initialize.
func (c *Controller) Terrain() []core.Terrain {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTerrain(c.terrain)
}

// View returns an immutable snapshot of the controller.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	selected := 0
	if unit, ok := SelectedUnit(c.state); ok {
		selected = unit.UnitID
	}
	return View{
		State:        c.state,
		Units:        c.viewState.MarkSelected(selected),
		Terrain:      cloneTerrain(c.terrain),
		Fetching:     c.fetching,
		MoveValid:    c.isValidLocked(actionMove),
		FireValid:    c.isValidLocked(actionFire),
		AssaultValid: c.isValidLocked(actionAssault),
	}
}

// Subscribe returns a stream of views published after every transition.
// size bounds how far a reader may lag before it misses views.
func (c *Controller) Subscribe(size int) (channel.Receiver[View], func()) {
	return c.views.Subscribe(size)
}

// Close ends every subscription.
func (c *Controller) Close() {
	c.views.Close()
}

// RefreshLogs fetches the server action log. Controller state is untouched.
func (c *Controller) RefreshLogs(ctx context.Context) ([]core.ActionLog, error) {
	logs, err := c.gw.FetchLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	return logs, nil
}

// publish holds the lock while publishing so subscribers see views in
// transition order.
func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views.Publish(c.viewLocked())
}

// release clears the fetching flag. Safe to call when already clear.
func (c *Controller) release() {
	c.mu.Lock()
	c.fetching = false
	c.mu.Unlock()
	c.publish()
}

func isDefault(s State) bool {
	_, ok := s.(Default)
	return ok
}

func cloneTerrain(terrain []core.Terrain) []core.Terrain {
	out := make([]core.Terrain, len(terrain))
	for i, t := range terrain {
		out[i] = t.Clone()
	}
	return out
}
