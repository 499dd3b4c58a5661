// Package gatewaytest provides an in-memory gateway for controller tests.
package gatewaytest

import (
	"context"
	"slices"
	"sync"

	"github.com/flanker-wargame/client/internal/gateway"
	"github.com/flanker-wargame/client/pkg/core"
)

// Call records one gateway invocation.
type Call struct {
	Op   string
	Args []any
}

// Fake is a scriptable Gateway. Zero value is ready to use.
type Fake struct {
	mu sync.Mutex

	terrain   []core.Terrain
	nextID    int
	units     core.UnitsViewState
	result    *core.UnitsViewState
	logs      []core.ActionLog
	waypoints []core.Waypoints
	errs      map[string]error
	calls     []Call

	hold    chan struct{}
	entered chan string
}

var _ gateway.Gateway = (*Fake)(nil)

// New returns a fake seeded with terrain and units.
func New(terrain []core.Terrain, units core.UnitsViewState) *Fake {
	f := &Fake{}
	f.SetTerrain(terrain)
	f.SetUnits(units)
	return f
}

// SetTerrain replaces the stored terrain.
func (f *Fake) SetTerrain(terrain []core.Terrain) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terrain = cloneTerrain(terrain)
	for _, t := range terrain {
		f.nextID = max(f.nextID, t.TerrainID)
	}
}

// SetUnits replaces the unit state returned by FetchUnitState.
func (f *Fake) SetUnits(v core.UnitsViewState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units = v.Clone()
}

// SetActionResult sets the state returned by the next dispatches. Without
// it dispatches echo the current unit state.
func (f *Fake) SetActionResult(v core.UnitsViewState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := v.Clone()
	f.result = &c
}

// SetLogs replaces the action log.
func (f *Fake) SetLogs(logs []core.ActionLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = slices.Clone(logs)
}

// Fail makes op return err until cleared with a nil err.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Hold makes every later call block after it is recorded. The op name of each
// held call is sent on entered. release unblocks all of them.
func (f *Fake) Hold() (entered <-chan string, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold := make(chan struct{})
	f.hold = hold
	f.entered = make(chan string, 64)
	var once sync.Once
	return f.entered, func() {
		once.Do(func() {
			f.mu.Lock()
			if f.hold == hold {
				f.hold = nil
			}
			f.mu.Unlock()
			close(hold)
		})
	}
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the recorded calls to op.
func (f *Fake) CallsTo(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Terrain returns the stored terrain.
func (f *Fake) Terrain() []core.Terrain {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneTerrain(f.terrain)
}

// Waypoints returns every waypoint list received.
func (f *Fake) Waypoints() []core.Waypoints {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.waypoints)
}

// enter records the call, blocks while held and returns the scripted error.
func (f *Fake) enter(ctx context.Context, op string, args ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Args: args})
	hold, entered := f.hold, f.entered
	f.mu.Unlock()

	if hold != nil {
		entered <- op
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *Fake) FetchTerrain(ctx context.Context) ([]core.Terrain, error) {
	if err := f.enter(ctx, "FetchTerrain"); err != nil {
		return nil, err
	}
	return f.Terrain(), nil
}

func (f *Fake) UpdateTerrain(ctx context.Context, t core.Terrain) error {
	if err := f.enter(ctx, "UpdateTerrain", t.Clone()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.terrain {
		if f.terrain[i].TerrainID == t.TerrainID {
			f.terrain[i] = t.Clone()
		}
	}
	return nil
}

func (f *Fake) CreateTerrain(ctx context.Context, t core.Terrain) error {
	if err := f.enter(ctx, "CreateTerrain", t.Clone()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := t.Clone()
	created.TerrainID = f.nextID
	f.terrain = append(f.terrain, created)
	return nil
}

func (f *Fake) DeleteTerrain(ctx context.Context, terrainID int) error {
	if err := f.enter(ctx, "DeleteTerrain", terrainID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terrain = slices.DeleteFunc(f.terrain, func(t core.Terrain) bool {
		return t.TerrainID == terrainID
	})
	return nil
}

func (f *Fake) FetchUnitState(ctx context.Context) (core.UnitsViewState, error) {
	if err := f.enter(ctx, "FetchUnitState"); err != nil {
		return core.UnitsViewState{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units.Clone(), nil
}

func (f *Fake) DispatchMove(ctx context.Context, unitID int, to core.Vec2) (core.UnitsViewState, error) {
	if err := f.enter(ctx, "DispatchMove", unitID, to); err != nil {
		return core.UnitsViewState{}, err
	}
	return f.actionResult(), nil
}

func (f *Fake) DispatchFire(ctx context.Context, unitID, targetID int) (core.UnitsViewState, error) {
	if err := f.enter(ctx, "DispatchFire", unitID, targetID); err != nil {
		return core.UnitsViewState{}, err
	}
	return f.actionResult(), nil
}

func (f *Fake) DispatchAssault(ctx context.Context, unitID, targetID int) (core.UnitsViewState, error) {
	if err := f.enter(ctx, "DispatchAssault", unitID, targetID); err != nil {
		return core.UnitsViewState{}, err
	}
	return f.actionResult(), nil
}

func (f *Fake) DispatchWaypoints(ctx context.Context, w core.Waypoints) error {
	if err := f.enter(ctx, "DispatchWaypoints", w.Clone()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waypoints = append(f.waypoints, w.Clone())
	return nil
}

func (f *Fake) FetchLogs(ctx context.Context) ([]core.ActionLog, error) {
	if err := f.enter(ctx, "FetchLogs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.logs), nil
}

func (f *Fake) actionResult() core.UnitsViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result != nil {
		return f.result.Clone()
	}
	return f.units.Clone()
}

func cloneTerrain(terrain []core.Terrain) []core.Terrain {
	out := make([]core.Terrain, len(terrain))
	for i, t := range terrain {
		out[i] = t.Clone()
	}
	return out
}
