package player

import (
	"context"
	"fmt"
	"time"

	"github.com/flanker-wargame/client/pkg/core"
)

type actionKind string

const (
	actionMove    actionKind = "move"
	actionFire    actionKind = "fire"
	actionAssault actionKind = "assault"
)

// IsMoveActionValid reports whether MoveAction would dispatch.
func (c *Controller) IsMoveActionValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isValidLocked(actionMove)
}

// IsFireActionValid reports whether FireAction would dispatch.
// A suppressed unit can never fire.
func (c *Controller) IsFireActionValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isValidLocked(actionFire)
}

// IsAssaultActionValid reports whether AssaultAction would dispatch.
func (c *Controller) IsAssaultActionValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isValidLocked(actionAssault)
}

func (c *Controller) isValidLocked(kind actionKind) bool {
	if c.fetching || !c.viewState.HasInitiative {
		return false
	}

	var unit core.Squad
	switch s := c.state.(type) {
	case MoveMarked:
		if kind != actionMove {
			return false
		}
		unit = s.Unit
	case AttackMarked:
		if kind == actionMove {
			return false
		}
		unit = s.Unit
	default:
		return false
	}
	if !unit.IsFriendly {
		return false
	}

	switch kind {
	case actionFire:
		return unit.Status != core.StatusSuppressed
	default:
		return unit.Status == core.StatusActive
	}
}

// MoveAction sends the selected unit to the move marker. It does nothing
// unless IsMoveActionValid.
func (c *Controller) MoveAction(ctx context.Context) error {
	return c.dispatch(ctx, actionMove, func(ctx context.Context, s State) (core.UnitsViewState, error) {
		m := s.(MoveMarked)
		return c.gw.DispatchMove(ctx, m.Unit.UnitID, m.Marker)
	})
}

// FireAction fires on the marked target. It does nothing unless
// IsFireActionValid.
func (c *Controller) FireAction(ctx context.Context) error {
	return c.dispatch(ctx, actionFire, func(ctx context.Context, s State) (core.UnitsViewState, error) {
		a := s.(AttackMarked)
		return c.gw.DispatchFire(ctx, a.Unit.UnitID, a.Target.UnitID)
	})
}

// AssaultAction assaults the marked target. It does nothing unless
// IsAssaultActionValid.
func (c *Controller) AssaultAction(ctx context.Context) error {
	return c.dispatch(ctx, actionAssault, func(ctx context.Context, s State) (core.UnitsViewState, error) {
		a := s.(AttackMarked)
		return c.gw.DispatchAssault(ctx, a.Unit.UnitID, a.Target.UnitID)
	})
}

type sendFunc func(ctx context.Context, s State) (core.UnitsViewState, error)

// dispatch checks validity and claims the fetching flag in one critical
// section, so a second submission while the first is in flight is a no-op.
func (c *Controller) dispatch(ctx context.Context, kind actionKind, send sendFunc) error {
	c.mu.Lock()
	if !c.isValidLocked(kind) {
		c.mu.Unlock()
		return nil
	}
	state := c.state
	actor, _ := SelectedUnit(state)
	c.fetching = true
	c.mu.Unlock()
	c.publish()
	defer c.release()

	log := c.logger.With("action", string(kind), "unitId", actor.UnitID)
	log.Debug("dispatching action", "state", state.Name())

	start := time.Now()
	v, err := send(ctx, state)
	c.metrics.record(ctx, kind, time.Since(start), err)
	if err != nil {
		log.Warn("action failed", "error", err)
		return fmt.Errorf("%s action: %w", kind, err)
	}

	c.mu.Lock()
	c.viewState = v
	c.fetching = false
	c.reselectUnitLocked(actor.UnitID)
	next := c.state
	c.mu.Unlock()

	log.Info("action resolved", "next", next.Name(), "hasInitiative", v.HasInitiative)
	return nil
}

// reselectUnitLocked points the selection at the actor's fresh snapshot, or
// clears it if the actor is gone.
func (c *Controller) reselectUnitLocked(unitID int) {
	if unit, ok := c.viewState.FindSquad(unitID); ok {
		c.state = Selected{Unit: unit}
		return
	}
	c.state = Default{}
}
