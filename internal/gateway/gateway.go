// internal/gateway/gateway.go
package gateway

import (
	"context"

	"github.com/flanker-wargame/client/pkg/core"
)

// Gateway is the game data boundary the controllers talk to. Every call is
// scoped to the route of the session the implementation is bound to.
type Gateway interface {
	FetchTerrain(ctx context.Context) ([]core.Terrain, error)
	UpdateTerrain(ctx context.Context, t core.Terrain) error
	CreateTerrain(ctx context.Context, t core.Terrain) error
	DeleteTerrain(ctx context.Context, terrainID int) error

	FetchUnitState(ctx context.Context) (core.UnitsViewState, error)
	DispatchMove(ctx context.Context, unitID int, to core.Vec2) (core.UnitsViewState, error)
	DispatchFire(ctx context.Context, unitID, targetID int) (core.UnitsViewState, error)
	DispatchAssault(ctx context.Context, unitID, targetID int) (core.UnitsViewState, error)

	DispatchWaypoints(ctx context.Context, w core.Waypoints) error
	FetchLogs(ctx context.Context) ([]core.ActionLog, error)
}
