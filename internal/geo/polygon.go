package geo

import (
	"errors"
	"fmt"

	"github.com/flanker-wargame/client/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// MinVertices is the smallest vertex count that encloses an area.
const MinVertices = 3

// ErrTooFewVertices is returned when a ring has fewer than MinVertices points.
var ErrTooFewVertices = errors.New("polygon needs at least 3 vertices")

// Ring builds a closed simplefeatures ring from an open vertex list.
// Construction validates the ring unless opts say otherwise.
func Ring(poly []core.Vec2, opts ...geom.ConstructorOption) (geom.LineString, error) {
	flat := make([]float64, 0, (len(poly)+1)*2)
	for _, v := range poly {
		flat = append(flat, v.X, v.Y)
	}
	if len(poly) > 0 {
		flat = append(flat, poly[0].X, poly[0].Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY), opts...)
}

// Validate checks that poly is a simple polygon.
// Rings under MinVertices fail with ErrTooFewVertices.
func Validate(poly []core.Vec2) error {
	if len(poly) < MinVertices {
		return fmt.Errorf("%w: got %d", ErrTooFewVertices, len(poly))
	}
	ring, err := Ring(poly)
	if err != nil {
		return fmt.Errorf("invalid polygon: %w", err)
	}
	if _, err := geom.NewPolygon([]geom.LineString{ring}); err != nil {
		return fmt.Errorf("invalid polygon: %w", err)
	}
	return nil
}

// Polygon returns the world-space polygon of a terrain feature. Features the
// server already stored are taken as they are, so a self-intersecting one
// still has an area and can be picked.
func Polygon(t core.Terrain) (geom.Polygon, error) {
	world := WorldVertices(t)
	if len(world) < MinVertices {
		return geom.Polygon{}, fmt.Errorf("terrain %d: %w", t.TerrainID, ErrTooFewVertices)
	}
	ring, err := Ring(world, geom.DisableAllValidations)
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("terrain %d: %w", t.TerrainID, err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring}, geom.DisableAllValidations)
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("terrain %d: %w", t.TerrainID, err)
	}
	return poly, nil
}

// Contains reports whether p lies inside or on the boundary of t.
func Contains(t core.Terrain, p core.Vec2) (bool, error) {
	poly, err := Polygon(t)
	if err != nil {
		return false, err
	}
	pt, err := geom.XY{X: p.X, Y: p.Y}.AsPoint()
	if err != nil {
		return false, fmt.Errorf("point: %w", err)
	}
	return geom.Intersects(poly.AsGeometry(), pt.AsGeometry()), nil
}

// Area returns the world-space area of t, or 0 for a degenerate feature.
func Area(t core.Terrain) float64 {
	poly, err := Polygon(t)
	if err != nil {
		return 0
	}
	return poly.Area()
}

// TerrainAt returns the last feature containing p, matching draw order where
// later features are painted on top.
func TerrainAt(terrain []core.Terrain, p core.Vec2) (core.Terrain, bool) {
	for i := len(terrain) - 1; i >= 0; i-- {
		ok, err := Contains(terrain[i], p)
		if err == nil && ok {
			return terrain[i], true
		}
	}
	return core.Terrain{}, false
}
