package geo

import (
	"math"

	"github.com/flanker-wargame/client/pkg/core"
)

// Transform rotates vs by degrees around the origin, then translates by t.
func Transform(vs []core.Vec2, t core.Vec2, degrees float64) []core.Vec2 {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)

	out := make([]core.Vec2, len(vs))
	for i, v := range vs {
		out[i] = core.Vec2{
			X: v.X*cos - v.Y*sin + t.X,
			Y: v.X*sin + v.Y*cos + t.Y,
		}
	}
	return out
}

// WorldVertices returns the world-space polygon of a terrain feature.
func WorldVertices(t core.Terrain) []core.Vec2 {
	return Transform(t.Vertices, t.Position, t.Degrees)
}

// ToLocal anchors a world-space polygon at its first vertex and returns the
// anchor and every vertex as an offset from it. The first offset is always
// the zero vector. An empty polygon yields a zero anchor and no vertices.
func ToLocal(poly []core.Vec2) (core.Vec2, []core.Vec2) {
	if len(poly) == 0 {
		return core.Vec2{}, nil
	}
	anchor := poly[0]
	local := make([]core.Vec2, len(poly))
	for i, v := range poly {
		local[i] = v.Sub(anchor)
	}
	return anchor, local
}
