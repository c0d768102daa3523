// Package tiles cuts Mapbox Vector Tiles from the layers of the current stack.
//
// Tiles are generated on request from whatever the stack holds, so a tile
// always matches the current selection. Features are stored in web mercator
// and converted back to WGS84 before clipping, as orb's mvt expects.
package tiles

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-wxmap/internal/render"
)

// MaxZoom is the deepest zoom tiles are cut for.
const MaxZoom = 14

// ErrZoom is returned for tiles beyond MaxZoom.
var ErrZoom = fmt.Errorf("zoom exceeds %d", MaxZoom)

// ErrTile is returned for coordinates outside the zoom level's grid.
var ErrTile = errors.New("tile outside grid")

// Layer is one source layer of a vector tile.
type Layer struct {
	Name   string
	Source *render.Layer
	// Properties overrides the feature's own properties when set.
	Properties func(f *render.Feature) geojson.Properties
}

// Parse validates z/x/y and returns the tile.
func Parse(z, x, y int) (maptile.Tile, error) {
	if z < 0 || z > MaxZoom {
		return maptile.Tile{}, ErrZoom
	}
	n := 1 << uint(z)
	if x < 0 || y < 0 || x >= n || y >= n {
		return maptile.Tile{}, fmt.Errorf("%w: %d/%d/%d", ErrTile, z, x, y)
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}

// Encode returns the gzipped MVT for t, or nil when no layer has a feature in it.
// Layers that are not ready are skipped.
func Encode(t maptile.Tile, layers ...Layer) ([]byte, error) {
	bound := t.Bound()

	var out mvt.Layers
	for _, l := range layers {
		if l.Source == nil || !l.Source.Ready() {
			continue
		}
		fc := collect(l, bound)
		if len(fc.Features) == 0 {
			continue
		}

		layer := mvt.NewLayer(l.Name, fc)
		if eps := simplifyEpsilon(t.Z); eps > 0 {
			layer.Simplify(simplify.DouglasPeucker(eps))
		}
		layer.Clip(bound)
		layer.ProjectToTile(t)
		layer.RemoveEmpty(0.5, 0.5)
		if len(layer.Features) > 0 {
			out = append(out, layer)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(out)
	if err != nil {
		return nil, fmt.Errorf("encoding tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

// collect gathers the features of l that touch bound, as WGS84 copies.
// mvt clips and projects in place, so the layer's own geometry is never handed over.
func collect(l Layer, bound orb.Bound) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range l.Source.Features() {
		if f.Geometry == nil {
			continue
		}
		g := project.Geometry(orb.Clone(f.Geometry), project.Mercator.ToWGS84)
		if !intersects(g, bound) {
			continue
		}

		props := f.Properties
		if l.Properties != nil {
			props = l.Properties(f)
		}
		gf := geojson.NewFeature(g)
		for k, v := range props {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc
}

// intersects checks geometry against a tile more closely than the bounding boxes.
func intersects(g orb.Geometry, tile orb.Bound) bool {
	if !g.Bound().Intersects(tile) {
		return false
	}

	switch g := g.(type) {
	case orb.Point:
		return tile.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if tile.Contains(p) {
				return true
			}
		}
		return false
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				if tile.Contains(p) {
					return true
				}
			}
		}
		corners := []orb.Point{tile.Min, {tile.Max[0], tile.Min[1]}, tile.Max, {tile.Min[0], tile.Max[1]}, tile.Center()}
		for _, p := range corners {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		// a sliver can cross the tile with no vertex inside and no corner covered
		for _, ring := range g {
			if ringCrosses(ring, tile) {
				return true
			}
		}
		return false
	case orb.MultiPolygon:
		for _, poly := range g {
			if intersects(poly, tile) {
				return true
			}
		}
		return false
	default:
		// lines: a bounding box overlap is close enough
		return true
	}
}

// ringCrosses reports whether any edge of ring crosses an edge of tile.
func ringCrosses(ring orb.Ring, tile orb.Bound) bool {
	edges := [4][2]orb.Point{
		{tile.Min, {tile.Max[0], tile.Min[1]}},
		{{tile.Max[0], tile.Min[1]}, tile.Max},
		{tile.Max, {tile.Min[0], tile.Max[1]}},
		{{tile.Min[0], tile.Max[1]}, tile.Min},
	}
	for i := 1; i < len(ring); i++ {
		for _, e := range edges {
			if segmentsCross(ring[i-1], ring[i], e[0], e[1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orient(p, q, r orb.Point) float64 {
	return (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
}

// simplifyEpsilon returns the simplification tolerance in degrees for a zoom level.
// County outlines keep their shape at the state-wide zooms the map opens at.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 12:
		return 0
	case zoom >= 9:
		return 0.00005
	case zoom >= 6:
		return 0.0002
	default:
		return 0.001
	}
}
