package render

import (
	"math"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-wxmap/internal/style"
)

const (
	// PointHitRadius is how close, in pixels, a pointer must be to a station.
	PointHitRadius = 8
	// LineHitTolerance is added to half the stroke width when hitting outlines.
	LineHitTolerance = 2
)

// Map is an in-memory Surface with hit-testing and PNG snapshots.
type Map struct {
	mu     sync.RWMutex
	view   View
	layers []*Layer
}

// NewMap creates an empty map with the given view.
func NewMap(view View) *Map {
	return &Map{view: view}
}

// View returns the current view.
func (m *Map) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view
}

// SetView replaces the view.
func (m *Map) SetView(v View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = v
}

// Clear removes every layer.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers = nil
}

// Add appends l on top of the stack.
func (m *Map) Add(l *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers = append(m.layers, l)
}

// Remove drops l from the stack.
func (m *Map) Remove(l *Layer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, have := range m.layers {
		if have == l {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			return true
		}
	}
	return false
}

// Layers returns the stack bottom to top.
func (m *Map) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

func (m *Map) contains(l *Layer) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, have := range m.layers {
		if have == l {
			return true
		}
	}
	return false
}

// FeatureAt returns the topmost feature of l under px. Layers that are not
// on the map never hit.
func (m *Map) FeatureAt(px Pixel, l *Layer) (*Feature, bool) {
	if l == nil || !m.contains(l) {
		return nil, false
	}
	view := m.View()
	p := view.ToMap(px)
	res := view.Resolution()

	features := l.Features()
	for i := len(features) - 1; i >= 0; i-- {
		f := features[i]
		if hits(f.Geometry, l.StyleFor(f), p, res) {
			return f, true
		}
	}
	return nil, false
}

func visible(color string) bool {
	return color != "" && !strings.EqualFold(color, style.Transparent)
}

// hits reports whether p (map coordinates) touches g as drawn with s.
func hits(g orb.Geometry, s style.Style, p orb.Point, res float64) bool {
	lineTol := (s.StrokeWidth/2 + LineHitTolerance) * res

	switch g := g.(type) {
	case orb.Point:
		return planar.Distance(g, p) <= PointHitRadius*res
	case orb.MultiPoint:
		for _, pt := range g {
			if planar.Distance(pt, p) <= PointHitRadius*res {
				return true
			}
		}
	case orb.LineString:
		return visible(s.Stroke) && planar.DistanceFrom(g, p) <= lineTol
	case orb.MultiLineString:
		return visible(s.Stroke) && planar.DistanceFrom(g, p) <= lineTol
	case orb.Polygon:
		return polygonHit(g, s, p, lineTol)
	case orb.MultiPolygon:
		for _, poly := range g {
			if polygonHit(poly, s, p, lineTol) {
				return true
			}
		}
	}
	return false
}

// polygonHit hits the fill when it is painted and the outline when it is stroked.
func polygonHit(poly orb.Polygon, s style.Style, p orb.Point, lineTol float64) bool {
	if visible(s.Fill) && planar.PolygonContains(poly, p) {
		return true
	}
	if !visible(s.Stroke) || s.StrokeWidth <= 0 {
		return false
	}
	best := math.Inf(1)
	for _, ring := range poly {
		if d := planar.DistanceFrom(orb.LineString(ring), p); d < best {
			best = d
		}
	}
	return best <= lineTol
}
