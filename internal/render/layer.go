// Package render defines the render surface the map core draws through and
// an in-memory implementation of it.
//
// Layers are added to a surface before their data arrives; paint order is
// fixed by insertion order, and a layer fills in whenever its asset resolves.
package render

import (
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-wxmap/internal/station"
	"github.com/joeblew999/plat-wxmap/internal/style"
)

// Kind is the type of a render layer.
type Kind string

const (
	KindRaster   Kind = "raster"
	KindMask     Kind = "mask"
	KindBoundary Kind = "boundary"
	KindStations Kind = "stations"
)

// Feature is a drawable, hit-testable feature in map coordinates (EPSG:3857).
type Feature struct {
	Geometry   orb.Geometry
	Properties geojson.Properties
	// Station is set for features of a stations layer.
	Station *station.Feature
}

// StyleFunc styles a single feature.
type StyleFunc func(f *Feature) style.Style

// Layer is one entry of the paint stack.
type Layer struct {
	ID   string
	Kind Kind
	// Name is the asset the layer is loaded from.
	Name string
	// Style is used when StyleFunc is nil.
	Style     style.Style
	StyleFunc StyleFunc

	mu       sync.RWMutex
	ready    bool
	features []*Feature
	raster   image.Image
	extent   orb.Bound
}

// NewLayer creates an empty layer with a fresh ID.
func NewLayer(kind Kind, name string) *Layer {
	return &Layer{ID: uuid.NewString(), Kind: kind, Name: name}
}

// SetFeatures fills a vector layer and marks it ready.
func (l *Layer) SetFeatures(features []*Feature) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.features = features
	l.ready = true
}

// SetRaster fills a raster layer placed at extent (map coordinates).
func (l *Layer) SetRaster(img image.Image, extent orb.Bound) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raster = img
	l.extent = extent
	l.ready = true
}

// Ready reports whether the layer's data has arrived.
func (l *Layer) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// Features returns the layer's features in draw order.
func (l *Layer) Features() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Feature, len(l.features))
	copy(out, l.features)
	return out
}

// Raster returns the raster image and its extent, nil before it is loaded.
func (l *Layer) Raster() (image.Image, orb.Bound) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.raster, l.extent
}

// StyleFor returns the style of f within this layer.
func (l *Layer) StyleFor(f *Feature) style.Style {
	if l.StyleFunc != nil {
		return l.StyleFunc(f)
	}
	return l.Style
}
