package render

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Surface is the rendering engine capability the map core draws through.
type Surface interface {
	// Clear removes every layer.
	Clear()
	// Add appends a layer on top of the stack.
	Add(l *Layer)
	// Remove drops a layer, reporting whether it was present.
	Remove(l *Layer) bool
	// Layers returns the stack bottom to top.
	Layers() []*Layer
	// FeatureAt returns the topmost feature of l under the pixel.
	FeatureAt(px Pixel, l *Layer) (*Feature, bool)
}

// Pixel is a screen position relative to the top-left corner of the map.
type Pixel struct {
	X float64 `json:"x" doc:"Horizontal pixel offset from the left edge" example:"512"`
	Y float64 `json:"y" doc:"Vertical pixel offset from the top edge" example:"384"`
}

// PointerEvent is a pointer move over the map.
type PointerEvent struct {
	Pixel Pixel
	// Coordinate is the map coordinate (EPSG:3857) under the pointer.
	Coordinate orb.Point
}

// initialResolution is metres per pixel at zoom 0 for 256px web mercator tiles.
const initialResolution = 2 * 20037508.342789244 / 256

// View maps between pixels and map coordinates.
type View struct {
	// Center is in WGS84 lon/lat.
	Center orb.Point
	Zoom   float64
	Width  int
	Height int
}

// DefaultView is centered on Washington state.
func DefaultView() View {
	return View{Center: orb.Point{-120.5, 47.4}, Zoom: 7, Width: 1024, Height: 768}
}

// Resolution returns map units per pixel.
func (v View) Resolution() float64 {
	return initialResolution / math.Pow(2, v.Zoom)
}

// ToMap converts a pixel to a map coordinate.
func (v View) ToMap(px Pixel) orb.Point {
	c := project.WGS84.ToMercator(v.Center)
	res := v.Resolution()
	return orb.Point{
		c[0] + (px.X-float64(v.Width)/2)*res,
		c[1] - (px.Y-float64(v.Height)/2)*res,
	}
}

// ToPixel converts a map coordinate to a pixel.
func (v View) ToPixel(p orb.Point) Pixel {
	c := project.WGS84.ToMercator(v.Center)
	res := v.Resolution()
	return Pixel{
		X: (p[0]-c[0])/res + float64(v.Width)/2,
		Y: (c[1]-p[1])/res + float64(v.Height)/2,
	}
}

// Event builds the pointer event for a pixel.
func (v View) Event(px Pixel) PointerEvent {
	return PointerEvent{Pixel: px, Coordinate: v.ToMap(px)}
}
