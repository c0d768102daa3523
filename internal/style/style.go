// Package style derives render styles for map layers.
//
// Colors are CSS color strings so the descriptors can be handed to a browser
// renderer unchanged.
package style

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wxmap/internal/station"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

const (
	Transparent = "transparent"
	White       = "white"
	Black       = "black"

	LabelFont = "bold 11px Arial"
)

// Text describes a point label.
type Text struct {
	Label       string  `json:"label" doc:"Label text, empty when the selected variable has no data"`
	Font        string  `json:"font" doc:"CSS font"`
	Fill        string  `json:"fill" doc:"Text color (CSS)"`
	Stroke      string  `json:"stroke" doc:"Text outline color (CSS)"`
	StrokeWidth float64 `json:"strokeWidth" doc:"Text outline width"`
}

// Style is a visual style descriptor for a feature or a whole layer.
type Style struct {
	Fill        string     `json:"fill,omitempty" doc:"Fill color (CSS)"`
	Stroke      string     `json:"stroke,omitempty" doc:"Stroke color (CSS)"`
	StrokeWidth float64    `json:"strokeWidth" doc:"Stroke width in pixels"`
	Text        *Text      `json:"text,omitempty" doc:"Point label"`
	Anchor      *orb.Point `json:"anchor,omitempty" doc:"Label anchor in map coordinates"`
}

// ForStation styles a station marker for the selected variable. Only the
// label text depends on the data; a missing or null value blanks the label
// and leaves the marker chrome as is.
func ForStation(f station.Feature, sel variable.ID) Style {
	anchor := f.Point
	return Style{
		Fill:        Transparent,
		Stroke:      White,
		StrokeWidth: 1,
		Text: &Text{
			Label:       Label(f.Attributes.Get(sel)),
			Font:        LabelFont,
			Fill:        White,
			Stroke:      Black,
			StrokeWidth: 2,
		},
		Anchor: &anchor,
	}
}

// Label is the marker text for a value: verbatim for numbers, empty otherwise.
func Label(v station.Value) string {
	if v.Kind != station.Present {
		return ""
	}
	return v.Text
}

// Mask occludes the background raster outside the region of interest.
func Mask() Style {
	return Style{Fill: White, Stroke: Transparent, StrokeWidth: 0}
}

// StateBoundary outlines the state.
func StateBoundary() Style {
	return Style{Stroke: Black, StrokeWidth: 2}
}

// CountyBoundary outlines counties.
func CountyBoundary() Style {
	return Style{Stroke: Black, StrokeWidth: 0.5}
}
