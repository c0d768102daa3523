// Package tooltip decides what the map tooltip shows for a pointer position.
package tooltip

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wxmap/internal/metrics"
	"github.com/joeblew999/plat-wxmap/internal/render"
	"github.com/joeblew999/plat-wxmap/internal/station"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

//go:embed templates/tooltip.html
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/tooltip.html"))

// State is what the tooltip currently describes.
type State string

const (
	Hidden   State = "hidden"
	Station  State = "station"
	Boundary State = "boundary"
)

// Positioning of the tooltip box relative to its anchor.
const Positioning = "bottom-left"

// Offset of the tooltip box from the pointer, in pixels.
var Offset = render.Pixel{X: 10, Y: 0}

// Config controls tooltip content.
type Config struct {
	// BoundaryNameField is the county attribute shown as "<name> Border".
	BoundaryNameField string
}

// DefaultConfig reads county names from JURISDICT_NM.
func DefaultConfig() Config {
	return Config{BoundaryNameField: "JURISDICT_NM"}
}

// Tooltip is the derived tooltip for one pointer position.
type Tooltip struct {
	State   State  `json:"state" enum:"hidden,station,boundary" doc:"What the tooltip describes"`
	Visible bool   `json:"visible" doc:"Whether the tooltip is shown"`
	HTML    string `json:"html,omitempty" doc:"Escaped tooltip content"`
	// Position is the map coordinate (EPSG:3857) the tooltip is anchored to.
	Position    orb.Point    `json:"position" doc:"Anchor in map coordinates (EPSG:3857)"`
	Offset      render.Pixel `json:"offset" doc:"Pixel offset from the anchor"`
	Positioning string       `json:"positioning" doc:"Box placement relative to the anchor"`
}

// HiddenTooltip is the tooltip shown when the pointer is over nothing.
func HiddenTooltip() Tooltip {
	return Tooltip{State: Hidden, Offset: Offset, Positioning: Positioning}
}

// Controller hit-tests pointer moves against the attached station and
// county layers. Until Attach is called every pointer move hides the tooltip.
type Controller struct {
	surface render.Surface
	vars    *variable.Registry
	cfg     Config

	mu       sync.RWMutex
	stations *render.Layer
	county   *render.Layer
}

// New creates a detached controller.
func New(surface render.Surface, vars *variable.Registry, cfg Config) *Controller {
	if cfg.BoundaryNameField == "" {
		cfg.BoundaryNameField = DefaultConfig().BoundaryNameField
	}
	return &Controller{surface: surface, vars: vars, cfg: cfg}
}

// Attach points the controller at the layers of the current stack.
func (c *Controller) Attach(stations, county *render.Layer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stations = stations
	c.county = county
}

// Detach stops hit-testing until the next Attach.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stations = nil
	c.county = nil
}

// Attached reports whether a station layer is attached.
func (c *Controller) Attached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stations != nil
}

// PointerMoved derives the tooltip for ev. Both layers are always queried;
// a station under the pointer wins over a county border.
func (c *Controller) PointerMoved(ev render.PointerEvent) Tooltip {
	c.mu.RLock()
	stations, county := c.stations, c.county
	c.mu.RUnlock()

	t := c.derive(ev, stations, county)
	metrics.PointerMoves.WithLabelValues(string(t.State)).Inc()
	return t
}

func (c *Controller) derive(ev render.PointerEvent, stations, county *render.Layer) Tooltip {
	stationHit, onStation := c.surface.FeatureAt(ev.Pixel, stations)
	countyHit, onCounty := c.surface.FeatureAt(ev.Pixel, county)

	var (
		state State
		html  string
		err   error
	)
	switch {
	case onStation:
		state = Station
		html, err = c.stationHTML(stationHit)
	case onCounty:
		state = Boundary
		html, err = c.boundaryHTML(countyHit)
	default:
		return HiddenTooltip()
	}
	if err != nil {
		return HiddenTooltip()
	}
	return Tooltip{
		State:       state,
		Visible:     true,
		HTML:        html,
		Position:    ev.Coordinate,
		Offset:      Offset,
		Positioning: Positioning,
	}
}

type line struct {
	ID    variable.ID
	Value string
}

func (c *Controller) stationHTML(f *render.Feature) (string, error) {
	data := struct {
		Name  string
		Lines []line
	}{}
	if f.Station != nil {
		attrs := f.Station.Attributes
		data.Name = attrs.Name
		for _, id := range c.vars.IDs() {
			v := attrs.Get(id)
			if v.Kind == station.Absent {
				continue
			}
			data.Lines = append(data.Lines, line{ID: id, Value: v.String()})
		}
	} else {
		data.Name = f.Properties.MustString("name", "")
	}
	return execute("station", data)
}

func (c *Controller) boundaryHTML(f *render.Feature) (string, error) {
	name := ""
	if v, ok := f.Properties[c.cfg.BoundaryNameField]; ok && v != nil {
		name = fmt.Sprint(v)
	}
	return execute("boundary", name)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s tooltip: %w", name, err)
	}
	return buf.String(), nil
}
