package tooltip

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-wxmap/internal/render"
	"github.com/joeblew999/plat-wxmap/internal/station"
	"github.com/joeblew999/plat-wxmap/internal/style"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

type fixture struct {
	view     render.View
	surface  *render.Map
	stations *render.Layer
	county   *render.Layer
	ctrl     *Controller
}

func stationAt(v render.View, px render.Pixel, attrs station.Attributes) *render.Feature {
	pt := v.ToMap(px)
	return &render.Feature{Geometry: pt, Station: &station.Feature{Point: pt, Attributes: attrs}}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vars, err := variable.New("TEMP", "WIND", "RAIN")
	if err != nil {
		t.Fatal(err)
	}
	v := render.DefaultView()
	m := render.NewMap(v)

	county := render.NewLayer(render.KindBoundary, "WA_County_Boundaries.geojson")
	county.Style = style.CountyBoundary()
	a := v.ToMap(render.Pixel{X: 300, Y: 200})
	b := v.ToMap(render.Pixel{X: 700, Y: 600})
	county.SetFeatures([]*render.Feature{{
		Geometry:   orb.Polygon{orb.Ring{{a[0], a[1]}, {b[0], a[1]}, {b[0], b[1]}, {a[0], b[1]}, {a[0], a[1]}}},
		Properties: geojson.Properties{"JURISDICT_NM": "Spokane"},
	}})

	stations := render.NewLayer(render.KindStations, "station_data.json")
	stations.SetFeatures([]*render.Feature{
		stationAt(v, render.Pixel{X: 500, Y: 400}, station.Attributes{
			Name: "Spokane",
			Values: map[variable.ID]station.Value{
				"TEMP": {Kind: station.Present, Number: 72, Text: "72"},
				"RAIN": {Kind: station.Null},
			},
		}),
		stationAt(v, render.Pixel{X: 300, Y: 400}, station.Attributes{
			Name:   "Border Station",
			Values: map[variable.ID]station.Value{"WIND": {Kind: station.Present, Number: 5, Text: "5"}},
		}),
	})

	m.Add(county)
	m.Add(stations)

	return &fixture{view: v, surface: m, stations: stations, county: county, ctrl: New(m, vars, DefaultConfig())}
}

func TestPointerMovedDetached(t *testing.T) {
	fx := newFixture(t)
	got := fx.ctrl.PointerMoved(fx.view.Event(render.Pixel{X: 500, Y: 400}))
	if diff := cmp.Diff(HiddenTooltip(), got); diff != "" {
		t.Errorf("detached controller should hide (-want +got):\n%s", diff)
	}
	if fx.ctrl.Attached() {
		t.Error("Attached() before Attach")
	}
}

func TestPointerMoved(t *testing.T) {
	fx := newFixture(t)
	fx.ctrl.Attach(fx.stations, fx.county)

	tests := []struct {
		name  string
		px    render.Pixel
		state State
		html  string
	}{
		{
			name:  "station lists defined values in registry order",
			px:    render.Pixel{X: 500, Y: 400},
			state: Station,
			html:  "<b>Spokane</b><br>TEMP: 72<br>RAIN: null<br>",
		},
		{
			name:  "station wins over county border",
			px:    render.Pixel{X: 300, Y: 400},
			state: Station,
			html:  "<b>Border Station</b><br>WIND: 5<br>",
		},
		{
			name:  "county border",
			px:    render.Pixel{X: 700, Y: 300},
			state: Boundary,
			html:  "Spokane Border",
		},
		{
			name:  "county interior is not a border",
			px:    render.Pixel{X: 600, Y: 300},
			state: Hidden,
		},
		{
			name:  "outside everything",
			px:    render.Pixel{X: 50, Y: 50},
			state: Hidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := fx.view.Event(tt.px)
			got := fx.ctrl.PointerMoved(ev)

			want := HiddenTooltip()
			if tt.state != Hidden {
				want = Tooltip{
					State:       tt.state,
					Visible:     true,
					HTML:        tt.html,
					Position:    ev.Coordinate,
					Offset:      render.Pixel{X: 10, Y: 0},
					Positioning: "bottom-left",
				}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("PointerMoved(%v) mismatch (-want +got):\n%s", tt.px, diff)
			}
		})
	}
}

func TestPointerMovedEscapesContent(t *testing.T) {
	fx := newFixture(t)
	fx.stations.SetFeatures([]*render.Feature{
		stationAt(fx.view, render.Pixel{X: 500, Y: 400}, station.Attributes{Name: "<i>Pullman</i>"}),
	})
	fx.ctrl.Attach(fx.stations, fx.county)

	got := fx.ctrl.PointerMoved(fx.view.Event(render.Pixel{X: 500, Y: 400}))
	if want := "<b>&lt;i&gt;Pullman&lt;/i&gt;</b><br>"; got.HTML != want {
		t.Errorf("HTML=%q, want %q", got.HTML, want)
	}
}

func TestPointerMovedAfterDetach(t *testing.T) {
	fx := newFixture(t)
	fx.ctrl.Attach(fx.stations, fx.county)
	fx.ctrl.Detach()

	if got := fx.ctrl.PointerMoved(fx.view.Event(render.Pixel{X: 500, Y: 400})); got.Visible {
		t.Errorf("tooltip visible after Detach: %+v", got)
	}
}

func TestPointerMovedRemovedLayer(t *testing.T) {
	fx := newFixture(t)
	fx.ctrl.Attach(fx.stations, fx.county)
	fx.surface.Remove(fx.county)

	if got := fx.ctrl.PointerMoved(fx.view.Event(render.Pixel{X: 700, Y: 300})); got.State != Hidden {
		t.Errorf("state=%s over a layer no longer on the map", got.State)
	}
}
