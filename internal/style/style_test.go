package style

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wxmap/internal/station"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

func spokane() station.Feature {
	return station.Feature{
		Point: orb.Point{-13068908.2, 6040000},
		Attributes: station.Attributes{
			Name: "Spokane",
			Values: map[variable.ID]station.Value{
				"TEMP": {Kind: station.Present, Number: 72, Text: "72"},
				"RAIN": {Kind: station.Null},
				"HUM":  {Kind: station.Present, Number: 0.5, Text: "0.50"},
			},
		},
	}
}

func TestForStationLabel(t *testing.T) {
	tests := []struct {
		sel  variable.ID
		want string
	}{
		{sel: "TEMP", want: "72"},
		{sel: "WIND", want: ""},
		{sel: "RAIN", want: ""},
		{sel: "HUM", want: "0.50"},
	}
	for _, tt := range tests {
		t.Run(string(tt.sel), func(t *testing.T) {
			got := ForStation(spokane(), tt.sel)
			if got.Text.Label != tt.want {
				t.Fatalf("label=%q, want %q", got.Text.Label, tt.want)
			}
		})
	}
}

func TestForStationChromeIndependentOfData(t *testing.T) {
	withData := ForStation(spokane(), "TEMP")
	noData := ForStation(spokane(), "WIND")

	noData.Text.Label = withData.Text.Label
	if diff := cmp.Diff(withData, noData); diff != "" {
		t.Errorf("chrome differs between data and no-data styles (-data +nodata):\n%s", diff)
	}
	if withData.Fill != Transparent || withData.Stroke != White || withData.StrokeWidth != 1 {
		t.Errorf("unexpected chrome %+v", withData)
	}
	if *withData.Anchor != spokane().Point {
		t.Errorf("anchor=%v, want feature point", *withData.Anchor)
	}
}

func TestForStationDeterministic(t *testing.T) {
	a := spokane()
	b := spokane()
	b.Attributes.Name = "Other"
	b.Attributes.Values["WIND"] = station.Value{Kind: station.Present, Text: "3"}

	if ForStation(a, "TEMP").Text.Label != ForStation(b, "TEMP").Text.Label {
		t.Fatal("label depends on more than the selected attribute")
	}
}

func TestLayerStyles(t *testing.T) {
	if m := Mask(); m.Fill != White || m.Stroke != Transparent || m.StrokeWidth != 0 {
		t.Errorf("Mask()=%+v", m)
	}
	if s, c := StateBoundary(), CountyBoundary(); s.StrokeWidth <= c.StrokeWidth {
		t.Errorf("state stroke %v should be wider than county stroke %v", s.StrokeWidth, c.StrokeWidth)
	}
}
