package station

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joeblew999/plat-wxmap/internal/variable"
)

func decode(t *testing.T, doc string) []Record {
	t.Helper()
	records, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return records
}

func TestBuildSpokane(t *testing.T) {
	records := decode(t, `[{"STATION_NAME":"Spokane","COUNTY_ID":"32","LAT":"47.6","LNG":"-117.4","LABEL_FLAG":1,"TEMP":72,"WIND":"calm"}]`)

	features, rep := Build(records, []variable.ID{"TEMP", "WIND"})
	if len(features) != 1 {
		t.Fatalf("got %d features, want 1", len(features))
	}
	if rep.Built != 1 || rep.Unflagged != 0 || rep.Malformed != 0 {
		t.Fatalf("report=%+v", rep)
	}

	f := features[0]
	want := Attributes{
		Name:     "Spokane",
		CountyID: "32",
		Values: map[variable.ID]Value{
			"TEMP": {Kind: Present, Number: 72, Text: "72"},
		},
	}
	if diff := cmp.Diff(want, f.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	if f.Attributes.Get("WIND").Defined() {
		t.Errorf("WIND should be absent, got %+v", f.Attributes.Get("WIND"))
	}
	if f.LonLat[0] != -117.4 || f.LonLat[1] != 47.6 {
		t.Errorf("LonLat=%v", f.LonLat)
	}
	// -117.4° in web mercator metres
	if math.Abs(f.Point[0]-(-13068908.2)) > 1 {
		t.Errorf("Point x=%f, want about -13068908.2", f.Point[0])
	}
}

func TestBuildLabelFlag(t *testing.T) {
	tests := []struct {
		name string
		flag string
		want int
	}{
		{name: "one", flag: `1`, want: 1},
		{name: "one point zero", flag: `1.0`, want: 1},
		{name: "zero", flag: `0`, want: 0},
		{name: "string one", flag: `"1"`, want: 0},
		{name: "null", flag: `null`, want: 0},
		{name: "true", flag: `true`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := decode(t, `[{"STATION_NAME":"X","LAT":47,"LNG":-120,"TEMP":50,"LABEL_FLAG":`+tt.flag+`}]`)
			features, _ := Build(records, []variable.ID{"TEMP"})
			if len(features) != tt.want {
				t.Fatalf("LABEL_FLAG=%s: got %d features, want %d", tt.flag, len(features), tt.want)
			}
		})
	}
}

func TestBuildUnflaggedIgnoresOtherFields(t *testing.T) {
	records := decode(t, `[{"STATION_NAME":"Yakima","LAT":"46.6","LNG":"-120.5","LABEL_FLAG":0,"TEMP":80}]`)
	features, rep := Build(records, []variable.ID{"TEMP"})
	if len(features) != 0 {
		t.Fatalf("got %d features, want 0", len(features))
	}
	if rep.Unflagged != 1 {
		t.Fatalf("Unflagged=%d, want 1", rep.Unflagged)
	}
}

func TestBuildMalformedCoordinates(t *testing.T) {
	records := decode(t, `[
		{"STATION_NAME":"A","LAT":"n/a","LNG":"-120","LABEL_FLAG":1},
		{"STATION_NAME":"B","LAT":"47","LABEL_FLAG":1},
		{"STATION_NAME":"C","LAT":"NaN","LNG":"-120","LABEL_FLAG":1},
		{"STATION_NAME":"D","LAT":" 47.1 ","LNG":-120.2,"LABEL_FLAG":1}
	]`)
	features, rep := Build(records, nil)
	if rep.Malformed != 3 || rep.Built != 1 {
		t.Fatalf("report=%+v, want 3 malformed 1 built", rep)
	}
	if features[0].Attributes.Name != "D" {
		t.Fatalf("built %q, want D", features[0].Attributes.Name)
	}
}

func TestBuildAttributeCoercion(t *testing.T) {
	records := decode(t, `[{"STATION_NAME":"X","COUNTY_ID":7,"LAT":47,"LNG":-120,"LABEL_FLAG":1,
		"NUM":3.25,"NUMSTR":" 12.5","NULL":null,"NA":"N/A","EMPTY":"","BOOL":true,"OBJ":{"a":1}}]`)
	ids := []variable.ID{"NUM", "NUMSTR", "NULL", "NA", "EMPTY", "BOOL", "OBJ", "MISSING"}
	features, _ := Build(records, ids)

	got := map[variable.ID]Kind{}
	for _, id := range ids {
		got[id] = features[0].Attributes.Get(id).Kind
	}
	want := map[variable.ID]Kind{
		"NUM": Present, "NUMSTR": Present, "NULL": Null,
		"NA": Absent, "EMPTY": Absent, "BOOL": Absent, "OBJ": Absent, "MISSING": Absent,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	if v := features[0].Attributes.Get("NUMSTR"); v.Text != "12.5" || v.Number != 12.5 {
		t.Errorf("NUMSTR=%+v", v)
	}
	if features[0].Attributes.CountyID != "7" {
		t.Errorf("CountyID=%q, want 7", features[0].Attributes.CountyID)
	}
	if _, ok := features[0].Attributes.Values["NA"]; ok {
		t.Errorf("non-numeric value stored")
	}
}

func TestBuildNumberText(t *testing.T) {
	records := decode(t, `[{"STATION_NAME":"X","COUNTY_ID":"1","LAT":47,"LNG":-120,"LABEL_FLAG":1,
		"WHOLE":72.0,"EXP":1e2,"TRAIL":72.50,"NEG":-0.0,"TINY":1e-7,"HUGE":1e21,"STR":"72.0"}]`)
	ids := []variable.ID{"WHOLE", "EXP", "TRAIL", "NEG", "TINY", "HUGE", "STR"}
	features, _ := Build(records, ids)

	got := map[variable.ID]string{}
	for _, id := range ids {
		got[id] = features[0].Attributes.Get(id).Text
	}
	want := map[variable.ID]string{
		"WHOLE": "72", "EXP": "100", "TRAIL": "72.5", "NEG": "0",
		"TINY": "1e-7", "HUGE": "1e+21", "STR": "72.0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildKeepsRecordOrder(t *testing.T) {
	records := decode(t, `[
		{"STATION_NAME":"A","LAT":47,"LNG":-120,"LABEL_FLAG":1},
		{"STATION_NAME":"B","LAT":47,"LNG":-120,"LABEL_FLAG":0},
		{"STATION_NAME":"C","LAT":47,"LNG":-120,"LABEL_FLAG":1}
	]`)
	features, _ := Build(records, nil)
	var names []string
	for _, f := range features {
		names = append(names, f.Attributes.Name)
	}
	if diff := cmp.Diff([]string{"A", "C"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestProperties(t *testing.T) {
	f := Feature{Attributes: Attributes{
		Name: "Spokane", CountyID: "32",
		Values: map[variable.ID]Value{
			"TEMP": {Kind: Present, Number: 72, Text: "72"},
			"WIND": {Kind: Null},
		},
	}}
	props := f.Properties()
	if props["TEMP"] != 72.0 {
		t.Errorf("TEMP=%v", props["TEMP"])
	}
	if v, ok := props["WIND"]; !ok || v != nil {
		t.Errorf("WIND=%v, present=%v; want explicit null", v, ok)
	}
	if props["name"] != "Spokane" {
		t.Errorf("name=%v", props["name"])
	}
}

func TestDecodeRejectsNonArray(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"STATION_NAME":"X"}`)); err == nil {
		t.Fatal("expected error for object document")
	}
}

func TestClean(t *testing.T) {
	in := `[{"STATION_NAME":"O'Brien NaN","TEMP":NaN,"WIND":-Infinity,"RAIN":Infinity,"LABEL_FLAG":1}]`
	var out bytes.Buffer
	if err := Clean(strings.NewReader(in), &out); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	records := decode(t, out.String())
	rec := records[0]
	if rec["STATION_NAME"] != "OBrien NaN" {
		t.Errorf("STATION_NAME=%q", rec["STATION_NAME"])
	}
	for _, k := range []string{"TEMP", "WIND", "RAIN"} {
		if v, ok := rec[k]; !ok || v != nil {
			t.Errorf("%s=%v, want null", k, v)
		}
	}
}
