// Package station turns raw station records into typed point features.
package station

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// Record field names in station_data.json.
const (
	FieldName      = "STATION_NAME"
	FieldCountyID  = "COUNTY_ID"
	FieldLat       = "LAT"
	FieldLng       = "LNG"
	FieldLabelFlag = "LABEL_FLAG"
)

// ErrMalformed marks a flagged record whose coordinates cannot be used.
var ErrMalformed = errors.New("malformed station record")

// Record is one raw entry of the station dataset.
type Record map[string]any

// Flagged reports whether the record is meant to be plotted (LABEL_FLAG is the number 1).
func (r Record) Flagged() bool {
	switch v := r[FieldLabelFlag].(type) {
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 1
	case float64:
		return v == 1
	case int:
		return v == 1
	}
	return false
}

// LonLat returns the record position in WGS84 degrees.
func (r Record) LonLat() (orb.Point, error) {
	lng, err := coordinate(r[FieldLng])
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: %s: %v", ErrMalformed, FieldLng, err)
	}
	lat, err := coordinate(r[FieldLat])
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: %s: %v", ErrMalformed, FieldLat, err)
	}
	return orb.Point{lng, lat}, nil
}

func coordinate(raw any) (float64, error) {
	var f float64
	var err error
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case float64:
		f = v
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unexpected %T", raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not finite")
	}
	return f, nil
}

func text(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Feature is a renderable station point.
type Feature struct {
	// Point is in EPSG:3857, the map's working projection.
	Point      orb.Point
	LonLat     orb.Point
	Attributes Attributes
}

// Properties returns the feature attributes as GeoJSON properties.
// Null variables are kept as JSON null, absent ones are left out.
func (f Feature) Properties() geojson.Properties {
	props := geojson.Properties{
		"name":      f.Attributes.Name,
		"county_id": f.Attributes.CountyID,
	}
	for id, v := range f.Attributes.Values {
		switch v.Kind {
		case Present:
			props[string(id)] = v.Number
		case Null:
			props[string(id)] = nil
		}
	}
	return props
}

// Report summarizes a Build.
type Report struct {
	Built     int
	Unflagged int
	Malformed int
}

// Decode parses the station JSON array. Numbers keep their source text.
func Decode(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding station records: %w", err)
	}
	return records, nil
}

// Build converts records into features, in record order.
// Only flagged records with usable coordinates produce a feature.
func Build(records []Record, ids []variable.ID) ([]Feature, Report) {
	var rep Report
	features := make([]Feature, 0, len(records))

	for _, rec := range records {
		if !rec.Flagged() {
			rep.Unflagged++
			continue
		}
		lonLat, err := rec.LonLat()
		if err != nil {
			rep.Malformed++
			continue
		}

		attrs := Attributes{
			Name:     text(rec[FieldName]),
			CountyID: text(rec[FieldCountyID]),
			Values:   make(map[variable.ID]Value, len(ids)),
		}
		for _, id := range ids {
			raw, ok := rec[string(id)]
			if v := coerce(raw, ok); v.Defined() {
				attrs.Values[id] = v
			}
		}

		features = append(features, Feature{
			Point:      project.WGS84.ToMercator(lonLat),
			LonLat:     lonLat,
			Attributes: attrs,
		})
		rep.Built++
	}
	return features, rep
}
