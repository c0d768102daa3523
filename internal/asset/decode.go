package asset

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/paulmach/orb/geojson"
)

// Names of the fixed assets.
const (
	OregonMask  = "oregon.geojson"
	IdahoMask   = "idaho.geojson"
	MontanaMask = "montana.geojson"
	StationData = "station_data.json"
)

// StateBoundary returns the state outline asset name, e.g. WA_State_Boundary.geojson.
func StateBoundary(state string) string {
	return state + "_State_Boundary.geojson"
}

// CountyBoundaries returns the county outline asset name, e.g. WA_County_Boundaries.geojson.
func CountyBoundaries(state string) string {
	return state + "_County_Boundaries.geojson"
}

// DecodeFeatureCollection parses a GeoJSON FeatureCollection.
func DecodeFeatureCollection(name string, data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return fc, nil
}

// DecodeRaster decodes a PNG background raster.
func DecodeRaster(name string, data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return img, nil
}
