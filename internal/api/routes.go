// Package api defines the Huma API routes and handlers.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-wxmap/internal/asset"
	"github.com/joeblew999/plat-wxmap/internal/compose"
	"github.com/joeblew999/plat-wxmap/internal/humastar"
	"github.com/joeblew999/plat-wxmap/internal/mapview"
	"github.com/joeblew999/plat-wxmap/internal/render"
	"github.com/joeblew999/plat-wxmap/internal/style"
	"github.com/joeblew999/plat-wxmap/internal/tiles"
	"github.com/joeblew999/plat-wxmap/internal/tooltip"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the dependencies of the API handlers.
type Services struct {
	View *mapview.Controller
	Map  *render.Map
	// DataDir is the local asset directory, empty when assets come from a URL.
	DataDir string
}

// Types

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

type VariableBody struct {
	ID    string `json:"id" doc:"Variable ID" example:"AIR_TEMP_F"`
	Label string `json:"label" doc:"Display label" example:"Air temperature (°F)"`
}

type VariablesBody struct {
	Variables []VariableBody `json:"variables" doc:"Selectable variables in display order"`
	Selected  string         `json:"selected" doc:"Currently selected variable"`
}

type SelectionBody struct {
	Variable   string `json:"variable" doc:"Selected variable" example:"AIR_TEMP_F"`
	Label      string `json:"label" doc:"Display label"`
	Generation uint64 `json:"generation" doc:"Rebuild generation of the current stack"`
}

// Actions offers the selection change and the stations for the current variable.
func (b SelectionBody) Actions() []humastar.Action {
	return []humastar.Action{
		{Rel: "edit", Href: "/api/v1/selection", Method: "PUT", Title: "Change variable"},
		{Rel: "stations", Href: "/api/v1/stations?variable=" + b.Variable, Method: "GET"},
	}
}

type SelectionInput struct {
	Body struct {
		Variable string `json:"variable" required:"true" doc:"Variable to show" example:"WIND_SPEED_MPH"`
	}
}

type StationsInput struct {
	Variable string `query:"variable" doc:"Variable to label stations with; defaults to the selection"`
}

type PointerInput struct {
	Body render.Pixel
}

type TileInput struct {
	Z int `path:"z" doc:"Zoom level" minimum:"0" maximum:"14"`
	X int `path:"x" doc:"Tile column" minimum:"0"`
	Y int `path:"y" doc:"Tile row" minimum:"0"`
}

// BinaryOutput is a raw response body with its media type. Status must be set:
// huma writes it as is.
type BinaryOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	CacheControl    string `header:"Cache-Control"`
	Body            []byte
}

// APIHandler holds the REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterVariables registers the variable registry and selection routes.
func (h *APIHandler) RegisterVariables(api huma.API) {
	huma.Get(api, "/api/v1/variables", h.GetVariables, huma.OperationTags("variables"))
	huma.Get(api, "/api/v1/selection", h.GetSelection, huma.OperationTags("variables"))
	huma.Put(api, "/api/v1/selection", h.PutSelection, huma.OperationTags("variables"))
}

// RegisterMap registers the layer stack, station and pointer routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/stations", h.GetStations, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/pointer", h.PostPointer, huma.OperationTags("map"))
	huma.Register(api, huma.Operation{
		OperationID: "get-map-png",
		Method:      "GET",
		Path:        "/api/v1/map.png",
		Summary:     "Snapshot of the current map",
		Tags:        []string{"map"},
		Responses: map[string]*huma.Response{
			"200": {Description: "PNG image", Content: map[string]*huma.MediaType{"image/png": {}}},
		},
	}, h.GetMapPNG)
}

// RegisterTiles registers vector tile routes.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-tile",
		Method:      "GET",
		Path:        "/api/v1/tiles/{z}/{x}/{y}",
		Summary:     "Vector tile of the stations and county layers",
		Tags:        []string{"tiles"},
		Responses: map[string]*huma.Response{
			"200": {Description: "Gzipped Mapbox Vector Tile", Content: map[string]*huma.MediaType{"application/vnd.mapbox-vector-tile": {}}},
			"204": {Description: "No features in this tile"},
		},
	}, h.GetTile)
}

// RegisterAssets registers asset listing routes.
func (h *APIHandler) RegisterAssets(api huma.API) {
	huma.Get(api, "/api/v1/assets", h.GetAssets, huma.OperationTags("assets"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetVariables(ctx context.Context, input *struct{}) (*struct{ Body VariablesBody }, error) {
	vars := h.svc.View.Registry()
	body := VariablesBody{Variables: []VariableBody{}, Selected: string(h.svc.View.Selection())}
	for _, e := range vars.Entries() {
		body.Variables = append(body.Variables, VariableBody{ID: e.ID, Label: e.Label})
	}
	return &struct{ Body VariablesBody }{Body: body}, nil
}

func (h *APIHandler) selection() SelectionBody {
	sel := h.svc.View.Selection()
	body := SelectionBody{Variable: string(sel), Label: h.svc.View.Registry().Label(sel)}
	if b := h.svc.View.Build(); b != nil {
		body.Generation = b.Generation
	}
	return body
}

func (h *APIHandler) GetSelection(ctx context.Context, input *struct{}) (*struct{ Body SelectionBody }, error) {
	return &struct{ Body SelectionBody }{Body: h.selection()}, nil
}

func (h *APIHandler) PutSelection(ctx context.Context, input *SelectionInput) (*struct{ Body SelectionBody }, error) {
	if _, err := h.svc.View.SelectionChanged(ctx, input.Body.Variable); err != nil {
		if errors.Is(err, variable.ErrUnknown) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error500InternalServerError("selection failed", err)
	}
	return &struct{ Body SelectionBody }{Body: h.selection()}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body []compose.LayerInfo }, error) {
	return &struct{ Body []compose.LayerInfo }{Body: h.svc.View.Stack()}, nil
}

func (h *APIHandler) GetStations(ctx context.Context, input *StationsInput) (*BinaryOutput, error) {
	sel := h.svc.View.Selection()
	if input.Variable != "" {
		id, err := h.svc.View.Registry().Parse(input.Variable)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		sel = id
	}

	fc := geojson.NewFeatureCollection()
	if b := h.svc.View.Build(); b != nil {
		for _, f := range b.StationFeatures() {
			gf := geojson.NewFeature(f.LonLat)
			gf.Properties = f.Properties()
			gf.Properties["label"] = style.ForStation(f, sel).Text.Label
			fc.Append(gf)
		}
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding stations", err)
	}
	return &BinaryOutput{Status: http.StatusOK, ContentType: "application/geo+json", Body: data}, nil
}

func (h *APIHandler) PostPointer(ctx context.Context, input *PointerInput) (*struct{ Body tooltip.Tooltip }, error) {
	ev := h.svc.Map.View().Event(input.Body)
	return &struct{ Body tooltip.Tooltip }{Body: h.svc.View.PointerMoved(ev)}, nil
}

func (h *APIHandler) GetMapPNG(ctx context.Context, input *struct{}) (*BinaryOutput, error) {
	var buf bytes.Buffer
	if err := h.svc.Map.WritePNG(&buf); err != nil {
		return nil, huma.Error500InternalServerError("rendering map", err)
	}
	return &BinaryOutput{Status: http.StatusOK, ContentType: "image/png", CacheControl: "no-store", Body: buf.Bytes()}, nil
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*BinaryOutput, error) {
	t, err := tiles.Parse(input.Z, input.X, input.Y)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	b := h.svc.View.Build()
	if b == nil {
		return &BinaryOutput{Status: http.StatusNoContent}, nil
	}
	data, err := tiles.Encode(t,
		tiles.Layer{Name: "stations", Source: b.Stations, Properties: stationTileProperties(b.Selection)},
		tiles.Layer{Name: "counties", Source: b.County},
	)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("tile %d/%d/%d", input.Z, input.X, input.Y), err)
	}
	if data == nil {
		return &BinaryOutput{Status: http.StatusNoContent}, nil
	}
	return &BinaryOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		CacheControl:    "no-cache",
		Body:            data,
	}, nil
}

// stationTileProperties keeps the station's attributes and adds its label.
func stationTileProperties(sel variable.ID) func(f *render.Feature) geojson.Properties {
	return func(f *render.Feature) geojson.Properties {
		if f.Station == nil {
			return f.Properties
		}
		props := f.Station.Properties()
		props["label"] = style.ForStation(*f.Station, sel).Text.Label
		return props
	}
}

func (h *APIHandler) GetAssets(ctx context.Context, input *struct{}) (*struct{ Body []asset.File }, error) {
	if h.svc.DataDir == "" {
		return &struct{ Body []asset.File }{Body: []asset.File{}}, nil
	}
	files, err := asset.Catalog(h.svc.DataDir)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing assets", err)
	}
	return &struct{ Body []asset.File }{Body: files}, nil
}
