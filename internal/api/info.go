package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir  string
	assetURL string
	dbOK     bool
}

func NewInfoHandler(dataDir, assetURL string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, assetURL: assetURL, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir,omitempty" doc:"Local asset directory"`
	AssetURL string   `json:"asset_url,omitempty" doc:"Remote asset base URL"`
	DB       bool     `json:"db" doc:"Whether the station database is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"choropleth", "stations", "tooltips", "mvt", "snapshot"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-wxmap",
		Version:  Version,
		DataDir:  h.dataDir,
		AssetURL: h.assetURL,
		DB:       h.dbOK,
		Features: features,
	}}, nil
}
