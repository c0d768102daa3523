package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wxmap/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/variables>; rel="variables"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/variables>; rel="variables"`,
	},
	"/api/v1/variables": {
		`</api/v1/selection>; rel="selection"`,
	},
	"/api/v1/selection": {
		`</api/v1/variables>; rel="collection"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/layers": {
		`</api/v1/selection>; rel="selection"`,
		`</api/v1/stations>; rel="stations"`,
		`</api/v1/map.png>; rel="preview"`,
	},
	"/api/v1/stations": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/assets": {
		`</assets/>; rel="files"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="query"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link
// headers, including the actions of bodies that implement humastar.Actor.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		if actor, ok := v.(humastar.Actor); ok {
			for _, a := range actor.Actions() {
				ctx.AppendHeader("Link", a.LinkHeader())
			}
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		return v, nil
	}
}
