package compose

import "github.com/joeblew999/plat-wxmap/internal/render"

// LayerInfo describes one layer of a stack.
type LayerInfo struct {
	ID       string      `json:"id" doc:"Layer ID"`
	Kind     render.Kind `json:"kind" doc:"Layer kind" enum:"raster,mask,boundary,stations"`
	Name     string      `json:"name" doc:"Asset the layer is loaded from"`
	Ready    bool        `json:"ready" doc:"Whether the layer's data has arrived"`
	Features int         `json:"features" doc:"Number of vector features"`
}

// Describe lists layers in the order given.
func Describe(layers []*render.Layer) []LayerInfo {
	out := make([]LayerInfo, 0, len(layers))
	for _, l := range layers {
		out = append(out, LayerInfo{
			ID:       l.ID,
			Kind:     l.Kind,
			Name:     l.Name,
			Ready:    l.Ready(),
			Features: len(l.Features()),
		})
	}
	return out
}

// Stack describes the layers currently on the composer's surface.
func (c *Composer) Stack() []LayerInfo {
	return Describe(c.surface.Layers())
}
