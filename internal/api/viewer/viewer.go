// Package viewer contains the Datastar SSE handlers for the map viewer page.
package viewer

import (
	"context"
	"errors"
	"html/template"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wxmap/internal/compose"
	"github.com/joeblew999/plat-wxmap/internal/humastar"
	"github.com/joeblew999/plat-wxmap/internal/mapview"
	"github.com/joeblew999/plat-wxmap/internal/render"
	"github.com/joeblew999/plat-wxmap/internal/templates"
	"github.com/joeblew999/plat-wxmap/internal/tooltip"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// Handler serves the viewer's SSE endpoints.
type Handler struct {
	humastar.Handler
	view *mapview.Controller
	m    *render.Map
}

// NewHandler creates a viewer handler.
func NewHandler(view *mapview.Controller, m *render.Map, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		view:    view,
		m:       m,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/events", h.Events, huma.OperationTags("viewer"))
	huma.Get(api, "/api/v1/viewer/variables", h.Variables, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/select", h.Select, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/pointer", h.Pointer, huma.OperationTags("viewer"))
}

// Events streams map state changes until the client goes away.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		bus := h.view.Bus()
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		sse.Patch(h.renderLayers(h.view.Stack()), "#layer-list")
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				switch ev.Resource {
				case mapview.ResourceLayers, mapview.ResourceStations:
					sse.Patch(h.renderLayers(h.view.Stack()), "#layer-list")
					sse.DispatchCustomEvent("map-changed", map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"variable": ev.ID,
					})
				case mapview.ResourceTooltip:
					sse.Patch(h.renderTooltip(h.view.Tooltip()), "#tooltip")
				}
			}
		}
	}), nil
}

// Variables fills the variable <select>.
func (h *Handler) Variables(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.RenderSelect(Options(h.view.Registry(), h.view.Selection())), "#variable-select")
	}), nil
}

// Select rebuilds the map for the "variable" signal.
func (h *Handler) Select(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	id := signals.String("variable")

	return h.Stream(func(sse humastar.SSE) {
		if _, err := h.view.SelectionChanged(ctx, id); err != nil {
			if errors.Is(err, variable.ErrUnknown) {
				sse.Error("Unknown variable " + id)
				return
			}
			sse.Error(err.Error())
			return
		}
		sse.Patch(h.renderLayers(h.view.Stack()), "#layer-list")
		sse.Signals(map[string]any{"variable": string(h.view.Selection()), "tooltipVisible": false})
	}), nil
}

// Pointer derives the tooltip for the "x"/"y" pixel signals.
func (h *Handler) Pointer(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("x") || !signals.Has("y") {
		return nil, huma.Error400BadRequest("x and y signals are required")
	}
	px := render.Pixel{X: signals.Float("x"), Y: signals.Float("y")}

	return h.Stream(func(sse humastar.SSE) {
		t := h.view.PointerMoved(h.m.View().Event(px))
		sse.Patch(h.renderTooltip(t), "#tooltip")
		sse.Signals(map[string]any{
			"tooltipVisible": t.Visible,
			"tooltipX":       px.X,
			"tooltipY":       px.Y,
		})
	}), nil
}

// Options lists the registry as <select> options with sel marked.
func Options(vars *variable.Registry, sel variable.ID) []humastar.SelectOptionData {
	opts := make([]humastar.SelectOptionData, 0, vars.Len())
	for _, id := range vars.IDs() {
		opts = append(opts, humastar.SelectOptionData{
			Value:    string(id),
			Label:    vars.Label(id),
			Selected: id == sel,
		})
	}
	return opts
}

func (h *Handler) renderLayers(layers []compose.LayerInfo) string {
	items := make([]any, len(layers))
	for i := range layers {
		items[i] = layers[i]
	}
	return h.RenderList("layer-item", items, "No layers", "Pick a variable to draw the map")
}

type tooltipData struct {
	Visible bool
	State   tooltip.State
	Content template.HTML
}

func (h *Handler) renderTooltip(t tooltip.Tooltip) string {
	// t.HTML is produced by html/template in the tooltip package
	s, _ := h.Renderer.Render("tooltip", tooltipData{Visible: t.Visible, State: t.State, Content: template.HTML(t.HTML)})
	return s
}
