// Package mapview owns the map's derived state and is the single entry point
// for the two user inputs: a variable selection and a pointer move.
package mapview

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-wxmap/internal/compose"
	"github.com/joeblew999/plat-wxmap/internal/render"
	"github.com/joeblew999/plat-wxmap/internal/tooltip"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// Event resources and actions published on the bus.
const (
	ResourceLayers   = "layers"
	ResourceStations = "stations"
	ResourceTooltip  = "tooltip"

	ActionRebuilt = "rebuilt"
	ActionLoaded  = "loaded"
	ActionReady   = "ready"
)

// Controller serializes selection changes and pointer moves.
type Controller struct {
	composer *compose.Composer
	tips     *tooltip.Controller
	vars     *variable.Registry
	bus      *EventBus
	log      *zap.SugaredLogger

	mu        sync.Mutex
	selection variable.ID
	build     *compose.Build
	tip       tooltip.Tooltip
}

// New creates a controller. Nothing is drawn until the first selection.
func New(composer *compose.Composer, tips *tooltip.Controller, vars *variable.Registry, bus *EventBus, log *zap.SugaredLogger) *Controller {
	if bus == nil {
		bus = NewEventBus()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		composer:  composer,
		tips:      tips,
		vars:      vars,
		bus:       bus,
		log:       log,
		selection: vars.First(),
		tip:       tooltip.HiddenTooltip(),
	}
}

// Bus returns the event bus the controller publishes on.
func (c *Controller) Bus() *EventBus {
	return c.bus
}

// Start builds the stack for the registry's first variable.
func (c *Controller) Start(ctx context.Context) (*compose.Build, error) {
	return c.SelectionChanged(ctx, string(c.vars.First()))
}

// SelectionChanged validates id and rebuilds the stack for it. Layer data
// keeps loading after ctx ends; the tooltip is re-attached once the new
// station layer is ready.
func (c *Controller) SelectionChanged(ctx context.Context, id string) (*compose.Build, error) {
	sel, err := c.vars.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("selecting variable: %w", err)
	}

	c.mu.Lock()
	c.tips.Detach()
	b := c.composer.Rebuild(context.WithoutCancel(ctx), sel)
	c.selection = sel
	c.build = b
	c.tip = tooltip.HiddenTooltip()
	c.mu.Unlock()

	c.log.Infow("selection changed", "variable", sel, "generation", b.Generation)
	c.bus.Publish(Event{Resource: ResourceLayers, Action: ActionRebuilt, ID: string(sel)})

	go c.awaitStations(b)
	go c.awaitLoaded(b)
	return b, nil
}

// awaitLoaded announces that every layer of a still-current build has resolved.
func (c *Controller) awaitLoaded(b *compose.Build) {
	<-b.Done()
	if c.Build() != b {
		return
	}
	c.bus.Publish(Event{Resource: ResourceLayers, Action: ActionLoaded, ID: string(b.Selection)})
}

func (c *Controller) awaitStations(b *compose.Build) {
	<-b.StationsResolved()

	c.mu.Lock()
	if c.build != b {
		c.mu.Unlock()
		return
	}
	if err := b.StationErr(); err != nil {
		c.mu.Unlock()
		c.log.Warnw("stations unavailable, tooltips disabled", "variable", b.Selection, "error", err)
		return
	}
	c.tips.Attach(b.Stations, b.County)
	c.mu.Unlock()

	c.bus.Publish(Event{Resource: ResourceStations, Action: ActionReady, ID: string(b.Selection)})
}

// PointerMoved derives and records the tooltip for ev.
func (c *Controller) PointerMoved(ev render.PointerEvent) tooltip.Tooltip {
	c.mu.Lock()
	t := c.tips.PointerMoved(ev)
	c.tip = t
	c.mu.Unlock()

	c.bus.Publish(Event{Resource: ResourceTooltip, Action: string(t.State)})
	return t
}

// Selection returns the current variable.
func (c *Controller) Selection() variable.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Build returns the latest build, nil before the first selection.
func (c *Controller) Build() *compose.Build {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.build
}

// Stack describes the layers currently on the surface.
func (c *Controller) Stack() []compose.LayerInfo {
	return c.composer.Stack()
}

// Tooltip returns the tooltip derived from the last pointer move.
func (c *Controller) Tooltip() tooltip.Tooltip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

// Registry returns the selectable variables.
func (c *Controller) Registry() *variable.Registry {
	return c.vars
}
