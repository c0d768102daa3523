// Package compose assembles the map's layer stack for a variable selection.
//
// Every selection change rebuilds the whole stack: the surface is cleared,
// the seven layers are added in paint order, and each layer's asset is
// fetched concurrently. A layer fills in when its fetch resolves; a failed
// fetch removes the layer. Results that arrive after a newer rebuild has
// started are dropped.
package compose

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-wxmap/internal/asset"
	"github.com/joeblew999/plat-wxmap/internal/metrics"
	"github.com/joeblew999/plat-wxmap/internal/render"
	"github.com/joeblew999/plat-wxmap/internal/station"
	"github.com/joeblew999/plat-wxmap/internal/style"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// RasterExtent is the WGS84 footprint every <variable>_BACKGROUND.png is
// generated for. The asset pipeline and this box must agree; nothing checks it.
var RasterExtent = orb.Bound{
	Min: orb.Point{-124.848974, 45.543541},
	Max: orb.Point{-116.916071, 49.002494},
}

// ErrStale is reported for fetch results that belong to a superseded rebuild.
var ErrStale = errors.New("superseded by a newer rebuild")

// Config names the assets a stack is built from.
type Config struct {
	// State prefixes the boundary assets, e.g. "WA".
	State string
	// Masks are drawn in order above the raster.
	Masks []string
	// Stations is the station dataset.
	Stations string
	// Extent overrides RasterExtent when non-empty.
	Extent orb.Bound
}

// DefaultConfig returns the Washington deployment's assets.
func DefaultConfig() Config {
	return Config{
		State:    "WA",
		Masks:    []string{asset.OregonMask, asset.IdahoMask, asset.MontanaMask},
		Stations: asset.StationData,
		Extent:   RasterExtent,
	}
}

// Composer rebuilds the layer stack on a surface.
type Composer struct {
	surface render.Surface
	fetcher asset.Fetcher
	vars    *variable.Registry
	cfg     Config
	log     *zap.SugaredLogger

	gen atomic.Uint64
}

// New creates a composer. A nil logger discards output.
func New(surface render.Surface, fetcher asset.Fetcher, vars *variable.Registry, cfg Config, log *zap.SugaredLogger) *Composer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Extent.IsEmpty() {
		cfg.Extent = RasterExtent
	}
	return &Composer{surface: surface, fetcher: fetcher, vars: vars, cfg: cfg, log: log}
}

// Registry returns the variables the composer tags stations with.
func (c *Composer) Registry() *variable.Registry {
	return c.vars
}

// Surface returns the surface the composer draws on.
func (c *Composer) Surface() render.Surface {
	return c.surface
}

// Generation returns the generation of the latest rebuild.
func (c *Composer) Generation() uint64 {
	return c.gen.Load()
}

// Rebuild clears the surface and starts building the stack for sel. It
// returns once every layer is on the surface; data arrives asynchronously.
// Fetches are bound to ctx.
func (c *Composer) Rebuild(ctx context.Context, sel variable.ID) *Build {
	b := &Build{
		Selection:  sel,
		Generation: c.gen.Add(1),
		done:       make(chan struct{}),
		stationsCh: make(chan struct{}),
	}
	metrics.Rebuilds.WithLabelValues(string(sel)).Inc()
	c.log.Debugw("rebuilding layer stack", "variable", sel, "generation", b.Generation)

	c.surface.Clear()

	b.Raster = render.NewLayer(render.KindRaster, sel.BackgroundName())
	for _, name := range c.cfg.Masks {
		l := render.NewLayer(render.KindMask, name)
		l.Style = style.Mask()
		b.Masks = append(b.Masks, l)
	}
	b.State = render.NewLayer(render.KindBoundary, asset.StateBoundary(c.cfg.State))
	b.State.Style = style.StateBoundary()
	b.County = render.NewLayer(render.KindBoundary, asset.CountyBoundaries(c.cfg.State))
	b.County.Style = style.CountyBoundary()
	b.Stations = render.NewLayer(render.KindStations, c.cfg.Stations)
	b.Stations.StyleFunc = stationStyle(sel)

	for _, l := range b.Layers() {
		c.surface.Add(l)
	}

	var g errgroup.Group
	g.Go(func() error {
		c.load(ctx, b, b.Raster, c.rasterLoader(b.Raster))
		return nil
	})
	for _, l := range append(append([]*render.Layer{}, b.Masks...), b.State, b.County) {
		g.Go(func() error {
			c.load(ctx, b, l, vectorLoader(l))
			return nil
		})
	}
	g.Go(func() error {
		err := c.load(ctx, b, b.Stations, c.stationLoader(b))
		b.resolveStations(err)
		return nil
	})
	go func() {
		g.Wait()
		close(b.done)
	}()

	return b
}

// loader decodes fetched bytes and returns the step that fills the layer.
type loader func(data []byte) (apply func(), err error)

// load fetches one layer's asset. Failures remove the layer from the
// surface; stale results are dropped without touching the surface.
func (c *Composer) load(ctx context.Context, b *Build, l *render.Layer, decode loader) error {
	start := time.Now()
	data, err := c.fetcher.Fetch(ctx, l.Name)
	var apply func()
	if err == nil {
		apply, err = decode(data)
	}
	metrics.AssetFetchLatency.WithLabelValues(l.Name).Observe(time.Since(start).Seconds())

	if b.Generation != c.gen.Load() {
		metrics.AssetFetches.WithLabelValues(l.Name, "stale").Inc()
		metrics.StaleResults.Inc()
		c.log.Debugw("dropping stale layer result", "layer", l.Name, "generation", b.Generation)
		return ErrStale
	}
	if err != nil {
		metrics.AssetFetches.WithLabelValues(l.Name, "error").Inc()
		c.log.Warnw("layer unavailable", "layer", l.Name, "error", err)
		c.surface.Remove(l)
		return err
	}

	apply()
	metrics.AssetFetches.WithLabelValues(l.Name, "ok").Inc()
	return nil
}

func (c *Composer) rasterLoader(l *render.Layer) loader {
	extent := project.Bound(c.cfg.Extent, project.WGS84.ToMercator)
	return func(data []byte) (func(), error) {
		img, err := asset.DecodeRaster(l.Name, data)
		if err != nil {
			return nil, err
		}
		return func() { l.SetRaster(img, extent) }, nil
	}
}

func vectorLoader(l *render.Layer) loader {
	return func(data []byte) (func(), error) {
		fc, err := asset.DecodeFeatureCollection(l.Name, data)
		if err != nil {
			return nil, err
		}
		features := projectCollection(fc)
		return func() { l.SetFeatures(features) }, nil
	}
}

func (c *Composer) stationLoader(b *Build) loader {
	return func(data []byte) (func(), error) {
		records, err := station.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		built, rep := station.Build(records, c.vars.IDs())
		metrics.StationRecords.WithLabelValues("built").Add(float64(rep.Built))
		metrics.StationRecords.WithLabelValues("unflagged").Add(float64(rep.Unflagged))
		metrics.StationRecords.WithLabelValues("malformed").Add(float64(rep.Malformed))
		if rep.Malformed > 0 {
			c.log.Debugw("skipped malformed station records", "count", rep.Malformed)
		}

		features := make([]*render.Feature, len(built))
		for i := range built {
			features[i] = &render.Feature{
				Geometry:   built[i].Point,
				Properties: built[i].Properties(),
				Station:    &built[i],
			}
		}
		return func() {
			b.Stations.SetFeatures(features)
			b.setStations(built)
		}, nil
	}
}

// projectCollection converts GeoJSON features to map coordinates.
func projectCollection(fc *geojson.FeatureCollection) []*render.Feature {
	features := make([]*render.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		features = append(features, &render.Feature{
			Geometry:   project.Geometry(f.Geometry, project.WGS84.ToMercator),
			Properties: f.Properties,
		})
	}
	return features
}

// stationStyle binds the selection into the station layer's style function.
func stationStyle(sel variable.ID) render.StyleFunc {
	return func(f *render.Feature) style.Style {
		if f.Station == nil {
			return style.Style{}
		}
		return style.ForStation(*f.Station, sel)
	}
}

// Build is one rebuild of the layer stack.
type Build struct {
	Selection  variable.ID
	Generation uint64

	Raster   *render.Layer
	Masks    []*render.Layer
	State    *render.Layer
	County   *render.Layer
	Stations *render.Layer

	done       chan struct{}
	stationsCh chan struct{}

	mu          sync.RWMutex
	stationErr  error
	stationList []station.Feature
}

// Layers returns the build's layers in paint order, bottom to top.
func (b *Build) Layers() []*render.Layer {
	layers := []*render.Layer{b.Raster}
	layers = append(layers, b.Masks...)
	return append(layers, b.State, b.County, b.Stations)
}

// Done is closed once every fetch of the build has resolved.
func (b *Build) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every fetch has resolved or ctx ends.
func (b *Build) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StationsResolved is closed once the station fetch has resolved.
func (b *Build) StationsResolved() <-chan struct{} {
	return b.stationsCh
}

// StationErr is the station fetch outcome; only meaningful after StationsResolved.
func (b *Build) StationErr() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stationErr
}

// StationFeatures returns the built station features, nil until loaded.
func (b *Build) StationFeatures() []station.Feature {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stationList
}

func (b *Build) setStations(features []station.Feature) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stationList = features
}

func (b *Build) resolveStations(err error) {
	b.mu.Lock()
	b.stationErr = err
	b.mu.Unlock()
	close(b.stationsCh)
}
