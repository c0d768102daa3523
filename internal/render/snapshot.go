package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/joeblew999/plat-wxmap/internal/style"
)

// Snapshot draws the ready layers of the stack, bottom to top.
func (m *Map) Snapshot() *image.RGBA {
	view := m.View()
	dst := image.NewRGBA(image.Rect(0, 0, view.Width, view.Height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	for _, l := range m.Layers() {
		if !l.Ready() {
			continue
		}
		if l.Kind == KindRaster {
			drawRaster(dst, view, l)
			continue
		}
		for _, f := range l.Features() {
			drawFeature(dst, view, f, l.StyleFor(f))
		}
	}
	return dst
}

// WritePNG encodes a snapshot as PNG.
func (m *Map) WritePNG(w io.Writer) error {
	if err := png.Encode(w, m.Snapshot()); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

func drawRaster(dst *image.RGBA, view View, l *Layer) {
	img, extent := l.Raster()
	if img == nil {
		return
	}
	tl := view.ToPixel(orb.Point{extent.Min[0], extent.Max[1]})
	br := view.ToPixel(orb.Point{extent.Max[0], extent.Min[1]})
	rect := image.Rect(int(math.Round(tl.X)), int(math.Round(tl.Y)), int(math.Round(br.X)), int(math.Round(br.Y)))
	draw.ApproxBiLinear.Scale(dst, rect, img, img.Bounds(), draw.Over, nil)
}

func drawFeature(dst *image.RGBA, view View, f *Feature, s style.Style) {
	switch g := f.Geometry.(type) {
	case orb.Point:
		if s.Text != nil && s.Text.Label != "" {
			drawLabel(dst, view.ToPixel(g), s.Text)
		}
	case orb.Polygon:
		drawPolygon(dst, view, g, s)
	case orb.MultiPolygon:
		for _, poly := range g {
			drawPolygon(dst, view, poly, s)
		}
	case orb.LineString:
		strokePath(dst, view, g, s)
	case orb.MultiLineString:
		for _, ls := range g {
			strokePath(dst, view, ls, s)
		}
	}
}

func drawPolygon(dst *image.RGBA, view View, poly orb.Polygon, s style.Style) {
	if fill, ok := parseColor(s.Fill); ok && len(poly) > 0 {
		bound := poly.Bound()
		tl := view.ToPixel(orb.Point{bound.Min[0], bound.Max[1]})
		br := view.ToPixel(orb.Point{bound.Max[0], bound.Min[1]})
		r := image.Rect(int(tl.X), int(tl.Y), int(br.X)+1, int(br.Y)+1).Intersect(dst.Bounds())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				p := view.ToMap(Pixel{X: float64(x) + 0.5, Y: float64(y) + 0.5})
				if planar.PolygonContains(poly, p) {
					dst.Set(x, y, fill)
				}
			}
		}
	}
	for _, ring := range poly {
		strokePath(dst, view, orb.LineString(ring), s)
	}
}

func strokePath(dst *image.RGBA, view View, ls orb.LineString, s style.Style) {
	c, ok := parseColor(s.Stroke)
	if !ok || s.StrokeWidth <= 0 {
		return
	}
	width := int(math.Max(1, math.Round(s.StrokeWidth)))
	for i := 1; i < len(ls); i++ {
		a, b := view.ToPixel(ls[i-1]), view.ToPixel(ls[i])
		drawLine(dst, a, b, width, c)
	}
}

// drawLine rasterizes a segment by stepping along its longer axis.
func drawLine(dst *image.RGBA, a, b Pixel, width int, c color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	half := width / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + dx*t))
		y := int(math.Round(a.Y + dy*t))
		for oy := -half; oy <= (width-1)-half; oy++ {
			for ox := -half; ox <= (width-1)-half; ox++ {
				if image.Pt(x+ox, y+oy).In(dst.Bounds()) {
					dst.Set(x+ox, y+oy, c)
				}
			}
		}
	}
}

// drawLabel centers text on the anchor with a one pixel outline.
func drawLabel(dst *image.RGBA, at Pixel, t *style.Text) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, t.Label)
	origin := fixed.Point26_6{
		X: fixed.I(int(at.X)) - width/2,
		Y: fixed.I(int(at.Y)) + fixed.I(face.Ascent/2),
	}

	if outline, ok := parseColor(t.Stroke); ok && t.StrokeWidth > 0 {
		d := &font.Drawer{Dst: dst, Src: image.NewUniform(outline), Face: face}
		for _, off := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {1, 1}, {-1, 1}, {1, -1}} {
			d.Dot = origin.Add(fixed.P(off[0], off[1]))
			d.DrawString(t.Label)
		}
	}
	fill, ok := parseColor(t.Fill)
	if !ok {
		fill = color.White
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fill), Face: face, Dot: origin}
	d.DrawString(t.Label)
}

// parseColor understands the named colors the styles use and #rrggbb.
func parseColor(s string) (color.Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", style.Transparent:
		return nil, false
	case style.White:
		return color.White, true
	case style.Black:
		return color.Black, true
	}
	if len(s) == 7 && s[0] == '#' {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
		}
	}
	return nil, false
}
