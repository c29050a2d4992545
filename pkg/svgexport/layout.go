package svgexport

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"golang.org/x/image/math/fixed"
	"golang.org/x/net/html"
)

// Box is a bounding box in user units.
type Box struct {
	X, Y          float64
	Width, Height float64
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Layout measures a mounted <svg> element. It stands in for the host's
// layout engine.
type Layout interface {
	BBox(svg *html.Node) Box
}

// FixedLayout reports the same box for every element. Hosts that already
// measured the element pass it this way.
type FixedLayout Box

func (f FixedLayout) BBox(*html.Node) Box {
	return Box(f)
}

// GeometryLayout derives the box from the element itself: the viewBox when
// one is declared, otherwise the extent of the drawn path geometry.
//
// Element transforms are not applied to path extents.
type GeometryLayout struct{}

func (GeometryLayout) BBox(svg *html.Node) Box {
	if box, ok := parseViewBox(attr(svg, "viewBox")); ok {
		return box
	}
	return pathExtent(svg)
}

func parseViewBox(s string) (Box, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return Box{}, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Box{}, false
		}
		v[i] = n
	}
	box := Box{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if box.Empty() {
		return Box{}, false
	}
	return box, true
}

func pathExtent(svg *html.Node) Box {
	probe := cloneNode(svg)
	// relative sizes on the root would make the parser reject the document
	removeAttr(probe, "width")
	removeAttr(probe, "height")

	var buf bytes.Buffer
	if err := html.Render(&buf, probe); err != nil {
		return Box{}
	}
	icon, err := oksvg.ReadIconStream(&buf, oksvg.IgnoreErrorMode)
	if err != nil || icon == nil {
		return Box{}
	}

	ext := newExtent()
	for _, p := range icon.SVGPaths {
		p.Path.AddTo(ext)
	}
	return ext.box()
}

// extent is a rasterx.Adder that accumulates the hull of every point,
// control points included.
type extent struct {
	minX, minY, maxX, maxY float64
	seen                   bool
}

func newExtent() *extent {
	return &extent{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
}

func (e *extent) add(p fixed.Point26_6) {
	x, y := float64(p.X)/64, float64(p.Y)/64
	e.minX = math.Min(e.minX, x)
	e.minY = math.Min(e.minY, y)
	e.maxX = math.Max(e.maxX, x)
	e.maxY = math.Max(e.maxY, y)
	e.seen = true
}

func (e *extent) Start(a fixed.Point26_6)            { e.add(a) }
func (e *extent) Line(b fixed.Point26_6)             { e.add(b) }
func (e *extent) QuadBezier(b, c fixed.Point26_6)    { e.add(b); e.add(c) }
func (e *extent) CubeBezier(b, c, d fixed.Point26_6) { e.add(b); e.add(c); e.add(d) }
func (e *extent) Stop(bool)                          {}

func (e *extent) box() Box {
	if !e.seen {
		return Box{}
	}
	return Box{X: e.minX, Y: e.minY, Width: e.maxX - e.minX, Height: e.maxY - e.minY}
}
