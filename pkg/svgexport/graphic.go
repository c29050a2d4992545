// Package svgexport turns a rendered diagram <svg> element into a standalone
// SVG document or a PNG image.
//
// Graphics are nodes of a parsed document tree (golang.org/x/net/html). The
// package never mutates the tree it is given: serialization works on a deep
// clone.
package svgexport

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const (
	// SVGNamespace is written as the xmlns of every serialized graphic.
	SVGNamespace   = "http://www.w3.org/2000/svg"
	XHTMLNamespace = "http://www.w3.org/1999/xhtml"
	XLinkNamespace = "http://www.w3.org/1999/xlink"

	MIMESVG = "image/svg+xml"
	MIMEPNG = "image/png"
)

// Graphic is a live <svg> element together with the layout that measures it.
type Graphic struct {
	node   *html.Node
	layout Layout
}

// NewGraphic wraps an <svg> element node. A nil layout selects GeometryLayout.
func NewGraphic(node *html.Node, layout Layout) (*Graphic, error) {
	if !IsSVGElement(node) {
		return nil, fmt.Errorf("svgexport: node is not an <svg> element")
	}
	if layout == nil {
		layout = GeometryLayout{}
	}
	return &Graphic{node: node, layout: layout}, nil
}

// ParseGraphic parses a document (HTML or standalone SVG) and returns its
// first <svg> element.
func ParseGraphic(r io.Reader, layout Layout) (*Graphic, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	node := FindSVG(doc)
	if node == nil {
		return nil, fmt.Errorf("svgexport: no <svg> element found")
	}
	return NewGraphic(node, layout)
}

// Node returns the wrapped element. Callers must treat it as read-only.
func (g *Graphic) Node() *html.Node {
	return g.node
}

// BBox measures the graphic with its layout.
func (g *Graphic) BBox() Box {
	return g.layout.BBox(g.node)
}

// Size returns the logical size: explicit absolute width/height attributes
// of the element, each falling back to the bounding box.
func (g *Graphic) Size() (width, height float64) {
	w, wok := ParseLength(attr(g.node, "width"))
	h, hok := ParseLength(attr(g.node, "height"))
	if wok && hok {
		return w, h
	}
	box := g.BBox()
	if !wok {
		w = box.Width
	}
	if !hok {
		h = box.Height
	}
	return w, h
}

// IsSVGElement reports whether n is an <svg> element.
func IsSVGElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == "svg"
}

// FindSVG returns the first <svg> element at or below n in document order.
func FindSVG(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if IsSVGElement(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindSVG(c); found != nil {
			return found
		}
	}
	return nil
}

// ParseLength parses an absolute SVG length: a non-negative number with an
// optional "px" unit. Percentages and font-relative units are rejected.
func ParseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// formatNumber renders a length the way the browser stringifies numbers:
// shortest representation, no exponent, no unit.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, namespace, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == namespace && a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, namespace, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == namespace && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Namespace: namespace, Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// cloneNode deep-copies n. The copy is detached from any parent.
func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
