package svgexport

import (
	"strings"

	"golang.org/x/net/html"
)

// Serialize returns g as a standalone SVG document.
//
// The result always declares the SVG namespace and carries numeric width and
// height attributes: when either is missing (or not an absolute length) both
// are taken from the bounding box. g itself is left untouched.
func Serialize(g *Graphic) string {
	clone := cloneNode(g.node)
	setAttr(clone, "", "xmlns", SVGNamespace)

	_, wok := ParseLength(attr(clone, "width"))
	_, hok := ParseLength(attr(clone, "height"))
	if !wok || !hok {
		box := g.BBox()
		setAttr(clone, "", "width", formatNumber(box.Width))
		setAttr(clone, "", "height", formatNumber(box.Height))
	}

	if usesXLink(clone) && !hasAttr(clone, "xmlns", "xlink") {
		setAttr(clone, "xmlns", "xlink", XLinkNamespace)
	}
	declareForeignContent(clone)

	var sb strings.Builder
	// rendering into a strings.Builder only fails on malformed void
	// elements, which the parser never produces
	_ = html.Render(&sb, clone)
	return sb.String()
}

func usesXLink(n *html.Node) bool {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Namespace == "xlink" {
				return true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if usesXLink(c) {
			return true
		}
	}
	return false
}

// declareForeignContent gives every HTML subtree embedded in the SVG (labels
// inside <foreignObject>) its own XHTML namespace declaration.
func declareForeignContent(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Namespace == "" && n.Namespace != "" && !hasAttr(c, "", "xmlns") {
			setAttr(c, "", "xmlns", XHTMLNamespace)
		}
		declareForeignContent(c)
	}
}
