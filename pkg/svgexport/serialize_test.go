package svgexport

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustGraphic(t *testing.T, doc string, layout Layout) *Graphic {
	t.Helper()
	g, err := ParseGraphic(strings.NewReader(doc), layout)
	if err != nil {
		t.Fatalf("ParseGraphic() returned error: %v", err)
	}
	return g
}

// rootAttrs parses markup as XML, failing the test when it is not
// well-formed, and returns the attributes of the root element.
func rootAttrs(t *testing.T, markup string) map[string]string {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(markup))
	var attrs map[string]string
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("serialized markup is not well-formed XML: %v\n%s", err, markup)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if se.Name.Local != "svg" {
					t.Fatalf("root element = %q, want svg", se.Name.Local)
				}
				attrs = make(map[string]string)
				for _, a := range se.Attr {
					key := a.Name.Local
					if a.Name.Space == "xmlns" {
						key = "xmlns:" + key
					}
					attrs[key] = a.Value
				}
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if attrs == nil {
		t.Fatalf("no root element in %q", markup)
	}
	return attrs
}

func renderNode(t *testing.T, n *html.Node) string {
	t.Helper()
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		t.Fatalf("html.Render() returned error: %v", err)
	}
	return sb.String()
}

func TestSerialize_ExplicitSizePreserved(t *testing.T) {
	doc := `<div class="mermaid"><svg id="m1" width="120.5" height="80" viewBox="0 0 10 10" xmlns="urn:bogus"><rect width="10" height="10"></rect></svg></div>`
	g := mustGraphic(t, doc, FixedLayout{Width: 999, Height: 999})

	attrs := rootAttrs(t, Serialize(g))

	if attrs["xmlns"] != SVGNamespace {
		t.Errorf("xmlns = %q, want %q", attrs["xmlns"], SVGNamespace)
	}
	if attrs["width"] != "120.5" {
		t.Errorf("width = %q, want %q", attrs["width"], "120.5")
	}
	if attrs["height"] != "80" {
		t.Errorf("height = %q, want %q", attrs["height"], "80")
	}
	if attrs["viewBox"] != "0 0 10 10" {
		t.Errorf("viewBox = %q, want %q", attrs["viewBox"], "0 0 10 10")
	}
}

func TestSerialize_SizeFromBoundingBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
	}{
		{"no size attributes", `<svg viewBox="0 0 5 5"><circle r="2"></circle></svg>`},
		{"percentage width", `<svg width="100%" style="max-width: 120px;"><circle r="2"></circle></svg>`},
		{"width only", `<svg width="300"><circle r="2"></circle></svg>`},
		{"height only", `<svg height="50"><circle r="2"></circle></svg>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGraphic(t, tt.svg, FixedLayout{Width: 120, Height: 80})
			attrs := rootAttrs(t, Serialize(g))
			if attrs["width"] != "120" {
				t.Errorf("width = %q, want %q", attrs["width"], "120")
			}
			if attrs["height"] != "80" {
				t.Errorf("height = %q, want %q", attrs["height"], "80")
			}
			if attrs["xmlns"] != SVGNamespace {
				t.Errorf("xmlns = %q, want %q", attrs["xmlns"], SVGNamespace)
			}
		})
	}
}

func TestSerialize_BoundingBoxReadAtCallTime(t *testing.T) {
	layout := &mutableLayout{box: Box{Width: 10, Height: 20}}
	g := mustGraphic(t, `<svg><g></g></svg>`, layout)

	first := rootAttrs(t, Serialize(g))
	layout.box = Box{Width: 30.25, Height: 40}
	second := rootAttrs(t, Serialize(g))

	if first["width"] != "10" || first["height"] != "20" {
		t.Errorf("first = %sx%s, want 10x20", first["width"], first["height"])
	}
	if second["width"] != "30.25" || second["height"] != "40" {
		t.Errorf("second = %sx%s, want 30.25x40", second["width"], second["height"])
	}
}

type mutableLayout struct{ box Box }

func (m *mutableLayout) BBox(*html.Node) Box { return m.box }

func TestSerialize_DoesNotMutateInput(t *testing.T) {
	g := mustGraphic(t, `<p><svg viewBox="0 0 4 4"><path d="M0 0L4 4"></path></svg></p>`, nil)
	before := renderNode(t, g.Node())
	attrCount := len(g.Node().Attr)

	_ = Serialize(g)

	if after := renderNode(t, g.Node()); after != before {
		t.Errorf("input changed:\nbefore %s\nafter  %s", before, after)
	}
	if len(g.Node().Attr) != attrCount {
		t.Errorf("attribute count changed from %d to %d", attrCount, len(g.Node().Attr))
	}
	if g.Node().Parent == nil || g.Node().Parent.Data != "p" {
		t.Error("input node was detached from its parent")
	}
}

func TestSerialize_Idempotent(t *testing.T) {
	g := mustGraphic(t, `<svg viewBox="-8 -8 200 100"><g class="node"><rect width="20" height="10"></rect><text>A &amp; B</text></g></svg>`, nil)

	first := Serialize(g)
	second := Serialize(g)

	if first != second {
		t.Errorf("Serialize() not idempotent:\n%s\n%s", first, second)
	}
}

func TestSerialize_ForeignObjectLabels(t *testing.T) {
	doc := `<svg viewBox="0 0 100 40"><foreignObject width="100" height="40"><div class="label"><span>Start<br>here</span></div></foreignObject></svg>`
	g := mustGraphic(t, doc, nil)

	out := Serialize(g)
	rootAttrs(t, out) // well-formed

	if !strings.Contains(out, `<div class="label" xmlns="`+XHTMLNamespace+`">`) {
		t.Errorf("foreignObject content lacks XHTML namespace: %s", out)
	}
	if !strings.Contains(out, "<br/>") {
		t.Errorf("void element not self-closed: %s", out)
	}
}

func TestSerialize_XLinkDeclared(t *testing.T) {
	doc := `<svg viewBox="0 0 10 10"><defs><rect id="r" width="1" height="1"></rect></defs><use xlink:href="#r"></use></svg>`
	g := mustGraphic(t, doc, nil)

	attrs := rootAttrs(t, Serialize(g))
	if attrs["xmlns:xlink"] != XLinkNamespace {
		t.Errorf("xmlns:xlink = %q, want %q", attrs["xmlns:xlink"], XLinkNamespace)
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"120", 120, true},
		{" 80.5 ", 80.5, true},
		{"240px", 240, true},
		{"0", 0, true},
		{"100%", 0, false},
		{"12em", 0, false},
		{"", 0, false},
		{"-4", 0, false},
		{"auto", 0, false},
		{"Inf", 0, false},
		{"+Infpx", 0, false},
		{"NaN", 0, false},
		{"1e400", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLength(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseLength(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewGraphic_RejectsNonSVG(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div>hi</div>`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewGraphic(doc, nil); err == nil {
		t.Error("NewGraphic() should reject a non-svg node")
	}
	if _, err := ParseGraphic(strings.NewReader(`<p>no diagram</p>`), nil); err == nil {
		t.Error("ParseGraphic() should fail without an svg element")
	}
}
