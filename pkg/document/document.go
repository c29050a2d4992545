// Package document finds rendered Mermaid diagrams in exported note pages
// and manages the copy controls injected next to them.
package document

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/svgexport"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class names and attributes used by the note app's rendered markup.
const (
	ClassEmbedBlock  = "cm-embed-block"
	ClassLangMermaid = "cm-lang-mermaid"
	ClassMermaid     = "mermaid"
	ClassEditButton  = "edit-block-button"
	ClassCopyButton  = "mermaid-copy-btn"

	AttrTriggerID = "data-mermaid-copy-id"
	AttrIcon      = "data-icon"

	TriggerLabel = "Copy diagram"
)

// Kind tells where a diagram block was found.
type Kind int

const (
	KindEmbed Kind = iota
	KindPreview
	KindStandalone
)

func (k Kind) String() string {
	switch k {
	case KindEmbed:
		return "embed"
	case KindPreview:
		return "preview"
	default:
		return "standalone"
	}
}

// Block is one rendered diagram.
type Block struct {
	Index     int // 1-based, document order
	Kind      Kind
	ID        string // trigger id, empty when no control was injected
	Container *html.Node
	SVG       *html.Node
}

// Text returns the diagram's visible labels separated by single spaces.
func (b Block) Text() string {
	if b.SVG == nil {
		return ""
	}
	var words []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			words = append(words, strings.Fields(n.Data)...)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "style" || n.Data == "script") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(b.SVG)
	return strings.Join(words, " ")
}

// Document is a parsed page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML page or a standalone SVG file.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.NewWithError(errors.ExitCodeValidation, "failed to parse document", err)
	}
	return &Document{root: root}, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Blocks returns the rendered diagram blocks in document order. Blocks
// whose diagram has not been rendered yet are skipped.
func (d *Document) Blocks() []Block {
	var blocks []Block
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case isEmbedBlock(n):
				if svg := embedDiagram(n); svg != nil {
					blocks = append(blocks, Block{Kind: KindEmbed, ID: triggerID(n), Container: n, SVG: svg})
				}
				return
			case hasClass(n, ClassMermaid):
				if svg := svgexport.FindSVG(n); svg != nil {
					blocks = append(blocks, Block{Kind: KindPreview, Container: n, SVG: svg})
				}
				return
			case svgexport.IsSVGElement(n):
				if n.Parent != nil && n.Parent.DataAtom == atom.Body {
					blocks = append(blocks, Block{Kind: KindStandalone, Container: n, SVG: n})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)

	for i := range blocks {
		blocks[i].Index = i + 1
	}
	return blocks
}

// Find selects a block by its 1-based index or its trigger id.
func (d *Document) Find(selector string) (Block, error) {
	blocks := d.Blocks()
	if len(blocks) == 0 {
		return Block{}, errors.NoDiagramError("document")
	}

	selector = strings.TrimSpace(selector)
	if selector == "" {
		return blocks[0], nil
	}
	if n, err := strconv.Atoi(selector); err == nil {
		if n < 1 || n > len(blocks) {
			return Block{}, errors.NewWithSuggestion(errors.ExitCodeValidation,
				fmt.Sprintf("block %d out of range", n),
				fmt.Sprintf("The document has %d diagram block(s). Run 'mermaidcopy scan' to list them.", len(blocks)))
		}
		return blocks[n-1], nil
	}
	for _, b := range blocks {
		if b.ID != "" && b.ID == selector {
			return b, nil
		}
	}
	return Block{}, errors.NotFoundError(fmt.Sprintf("block %q", selector))
}

// InjectTriggers adds a copy control after the edit button of every rendered
// embed block that does not have one yet. It returns the number added.
func (d *Document) InjectTriggers() int {
	added := 0
	for _, b := range d.Blocks() {
		if b.Kind != KindEmbed || b.ID != "" || findClass(b.Container, ClassCopyButton) != nil {
			continue
		}
		edit := findClass(b.Container, ClassEditButton)
		if edit == nil || edit.Parent == nil {
			continue
		}
		edit.Parent.InsertBefore(newTrigger(uuid.New().String()), edit.NextSibling)
		added++
	}
	return added
}

// RemoveTriggers deletes every injected copy control.
func (d *Document) RemoveTriggers() int {
	var found []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if hasClass(n, ClassCopyButton) {
			found = append(found, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)

	for _, n := range found {
		n.Parent.RemoveChild(n)
	}
	return len(found)
}

// Render writes the document back out as HTML.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return errors.NewWithError(errors.ExitCodeFileOperation, "failed to render document", err)
	}
	return nil
}

func newTrigger(id string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "class", Val: ClassEditButton + " " + ClassCopyButton},
			{Key: "aria-label", Val: TriggerLabel},
			{Key: AttrIcon, Val: "copy"},
			{Key: AttrTriggerID, Val: id},
		},
	}
}

func isEmbedBlock(n *html.Node) bool {
	return hasClass(n, ClassEmbedBlock) && hasClass(n, ClassLangMermaid)
}

// embedDiagram returns the first svg below a .mermaid element of the block.
func embedDiagram(block *html.Node) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if hasClass(c, ClassMermaid) {
				found = svgexport.FindSVG(c)
				if found != nil {
					return
				}
			}
			walk(c)
		}
	}
	walk(block)
	return found
}

func triggerID(block *html.Node) string {
	if btn := findClass(block, ClassCopyButton); btn != nil {
		return getAttr(btn, AttrTriggerID)
	}
	return ""
}

// findClass returns the first descendant of n carrying class.
func findClass(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasClass(c, class) {
			return c
		}
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, f := range strings.Fields(getAttr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
