package document

import (
	"strings"
	"testing"

	"mermaidcopy/pkg/errors"
)

const livePreview = `<html><body><div class="workspace">
<div class="cm-preview-code-block cm-embed-block markdown-rendered cm-lang-mermaid">
  <div class="mermaid"><svg id="mermaid-1" width="100%" viewBox="0 0 100 50"><rect width="100" height="50"></rect></svg></div>
  <div class="edit-block-button" aria-label="Edit this block"></div>
</div>
<div class="cm-embed-block cm-lang-mermaid">
  <div class="mermaid">graph TD; A--&gt;B</div>
  <div class="edit-block-button"></div>
</div>
<div class="markdown-preview-view">
  <pre class="mermaid"><svg id="mermaid-2" viewBox="0 0 10 10"></svg></pre>
</div>
<div class="cm-embed-block cm-lang-mermaid">
  <div class="mermaid"><svg id="mermaid-3" viewBox="0 0 20 20"></svg></div>
</div>
</div></body></html>`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	return doc
}

func render(t *testing.T, doc *Document) string {
	t.Helper()
	var sb strings.Builder
	if err := doc.Render(&sb); err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	return sb.String()
}

func svgID(b Block) string {
	return getAttr(b.SVG, "id")
}

func TestBlocks(t *testing.T) {
	doc := mustParse(t, livePreview)

	blocks := doc.Blocks()

	want := []struct {
		kind Kind
		id   string
	}{
		{KindEmbed, "mermaid-1"},
		{KindPreview, "mermaid-2"},
		{KindEmbed, "mermaid-3"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("Blocks() returned %d blocks, want %d", len(blocks), len(want))
	}
	for i, w := range want {
		if blocks[i].Index != i+1 {
			t.Errorf("block %d Index = %d", i, blocks[i].Index)
		}
		if blocks[i].Kind != w.kind {
			t.Errorf("block %d Kind = %s, want %s", i, blocks[i].Kind, w.kind)
		}
		if got := svgID(blocks[i]); got != w.id {
			t.Errorf("block %d svg id = %q, want %q", i, got, w.id)
		}
	}
}

func TestBlocks_StandaloneSVG(t *testing.T) {
	doc := mustParse(t, `<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" id="solo" width="10" height="10"><g><svg id="nested"></svg></g></svg>`)

	blocks := doc.Blocks()

	if len(blocks) != 1 {
		t.Fatalf("Blocks() returned %d blocks, want 1", len(blocks))
	}
	if blocks[0].Kind != KindStandalone || svgID(blocks[0]) != "solo" {
		t.Errorf("block = %s %q, want standalone %q", blocks[0].Kind, svgID(blocks[0]), "solo")
	}
}

func TestInjectTriggers(t *testing.T) {
	doc := mustParse(t, livePreview)

	if n := doc.InjectTriggers(); n != 1 {
		t.Fatalf("InjectTriggers() = %d, want 1", n)
	}

	blocks := doc.Blocks()
	if blocks[0].ID == "" {
		t.Fatal("embed block has no trigger id after injection")
	}
	if blocks[1].ID != "" || blocks[2].ID != "" {
		t.Errorf("unexpected trigger ids: %q %q", blocks[1].ID, blocks[2].ID)
	}

	edit := findClass(blocks[0].Container, ClassEditButton)
	btn := edit.NextSibling
	if !hasClass(btn, ClassCopyButton) || !hasClass(btn, ClassEditButton) {
		t.Fatalf("copy control not placed right after the edit button: %+v", btn)
	}
	if getAttr(btn, "aria-label") != TriggerLabel {
		t.Errorf("aria-label = %q, want %q", getAttr(btn, "aria-label"), TriggerLabel)
	}

	out := render(t, doc)
	if strings.Count(out, ClassCopyButton) != 1 {
		t.Errorf("rendered document has %d controls, want 1", strings.Count(out, ClassCopyButton))
	}
}

func TestInjectTriggers_Idempotent(t *testing.T) {
	doc := mustParse(t, livePreview)
	doc.InjectTriggers()
	first := render(t, doc)

	if n := doc.InjectTriggers(); n != 0 {
		t.Errorf("second InjectTriggers() = %d, want 0", n)
	}
	if second := render(t, doc); second != first {
		t.Error("second injection changed the document")
	}

	// Re-parsing the rendered output keeps the control and its id.
	reparsed := mustParse(t, first)
	if n := reparsed.InjectTriggers(); n != 0 {
		t.Errorf("InjectTriggers() on re-parsed document = %d, want 0", n)
	}
	if reparsed.Blocks()[0].ID != doc.Blocks()[0].ID {
		t.Error("trigger id changed across render and parse")
	}
}

func TestRemoveTriggers(t *testing.T) {
	doc := mustParse(t, livePreview)
	original := render(t, doc)
	doc.InjectTriggers()

	if n := doc.RemoveTriggers(); n != 1 {
		t.Errorf("RemoveTriggers() = %d, want 1", n)
	}
	if n := doc.RemoveTriggers(); n != 0 {
		t.Errorf("second RemoveTriggers() = %d, want 0", n)
	}
	if out := render(t, doc); out != original {
		t.Errorf("document not restored:\n%s\nwant\n%s", out, original)
	}
}

func TestFind(t *testing.T) {
	doc := mustParse(t, livePreview)
	doc.InjectTriggers()
	id := doc.Blocks()[0].ID

	tests := []struct {
		selector string
		wantSVG  string
		wantCode errors.ExitCode
	}{
		{"", "mermaid-1", errors.ExitCodeSuccess},
		{"2", "mermaid-2", errors.ExitCodeSuccess},
		{id, "mermaid-1", errors.ExitCodeSuccess},
		{"0", "", errors.ExitCodeValidation},
		{"4", "", errors.ExitCodeValidation},
		{"not-an-id", "", errors.ExitCodeNoDiagram},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			b, err := doc.Find(tt.selector)
			if tt.wantCode != errors.ExitCodeSuccess {
				if !errors.IsExitCode(err, tt.wantCode) {
					t.Errorf("Find(%q) error = %v, want code %d", tt.selector, err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Find(%q) returned error: %v", tt.selector, err)
			}
			if svgID(b) != tt.wantSVG {
				t.Errorf("Find(%q) = %q, want %q", tt.selector, svgID(b), tt.wantSVG)
			}
		})
	}
}

func TestFind_EmptyDocument(t *testing.T) {
	doc := mustParse(t, `<p>nothing rendered</p>`)

	_, err := doc.Find("1")

	if !errors.IsExitCode(err, errors.ExitCodeNoDiagram) {
		t.Errorf("Find() error = %v, want no diagram", err)
	}
}

func TestBlockText(t *testing.T) {
	doc := mustParse(t, `<div class="mermaid"><svg><style>.node{fill:red}</style><g><text>Start</text></g><foreignObject><div><span>Do
		 work</span></div></foreignObject></svg></div>`)

	blocks := doc.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("Blocks() returned %d blocks, want 1", len(blocks))
	}
	if got := blocks[0].Text(); got != "Start Do work" {
		t.Errorf("Text() = %q, want %q", got, "Start Do work")
	}
}
