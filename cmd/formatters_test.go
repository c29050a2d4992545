package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mermaidcopy/pkg/config"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{120, "120"},
		{80.5, "80.5"},
		{1.23456, "1.23"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"Start → End", 8, "Start →…"},
		{"abc", 1, "a"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestOutputWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewOutputWriter("json")
	w.SetWriter(&buf)

	if !w.IsStructured() {
		t.Fatal("json writer should be structured")
	}
	if err := w.Write(BlockOutput{Index: 1, Kind: "embed", Width: 120, Height: 80}); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["kind"] != "embed" || got["width"] != float64(120) {
		t.Errorf("unexpected output %v", got)
	}

	if NewOutputWriter("xml").IsStructured() {
		t.Error("unknown formats should fall back to table")
	}
}

func TestReadWriteDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.html")
	page := `<html><body><div class="cm-embed-block cm-lang-mermaid"><div class="mermaid"><svg viewBox="0 0 10 10"></svg></div><div class="edit-block-button"></div></div></body></html>`
	if err := os.WriteFile(path, []byte(page), 0600); err != nil {
		t.Fatal(err)
	}

	doc, err := readDocument(path)
	if err != nil {
		t.Fatalf("readDocument() returned error: %v", err)
	}
	if n := doc.InjectTriggers(); n != 1 {
		t.Fatalf("InjectTriggers() = %d, want 1", n)
	}
	if err := writeDocument(path, doc); err != nil {
		t.Fatalf("writeDocument() returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "mermaid-copy-btn") {
		t.Errorf("trigger not written: %s", data)
	}

	if _, err := readDocument(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("readDocument() should fail for a missing file")
	}
}

func TestDescribeProfile(t *testing.T) {
	got := describeProfile(config.Profile{Name: "slides", Scale: 4})
	if got != "Copy format: inherit, Scale: 4" {
		t.Errorf("describeProfile() = %q", got)
	}
	got = describeProfile(config.Profile{Name: "markup", CopyFormat: config.FormatSVG})
	if got != "Copy format: svg, Scale: inherit" {
		t.Errorf("describeProfile() = %q", got)
	}
}
