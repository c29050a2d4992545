package cmd

import (
	"bytes"
	"os"

	"mermaidcopy/pkg/document"
	"mermaidcopy/pkg/errors"
)

// readDocument parses the document at path. "-" reads standard input.
func readDocument(path string) (*document.Document, error) {
	if path == "-" {
		return document.Parse(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError("failed to open document", err)
	}
	defer f.Close()
	return document.Parse(f)
}

// writeDocument renders doc back to path, keeping its permissions.
func writeDocument(path string, doc *document.Document) error {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return err
	}
	if path == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, buf.Bytes(), mode); err != nil {
		return errors.FileError("failed to write document", err)
	}
	return nil
}
