// Package clipboard writes diagram payloads to the system clipboard.
//
// Text goes through atotto/clipboard. Images need a MIME-aware owner: on
// Linux/Wayland the binary re-executes itself as a detached clipboard server
// (see ServeClipboard) that answers paste requests for the image type, on
// X11 xclip is used.
package clipboard

import (
	"mermaidcopy/pkg/errors"
)

// Sink receives clipboard payloads. Writes may be rejected by the host.
type Sink interface {
	WriteText(text string) error
	WriteImage(mime string, data []byte) error
}

// ServeCommand is the hidden subcommand the detached clipboard owner runs.
const ServeCommand = "__clipboard-serve"

// Payload is handed to the clipboard owner over stdin.
type Payload struct {
	Formats map[string][]byte `json:"formats"`
}

type systemSink struct{}

// System returns the sink backed by the operating system clipboard.
func System() Sink {
	return systemSink{}
}

func (systemSink) WriteText(text string) error {
	if err := writeText(text); err != nil {
		return errors.ClipboardError(err)
	}
	return nil
}

func (systemSink) WriteImage(mime string, data []byte) error {
	if len(data) == 0 {
		return errors.ClipboardError(errEmptyPayload)
	}
	if err := writeImage(mime, data); err != nil {
		return errors.ClipboardError(err)
	}
	return nil
}
