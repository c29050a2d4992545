//go:build !linux

package clipboard

import (
	"fmt"
	"runtime"

	atotto "github.com/atotto/clipboard"
)

var errEmptyPayload = fmt.Errorf("empty clipboard payload")

func writeText(text string) error {
	return atotto.WriteAll(text)
}

func writeImage(mime string, data []byte) error {
	return fmt.Errorf("copying %s images is not supported on %s", mime, runtime.GOOS)
}

// ServeClipboard is not used on non-Linux platforms.
func ServeClipboard(p Payload) error {
	return nil
}

// ReportServeError is not used on non-Linux platforms.
func ReportServeError(err error) {}
