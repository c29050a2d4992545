package svgexport

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const svgDataURIPrefix = "data:" + MIMESVG + ";base64,"

// EncodeDataURI packs markup into a self-contained base64 data reference.
func EncodeDataURI(markup string) string {
	return svgDataURIPrefix + base64.StdEncoding.EncodeToString([]byte(markup))
}

// DecodeDataURI unpacks a reference produced by EncodeDataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("data URI has no payload")
	}
	params := strings.Split(header, ";")
	if params[0] != MIMESVG {
		return nil, fmt.Errorf("unsupported media type %q", params[0])
	}
	if params[len(params)-1] != "base64" {
		return nil, fmt.Errorf("data URI is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(payload)
}
