package svgexport

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/logger"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	// DefaultScale is the magnification used when the caller passes none.
	DefaultScale = 2.0

	// Surface limits of the offscreen canvas.
	MaxSurfaceSide = 16384
	MaxSurfaceArea = 268435456
)

// RasterImage is an encoded bitmap.
type RasterImage struct {
	Data   []byte
	Width  int
	Height int
	MIME   string
}

// Rasterize renders g to PNG at scale times its logical size. A non-positive
// or non-finite scale selects DefaultScale.
//
// Failures carry the exit codes ExitCodeImageDecode, ExitCodeDrawingContext
// and ExitCodeImageEncode. Nothing is retried.
func Rasterize(g *Graphic, scale float64) (*RasterImage, error) {
	markup := Serialize(g)
	width, height := g.Size()
	return RasterizeMarkup(markup, width, height, scale)
}

// RasterizeMarkup renders standalone SVG markup drawn at width x height
// logical units, magnified by scale.
func RasterizeMarkup(markup string, width, height, scale float64) (*RasterImage, error) {
	scale = normalizeScale(scale)

	icon, err := decodeImage(EncodeDataURI(markup))
	if err != nil {
		return nil, errors.ImageDecodeError(err)
	}

	fw, fh := math.Round(width*scale), math.Round(height*scale)
	if fw > MaxSurfaceSide || fh > MaxSurfaceSide || fw*fh > MaxSurfaceArea {
		return nil, errors.DrawingContextError(int(math.Min(fw, math.MaxInt32)), int(math.Min(fh, math.MaxInt32)))
	}
	pw, ph := int(fw), int(fh)
	surface, scanner, err := newSurface(pw, ph)
	if err != nil {
		return nil, err
	}

	if surface != nil {
		icon.Transform = placement(icon, width, height, scale)
		icon.Draw(rasterx.NewDasher(pw, ph, scanner), 1.0)
	}

	data, err := encodePNG(surface)
	if err != nil {
		return nil, errors.ImageEncodeError(err)
	}

	logger.Debug().
		Float64("scale", scale).
		Int("width", pw).
		Int("height", ph).
		Int("bytes", len(data)).
		Msg("rasterized diagram")

	return &RasterImage{Data: data, Width: pw, Height: ph, MIME: MIMEPNG}, nil
}

func normalizeScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return DefaultScale
	}
	return scale
}

// decodeImage loads a data reference as a drawable icon.
func decodeImage(uri string) (*oksvg.SvgIcon, error) {
	data, err := DecodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, err
	}
	if icon == nil {
		return nil, fmt.Errorf("empty image")
	}
	return icon, nil
}

// newSurface allocates the offscreen surface and its drawing context. A zero
// area surface has no context and yields no image data.
func newSurface(w, h int) (*image.RGBA, rasterx.Scanner, error) {
	if w <= 0 || h <= 0 {
		return nil, nil, nil
	}
	if w > MaxSurfaceSide || h > MaxSurfaceSide || w*h > MaxSurfaceArea {
		return nil, nil, errors.DrawingContextError(w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	return img, rasterx.NewScannerGV(w, h, img, img.Bounds()), nil
}

// placement maps the icon's viewBox onto a width x height box (centered,
// aspect preserved) and then applies the uniform magnification.
func placement(icon *oksvg.SvgIcon, width, height, scale float64) rasterx.Matrix2D {
	vb := icon.ViewBox
	m := rasterx.Identity.Scale(scale, scale)
	if vb.W <= 0 || vb.H <= 0 {
		return m
	}
	fit := math.Min(width/vb.W, height/vb.H)
	tx := (width - vb.W*fit) / 2
	ty := (height - vb.H*fit) / 2
	return m.Translate(tx, ty).Scale(fit, fit).Translate(-vb.X, -vb.Y)
}

func encodePNG(img *image.RGBA) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("surface is empty")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("encoder produced no data")
	}
	return buf.Bytes(), nil
}
