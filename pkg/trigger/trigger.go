// Package trigger runs one copy request end to end: it reads the copy
// settings, converts the diagram, writes the clipboard and tells the user
// how it went.
package trigger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"mermaidcopy/pkg/clipboard"
	"mermaidcopy/pkg/config"
	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/logger"
	"mermaidcopy/pkg/notify"
	"mermaidcopy/pkg/svgexport"

	"golang.org/x/net/html"
)

// Messages shown to the user.
const (
	MsgSVGCopied = "SVG copied to clipboard"
	MsgPNGCopied = "PNG copied to clipboard"
	MsgFailed    = "Failed to copy diagram"
	MsgNoDiagram = "No diagram found"
)

// SettingsSource supplies the current settings. It is consulted before every
// trigger so changes apply without a restart.
type SettingsSource interface {
	Settings() (*config.Config, error)
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() (*config.Config, error)

func (f SettingsFunc) Settings() (*config.Config, error) { return f() }

// Static always returns the same settings.
func Static(cfg *config.Config) SettingsSource {
	return SettingsFunc(func() (*config.Config, error) { return cfg, nil })
}

// Result describes a completed copy.
type Result struct {
	Format   config.CopyFormat `json:"format" yaml:"format"`
	MIME     string            `json:"mime" yaml:"mime"`
	Bytes    int               `json:"bytes" yaml:"bytes"`
	Width    int               `json:"width,omitempty" yaml:"width,omitempty"` // pixels, png only
	Height   int               `json:"height,omitempty" yaml:"height,omitempty"`
	Hash     string            `json:"hash" yaml:"hash"`
	Cached   bool              `json:"cached" yaml:"cached"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
}

// Cache stores converted payloads by key. Implementations must tolerate
// concurrent use; lookup failures are treated as misses.
type Cache interface {
	Load(key string) (*Payload, bool)
	Store(key string, p *Payload)
}

// Payload is a converted diagram ready for the clipboard or a file.
type Payload struct {
	Format config.CopyFormat
	MIME   string
	Data   []byte
	Width  int
	Height int
	Hash   string // identity of the serialized markup
}

// Copier is the trigger boundary.
type Copier struct {
	Settings  SettingsSource
	Clipboard clipboard.Sink
	Notifier  notify.Notifier
	Layout    svgexport.Layout

	// Cache, when set, short-circuits rasterization of unchanged diagrams.
	Cache Cache
	// OnCopied runs after every successful copy.
	OnCopied func(Result)
}

// Copy converts svg in the configured format and places it on the
// clipboard. Every failure is logged and reported through the notifier once;
// the returned error carries the exit code of the failing step.
func (c *Copier) Copy(svg *html.Node) (Result, error) {
	start := time.Now()

	if svg == nil {
		c.notify(notify.LevelError, MsgNoDiagram)
		return Result{}, errors.NoDiagramError("")
	}

	cfg, err := c.Settings.Settings()
	if err != nil {
		return Result{}, c.fail(err)
	}

	p, cached, err := c.convert(svg, cfg)
	if err != nil {
		return Result{}, c.fail(err)
	}

	if p.Format == config.FormatSVG {
		err = c.Clipboard.WriteText(string(p.Data))
	} else {
		err = c.Clipboard.WriteImage(p.MIME, p.Data)
	}
	if err != nil {
		if !errors.IsExitCode(err, errors.ExitCodeClipboard) {
			err = errors.ClipboardError(err)
		}
		return Result{}, c.fail(err)
	}

	res := Result{
		Format:   p.Format,
		MIME:     p.MIME,
		Bytes:    len(p.Data),
		Width:    p.Width,
		Height:   p.Height,
		Hash:     p.Hash,
		Cached:   cached,
		Duration: time.Since(start),
	}
	logger.Info().
		Str("format", string(res.Format)).
		Int("bytes", res.Bytes).
		Bool("cached", res.Cached).
		Dur("took", res.Duration).
		Msg("diagram copied")
	if c.OnCopied != nil {
		c.OnCopied(res)
	}

	if p.Format == config.FormatSVG {
		c.notify(notify.LevelSuccess, MsgSVGCopied)
	} else {
		c.notify(notify.LevelSuccess, MsgPNGCopied)
	}
	return res, nil
}

// convert consults the cache for png conversions.
func (c *Copier) convert(svg *html.Node, cfg *config.Config) (*Payload, bool, error) {
	if c.Cache == nil || cfg.CopyFormat != config.FormatPNG {
		p, err := Convert(svg, c.Layout, cfg.CopyFormat, cfg.Scale)
		return p, false, err
	}

	g, err := svgexport.NewGraphic(svg, c.Layout)
	if err != nil {
		return nil, false, errors.NoDiagramError("")
	}
	markup := svgexport.Serialize(g)
	w, h := g.Size()
	key := CacheKey(markup, w, h, cfg.Scale)
	if p, ok := c.Cache.Load(key); ok {
		p.Hash = Identity(markup)
		return p, true, nil
	}

	p, err := rasterize(markup, w, h, cfg.Scale)
	if err != nil {
		return nil, false, err
	}
	c.Cache.Store(key, p)
	return p, false, nil
}

// Convert runs the conversion path for format without touching the
// clipboard.
func Convert(svg *html.Node, layout svgexport.Layout, format config.CopyFormat, scale float64) (*Payload, error) {
	g, err := svgexport.NewGraphic(svg, layout)
	if err != nil {
		return nil, errors.NoDiagramError("")
	}

	switch config.CopyFormat(strings.ToLower(strings.TrimSpace(string(format)))) {
	case config.FormatSVG:
		markup := svgexport.Serialize(g)
		return &Payload{Format: config.FormatSVG, MIME: "text/plain", Data: []byte(markup), Hash: Identity(markup)}, nil
	case config.FormatPNG, "":
		w, h := g.Size()
		return rasterize(svgexport.Serialize(g), w, h, scale)
	}
	return nil, errors.ValidationError(fmt.Sprintf("unsupported copy format %q (valid: png, svg)", format))
}

func rasterize(markup string, w, h, scale float64) (*Payload, error) {
	img, err := svgexport.RasterizeMarkup(markup, w, h, scale)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Format: config.FormatPNG,
		MIME:   img.MIME,
		Data:   img.Data,
		Width:  img.Width,
		Height: img.Height,
		Hash:   Identity(markup),
	}, nil
}

// Identity is the SHA-256 of a diagram's serialized markup.
func Identity(markup string) string {
	sum := sha256.Sum256([]byte(markup))
	return hex.EncodeToString(sum[:])
}

// CacheKey identifies a png rendering of markup at the given logical size
// and scale.
func CacheKey(markup string, w, h, scale float64) string {
	return Identity(fmt.Sprintf("png\x00%g\x00%g\x00%g\x00%s", w, h, scale, markup))
}

func (c *Copier) fail(err error) error {
	logger.Error().Err(err).Int("exit_code", int(errors.CodeOf(err))).Msg("copy failed")
	c.notify(notify.LevelError, MsgFailed)
	return err
}

func (c *Copier) notify(level notify.Level, msg string) {
	if c.Notifier != nil {
		c.Notifier.Notify(level, msg)
	}
}
