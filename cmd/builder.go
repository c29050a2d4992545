package cmd

import (
	"mermaidcopy/pkg/cache"
	"mermaidcopy/pkg/clipboard"
	"mermaidcopy/pkg/config"
	"mermaidcopy/pkg/logger"
	"mermaidcopy/pkg/notify"
	"mermaidcopy/pkg/trigger"
)

// CopierBuilder assembles the trigger boundary for a command run.
type CopierBuilder struct {
	format  string
	scale   float64
	source  string
	noCache bool
	sink    clipboard.Sink

	// notifier replaces the console and desktop notifiers when set.
	notifier notify.Notifier
}

func NewCopierBuilder() *CopierBuilder {
	return &CopierBuilder{sink: clipboard.System()}
}

// WithOverrides replaces the configured copy format and scale for this run.
// Empty or zero values keep the configuration.
func (b *CopierBuilder) WithOverrides(format string, scale float64) *CopierBuilder {
	b.format = format
	b.scale = scale
	return b
}

// WithSource names the document copies are recorded under.
func (b *CopierBuilder) WithSource(path string) *CopierBuilder {
	b.source = path
	return b
}

func (b *CopierBuilder) WithoutCache(disabled bool) *CopierBuilder {
	b.noCache = disabled
	return b
}

// Settings returns the settings source with the overrides applied. The
// configuration file is re-read on every call.
func (b *CopierBuilder) Settings() trigger.SettingsSource {
	return trigger.SettingsFunc(func() (*config.Config, error) {
		cfg, err := loadSettings()
		if err != nil {
			return nil, err
		}
		if b.format != "" {
			f, err := config.ParseCopyFormat(b.format)
			if err != nil {
				return nil, err
			}
			cfg.CopyFormat = f
		}
		if b.scale > 0 {
			cfg.Scale = b.scale
		}
		return cfg, nil
	})
}

// Build returns the copier and a cleanup function releasing the cache.
func (b *CopierBuilder) Build() (*trigger.Copier, func(), error) {
	settings := b.Settings()
	cfg, err := settings.Settings()
	if err != nil {
		// the copy was requested, so the failure is reported like any other
		n := b.notifier
		if n == nil {
			n = notify.NewConsole()
		}
		logger.Error().Err(err).Msg("failed to read settings")
		n.Notify(notify.LevelError, trigger.MsgFailed)
		return nil, nil, err
	}

	var notifiers notify.Notifier = b.notifier
	if notifiers == nil {
		multi := notify.Multi{notify.NewConsole()}
		if cfg.Notify.Desktop {
			multi = append(multi, notify.NewDesktop())
		}
		notifiers = multi
	}

	copier := &trigger.Copier{
		Settings:  settings,
		Clipboard: b.sink,
		Notifier:  notifiers,
	}

	cleanup := func() {}
	if b.noCache {
		return copier, cleanup, nil
	}

	cm, err := cache.NewManagerFromEnv()
	if err != nil {
		// copying works without the cache
		logger.Warn().Err(err).Msg("render cache unavailable")
		return copier, cleanup, nil
	}
	copier.Cache = &renderCache{cm: cm}
	copier.OnCopied = func(res trigger.Result) {
		entry := cache.HistoryEntry{
			Hash:   res.Hash,
			Source: b.source,
			Format: string(res.Format),
			Bytes:  res.Bytes,
			Width:  res.Width,
			Height: res.Height,
		}
		if err := cm.RecordCopy(entry); err != nil {
			logger.Warn().Err(err).Msg("failed to record copy history")
		}
	}
	return copier, func() { cm.Close() }, nil
}

// renderCache adapts the SQLite cache to the trigger's payload cache.
type renderCache struct {
	cm *cache.Manager
}

func (r *renderCache) Load(key string) (*trigger.Payload, bool) {
	cached, err := r.cm.GetRender(key)
	if err != nil {
		logger.Debug().Err(err).Msg("render cache lookup failed")
		return nil, false
	}
	if cached == nil {
		return nil, false
	}
	return &trigger.Payload{
		Format: config.CopyFormat(cached.Format),
		MIME:   cached.MIME,
		Data:   cached.Data,
		Width:  cached.Width,
		Height: cached.Height,
	}, true
}

func (r *renderCache) Store(key string, p *trigger.Payload) {
	err := r.cm.SaveRender(cache.Render{
		Key:    key,
		Format: string(p.Format),
		MIME:   p.MIME,
		Width:  p.Width,
		Height: p.Height,
		Data:   p.Data,
	})
	if err != nil {
		logger.Debug().Err(err).Msg("render cache store failed")
	}
}
