package sources

import (
	"fmt"
	"log/slog"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/book"
	"github.com/lepinkainen/novelseek/internal/cache"
	"github.com/lepinkainen/novelseek/internal/config"
)

// browserCapable lists the HTML platforms that can be rendered in Chrome.
// Faloo pages must be decoded from GB18030 and the rest are JSON APIs.
var browserCapable = map[string]bool{
	"qidian":   true,
	"ciweimao": true,
	"sfacg":    true,
}

// Registry holds the adapters built from the configuration.
type Registry struct {
	platforms []aggregate.Platform
	byName    map[string]book.Source
	browser   *BrowserFetcher
}

// NewRegistry builds an adapter for every configured platform, in
// configured order. db may be nil to disable caching.
func NewRegistry(s *config.Settings, db *cache.CacheDB) (*Registry, error) {
	r := &Registry{byName: make(map[string]book.Source)}
	httpFetcher := NewHTTPFetcher(nil)

	for _, name := range s.PlatformOrder() {
		ps := s.Platforms[name]
		opts := Options{
			Fetcher:   httpFetcher,
			Cache:     db,
			Rate:      ps.Rate,
			SearchTTL: s.Cache.SearchTTL,
			DetailTTL: s.Cache.DetailTTL,
		}
		if ps.Browser {
			if browserCapable[name] {
				if r.browser == nil {
					r.browser = NewBrowserFetcher(true)
				}
				opts.Fetcher = r.browser
			} else {
				slog.Warn("Browser fetching not supported, using HTTP", "platform", name)
			}
		}

		var src book.Source
		switch name {
		case "qidian":
			src = NewQidian(opts)
		case "ciweimao":
			src = NewCiweimao(opts)
		case "sfacg":
			src = NewSfacg(opts)
		case "faloo":
			src = NewFaloo(opts)
		case "qimao":
			src = NewQimao(opts)
		case "tomato":
			if s.Tomato.APIBase == "" {
				if ps.Enabled() {
					slog.Warn("Skipping tomato, tomato.api_base is not set")
				}
				continue
			}
			src = NewTomato(s.Tomato.APIBase, opts)
		default:
			slog.Warn("Ignoring unknown platform in config", "platform", name)
			continue
		}

		r.byName[name] = src
		r.platforms = append(r.platforms, aggregate.Platform{
			Source:   src,
			Priority: ps.Priority,
			Weight:   ps.Weight,
		})
	}

	if len(r.platforms) == 0 {
		_ = r.Close()
		return nil, fmt.Errorf("build sources: %w", aggregate.ErrNoPlatforms)
	}
	return r, nil
}

// Platforms returns the configured platforms for the aggregator.
func (r *Registry) Platforms() []aggregate.Platform {
	return append([]aggregate.Platform(nil), r.platforms...)
}

// Source looks up an adapter by name.
func (r *Registry) Source(name string) (book.Source, bool) {
	src, ok := r.byName[name]
	return src, ok
}

// Close releases the shared browser, if one was started.
func (r *Registry) Close() error {
	if r.browser != nil {
		return r.browser.Close()
	}
	return nil
}
