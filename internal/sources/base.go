package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/novelseek/internal/book"
	"github.com/lepinkainen/novelseek/internal/cache"
	srcerrors "github.com/lepinkainen/novelseek/internal/errors"
	"github.com/lepinkainen/novelseek/internal/ratelimit"
)

const (
	defaultSearchTTL = time.Hour
	defaultDetailTTL = 24 * time.Hour
	defaultRate      = 2.0

	mobileUserAgent  = "Mozilla/5.0 (Linux; Android 10; Pixel 4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Options configures one platform adapter. Zero values pick defaults.
type Options struct {
	// Fetcher retrieves page bytes. Defaults to an HTTPFetcher.
	Fetcher Fetcher
	// Cache stores search pages and details. nil disables caching.
	Cache *cache.CacheDB
	// Rate is the request budget per second. Negative means unlimited.
	Rate      float64
	SearchTTL time.Duration
	DetailTTL time.Duration
	// BaseURL overrides the platform host, mainly for tests.
	BaseURL string
}

// platform holds what every adapter shares: transport, pacing and caching.
type platform struct {
	name     string
	display  string
	pageSize int
	baseURL  string
	header   http.Header

	fetcher   Fetcher
	limiter   *ratelimit.Limiter
	cache     *cache.CacheDB
	searchTTL time.Duration
	detailTTL time.Duration
}

func newPlatform(name, display string, pageSize int, defaultBase string, header http.Header, opts Options) platform {
	p := platform{
		name:      name,
		display:   display,
		pageSize:  pageSize,
		baseURL:   strings.TrimRight(defaultBase, "/"),
		header:    header,
		fetcher:   opts.Fetcher,
		cache:     opts.Cache,
		searchTTL: opts.SearchTTL,
		detailTTL: opts.DetailTTL,
	}
	if opts.BaseURL != "" {
		p.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if p.fetcher == nil {
		p.fetcher = NewHTTPFetcher(nil)
	}
	if p.searchTTL == 0 {
		p.searchTTL = defaultSearchTTL
	}
	if p.detailTTL == 0 {
		p.detailTTL = defaultDetailTTL
	}
	rate := opts.Rate
	if rate == 0 {
		rate = defaultRate
	}
	p.limiter = ratelimit.New(name, rate)
	return p
}

func (p *platform) Name() string        { return p.name }
func (p *platform) DisplayName() string { return p.display }
func (p *platform) PageSize() int       { return p.pageSize }

// get fetches url after waiting for the platform's rate limiter.
func (p *platform) get(ctx context.Context, url string) ([]byte, error) {
	return p.getWithHeader(ctx, url, p.header)
}

func (p *platform) getWithHeader(ctx context.Context, url string, header http.Header) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, srcerrors.NewSourceError(p.name, srcerrors.KindNetwork, err)
	}
	slog.Debug("Fetching", "platform", p.name, "url", url)
	return p.fetcher.Fetch(ctx, p.name, Request{URL: url, Header: header})
}

func (p *platform) parseError(format string, args ...any) error {
	return srcerrors.NewSourceError(p.name, srcerrors.KindParse, fmt.Errorf(format, args...))
}

// cachedSearch serves a search page from the cache or fetches it. Empty pages
// are not stored so a platform that briefly returned nothing is asked again.
func (p *platform) cachedSearch(ctx context.Context, keyword string, page int, fetch cache.FetchFunc[*book.SearchPage]) (*book.SearchPage, error) {
	key := fmt.Sprintf("%s|%s|%d", p.name, keyword, page)
	ttl := cache.TTLUnless(p.searchTTL, func(sp *book.SearchPage) bool {
		return sp == nil || len(sp.Candidates) == 0
	})
	res, hit, err := cache.GetOrFetchWithTTL(ctx, p.cache, cache.SearchTable, key, fetch, ttl)
	if err != nil {
		return nil, err
	}
	if hit {
		slog.Debug("Search cache hit", "platform", p.name, "keyword", keyword, "page", page)
	}
	return res, nil
}

func (p *platform) cachedDetails(ctx context.Context, url string, fetch cache.FetchFunc[*book.Details]) (*book.Details, error) {
	key := p.name + "|" + url
	details, _, err := cache.GetOrFetchWithTTL(ctx, p.cache, cache.DetailTable, key, fetch, cache.FixedTTL[*book.Details](p.detailTTL))
	return details, err
}

// requireHost rejects detail URLs that do not point at this platform.
func (p *platform) requireHost(url string, hosts ...string) error {
	if strings.HasPrefix(url, p.baseURL) {
		return nil
	}
	for _, h := range hosts {
		if strings.Contains(url, h) {
			return nil
		}
	}
	return fmt.Errorf("%s: %w: %s", p.name, book.ErrInvalidURL, url)
}
