// Package config turns viper state into validated novelseek settings.
package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/novelseek/internal/aggregate"
)

// KnownPlatforms lists the supported platforms in their default order.
// Platforms with equal priority are interleaved in this order.
var KnownPlatforms = []string{"qidian", "ciweimao", "sfacg", "faloo", "tomato", "qimao"}

// PlatformSettings configures one platform.
type PlatformSettings struct {
	// Priority is "0" to disable, otherwise "1", "2", ... with 1 served first.
	Priority string `mapstructure:"priority"`
	// Weight overrides the weight derived from Priority when positive.
	Weight float64 `mapstructure:"weight"`
	// Browser fetches pages through headless Chrome.
	Browser bool `mapstructure:"browser"`
	// Rate is the allowed requests per second.
	Rate float64 `mapstructure:"rate"`
}

// Enabled reports whether the platform takes part in searches.
func (p PlatformSettings) Enabled() bool {
	_, ok := aggregate.ParsePriority(p.Priority)
	return ok
}

// SearchSettings tunes the aggregation loop and the session table.
type SearchSettings struct {
	PageSize       int             `mapstructure:"page_size"`
	Threshold      float64         `mapstructure:"threshold"`
	MaxBatches     int             `mapstructure:"max_batches"`
	FetchTimeout   time.Duration   `mapstructure:"fetch_timeout"`
	SessionTTL     time.Duration   `mapstructure:"session_ttl"`
	MaxCachedPages int             `mapstructure:"max_cached_pages"`
	Tiers          aggregate.Tiers `mapstructure:"tiers"`
}

// CacheSettings configures the sqlite cache.
type CacheSettings struct {
	DBFile    string        `mapstructure:"dbfile"`
	SearchTTL time.Duration `mapstructure:"search_ttl"`
	DetailTTL time.Duration `mapstructure:"detail_ttl"`
}

// CoverSettings configures cover downloads.
type CoverSettings struct {
	Dir      string `mapstructure:"dir"`
	MaxWidth int    `mapstructure:"max_width"`
}

// Settings is the full runtime configuration.
type Settings struct {
	Platforms map[string]PlatformSettings `mapstructure:"platforms"`
	Search    SearchSettings              `mapstructure:"search"`
	Cache     CacheSettings               `mapstructure:"cache"`
	Covers    CoverSettings               `mapstructure:"covers"`
	Server    struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Tomato struct {
		APIBase string `mapstructure:"api_base"`
	} `mapstructure:"tomato"`
}

var defaultPriorities = map[string]string{
	"qidian":   "1",
	"ciweimao": "2",
	"sfacg":    "2",
	"faloo":    "3",
	"tomato":   "0",
	"qimao":    "3",
}

// SetDefaults registers the default value of every key with viper.
func SetDefaults() {
	for _, name := range KnownPlatforms {
		viper.SetDefault("platforms."+name+".priority", defaultPriorities[name])
		viper.SetDefault("platforms."+name+".weight", 0.0)
		viper.SetDefault("platforms."+name+".browser", false)
		viper.SetDefault("platforms."+name+".rate", 2.0)
	}

	viper.SetDefault("search.page_size", aggregate.DefaultPageSize)
	viper.SetDefault("search.threshold", aggregate.DefaultThreshold)
	viper.SetDefault("search.max_batches", aggregate.DefaultMaxBatches)
	viper.SetDefault("search.fetch_timeout", aggregate.DefaultFetchTimeout)
	viper.SetDefault("search.session_ttl", aggregate.DefaultSessionTTL)
	viper.SetDefault("search.max_cached_pages", 20)

	tiers := aggregate.DefaultTiers()
	viper.SetDefault("search.tiers.exact", tiers.Exact)
	viper.SetDefault("search.tiers.prefix", tiers.Prefix)
	viper.SetDefault("search.tiers.substring", tiers.Substring)
	viper.SetDefault("search.tiers.fuzzy", tiers.Fuzzy)
	viper.SetDefault("search.tiers.fuzzy_ratio", tiers.FuzzyRatio)
	viper.SetDefault("search.tiers.author_exact", tiers.AuthorExact)
	viper.SetDefault("search.tiers.author_partial", tiers.AuthorPartial)
	viper.SetDefault("search.tiers.double_signal_bonus", tiers.DoubleSignalBonus)

	viper.SetDefault("tomato.api_base", "")
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.search_ttl", time.Hour)
	viper.SetDefault("cache.detail_ttl", 24*time.Hour)
	viper.SetDefault("covers.dir", "./covers")
	viper.SetDefault("covers.max_width", 600)
	viper.SetDefault("server.addr", ":8080")
}

// Load reads the current viper state into Settings and validates it.
func Load() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if s.Search.PageSize < 1 {
		return fmt.Errorf("search.page_size must be positive, got %d", s.Search.PageSize)
	}
	if s.Search.MaxBatches < 1 {
		return fmt.Errorf("search.max_batches must be positive, got %d", s.Search.MaxBatches)
	}
	if s.Search.Threshold < 0 {
		return fmt.Errorf("search.threshold must not be negative, got %v", s.Search.Threshold)
	}
	if s.Search.SessionTTL < 0 || (s.Search.SessionTTL > 0 && s.Search.SessionTTL < time.Second) {
		return fmt.Errorf("search.session_ttl must be at least 1s, got %s", s.Search.SessionTTL)
	}
	if err := s.Search.Tiers.Validate(); err != nil {
		return fmt.Errorf("search.tiers: %w", err)
	}
	for name, p := range s.Platforms {
		if p.Weight < 0 {
			return fmt.Errorf("platforms.%s.weight must not be negative", name)
		}
		if p.Rate < 0 {
			return fmt.Errorf("platforms.%s.rate must not be negative", name)
		}
	}
	if !slices.ContainsFunc(s.PlatformOrder(), func(name string) bool { return s.Platforms[name].Enabled() }) {
		return aggregate.ErrNoPlatforms
	}
	return nil
}

// PlatformOrder returns the configured platform names: known platforms in
// their default order first, then any others alphabetically.
func (s *Settings) PlatformOrder() []string {
	order := make([]string, 0, len(s.Platforms))
	for _, name := range KnownPlatforms {
		if _, ok := s.Platforms[name]; ok {
			order = append(order, name)
		}
	}
	var extra []string
	for name := range s.Platforms {
		if !slices.Contains(KnownPlatforms, name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

// Platform returns the settings of one platform by case-insensitive name.
func (s *Settings) Platform(name string) (PlatformSettings, bool) {
	p, ok := s.Platforms[strings.ToLower(name)]
	return p, ok
}

// AggregateOptions converts the search settings for the aggregator.
func (s *Settings) AggregateOptions() aggregate.Options {
	return aggregate.Options{
		PageSize:     s.Search.PageSize,
		Threshold:    s.Search.Threshold,
		MaxBatches:   s.Search.MaxBatches,
		FetchTimeout: s.Search.FetchTimeout,
		Tiers:        s.Search.Tiers,
	}
}
