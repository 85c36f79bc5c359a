package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/novelseek/internal/book"
	"github.com/lepinkainen/novelseek/internal/metrics"
)

// Default loop tuning.
const (
	DefaultPageSize     = 10
	DefaultThreshold    = 60.0
	DefaultMaxBatches   = 5
	DefaultFetchTimeout = 15 * time.Second
)

// Platform is one configured source together with its ranking settings.
type Platform struct {
	Source   book.Source
	Priority string
	// Weight multiplies every score from this platform. 0 means derive it
	// from Priority.
	Weight float64
}

// Name returns the platform identifier.
func (p Platform) Name() string {
	return p.Source.Name()
}

// Options tunes the aggregation loop.
type Options struct {
	PageSize int
	// Threshold is the raw-pool average below which another fetch round is
	// preferred over promoting.
	Threshold float64
	// MaxBatches bounds the fetch rounds of one Fill call.
	MaxBatches int
	// FetchTimeout bounds one platform fetch; a timeout only fails that
	// platform for the round.
	FetchTimeout time.Duration
	Tiers        Tiers
}

// DefaultOptions returns the standard loop tuning.
func DefaultOptions() Options {
	return Options{
		PageSize:     DefaultPageSize,
		Threshold:    DefaultThreshold,
		MaxBatches:   DefaultMaxBatches,
		FetchTimeout: DefaultFetchTimeout,
		Tiers:        DefaultTiers(),
	}
}

// Aggregator runs fetch rounds against the enabled platforms and grows a
// session's ranked pool.
type Aggregator struct {
	platforms  []Platform
	byName     map[string]Platform
	weights    map[string]float64
	priorities []PlatformPriority
	scorer     Scorer
	opts       Options
}

// NewAggregator keeps the enabled platforms, in the given order, and
// validates the options.
func NewAggregator(platforms []Platform, opts Options) (*Aggregator, error) {
	if opts.PageSize < 1 {
		return nil, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}
	if opts.MaxBatches < 1 {
		return nil, fmt.Errorf("max batches must be positive, got %d", opts.MaxBatches)
	}
	if err := opts.Tiers.Validate(); err != nil {
		return nil, err
	}

	a := &Aggregator{
		byName:  make(map[string]Platform),
		weights: make(map[string]float64),
		scorer:  NewScorer(opts.Tiers),
		opts:    opts,
	}
	for _, p := range platforms {
		name := p.Name()
		if _, dup := a.byName[name]; dup {
			return nil, fmt.Errorf("platform %q configured twice", name)
		}
		if _, enabled := ParsePriority(p.Priority); !enabled {
			slog.Debug("Platform disabled", "platform", name, "priority", p.Priority)
			continue
		}
		weight := p.Weight
		if weight <= 0 {
			weight = WeightForPriority(p.Priority)
		}
		a.platforms = append(a.platforms, p)
		a.byName[name] = p
		a.weights[name] = weight
		a.priorities = append(a.priorities, PlatformPriority{Platform: name, Priority: p.Priority})
	}
	if len(a.platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	return a, nil
}

// Options returns the loop tuning in use.
func (a *Aggregator) Options() Options {
	return a.opts
}

// Platforms returns the enabled platforms in configured order.
func (a *Aggregator) Platforms() []Platform {
	return append([]Platform(nil), a.platforms...)
}

// Platform looks up an enabled platform by name.
func (a *Aggregator) Platform(name string) (Platform, bool) {
	p, ok := a.byName[name]
	return p, ok
}

// Fill grows sess's ranked pool until it holds target candidates, every
// platform is exhausted, or the fetch budget is spent. Only a cancelled
// ctx produces an error; platform failures are absorbed.
func (a *Aggregator) Fill(ctx context.Context, sess *Session, target int) error {
	batches := 0
	for len(sess.ranked) < target {
		_, _, average := Sift(sess.raw)
		exhausted := a.allExhausted(sess)
		canFetch := !exhausted && batches < a.opts.MaxBatches

		if canFetch && (len(sess.raw) == 0 || average < a.opts.Threshold) {
			if err := a.fetchRound(ctx, sess); err != nil {
				return err
			}
			batches++
			continue
		}

		if len(sess.raw) == 0 {
			break
		}

		promoted, held, _ := Sift(sess.raw)
		if len(promoted) > 0 {
			ordered := Interleave(promoted, a.priorities)
			sess.settle(ordered, held)
			metrics.PromotedTotal.Add(float64(len(ordered)))
			continue
		}

		// Nothing in the raw pool scored above zero.
		sess.settle(nil, nil)
		if !canFetch {
			break
		}
	}

	slog.Debug("Fill finished",
		"session", sess.ID,
		"keyword", sess.Keyword,
		"target", target,
		"ranked", len(sess.ranked),
		"raw", len(sess.raw),
		"batches", batches,
		"exhausted", a.allExhausted(sess))
	return nil
}

// Drained reports whether sess can never grow its ranked pool again.
func (a *Aggregator) Drained(sess *Session) bool {
	return len(sess.raw) == 0 && a.allExhausted(sess)
}

// Unreached returns the platforms that have not delivered a single page to
// sess, in configured order.
func (a *Aggregator) Unreached(sess *Session) []string {
	var out []string
	for _, p := range a.platforms {
		if _, ok := sess.cursors[p.Name()]; !ok {
			out = append(out, p.Name())
		}
	}
	return out
}

func (a *Aggregator) allExhausted(sess *Session) bool {
	for _, p := range a.platforms {
		if !sess.exhausted[p.Name()] {
			return false
		}
	}
	return true
}

type roundResult struct {
	page *book.SearchPage
	err  error
}

// fetchRound fetches the next page of every non-exhausted platform
// concurrently. State is applied after all fetches return, in configured
// platform order. If ctx is cancelled the whole round is discarded.
func (a *Aggregator) fetchRound(ctx context.Context, sess *Session) error {
	active := make([]Platform, 0, len(a.platforms))
	for _, p := range a.platforms {
		if !sess.exhausted[p.Name()] {
			active = append(active, p)
		}
	}

	// Per-platform failures stay in results; the group never fails so one
	// platform cannot cancel the others.
	results := make([]roundResult, len(active))
	var g errgroup.Group
	for i, p := range active {
		page := sess.cursor(p.Name())
		g.Go(func() error {
			results[i] = a.fetchOne(ctx, p, sess.Keyword, page)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		slog.Warn("Fetch round cancelled, discarding results", "session", sess.ID, "error", err)
		return fmt.Errorf("fetch round: %w", err)
	}
	metrics.FetchRoundsTotal.Inc()

	for i, p := range active {
		name := p.Name()
		r := results[i]
		if r.err != nil {
			slog.Warn("Platform fetch failed, will retry", "platform", name, "page", sess.cursor(name), "error", r.err)
			metrics.SourceFetchTotal.WithLabelValues(name, "error").Inc()
			continue
		}

		sess.cursors[name] = sess.cursor(name) + 1
		if r.page.IsLast {
			sess.exhausted[name] = true
			metrics.SourceFetchTotal.WithLabelValues(name, "exhausted").Inc()
		} else {
			metrics.SourceFetchTotal.WithLabelValues(name, "ok").Inc()
		}

		added := 0
		for _, c := range r.page.Candidates {
			c.Origin = name
			score := a.scorer.Score(c, sess.Keyword, a.weights[name])
			slog.Debug("Scored candidate", "platform", name, "name", c.Name, "author", c.Author, "score", score)
			if c.Key().ID == "" {
				slog.Warn("Dropping candidate without id or URL", "platform", name, "name", c.Name)
				continue
			}
			if sess.addRaw(book.ScoredCandidate{Candidate: c, Score: score}) {
				added++
			}
		}
		slog.Debug("Platform page merged",
			"platform", name,
			"fetched", len(r.page.Candidates),
			"added", added,
			"last", r.page.IsLast)
	}
	return nil
}

func (a *Aggregator) fetchOne(ctx context.Context, p Platform, keyword string, page int) roundResult {
	if a.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := p.Source.FetchPage(ctx, keyword, page)
	metrics.SourceFetchDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return roundResult{err: err}
	}
	if res == nil {
		res = &book.SearchPage{}
	}
	return roundResult{page: res}
}

// BrowsePage returns one page of a single platform, served from the
// session's page cache when possible.
func (a *Aggregator) BrowsePage(ctx context.Context, sess *Session, page int) (*book.SearchPage, error) {
	if cached, ok := sess.pages.get(page); ok {
		slog.Debug("Page cache hit", "platform", sess.Platform, "page", page)
		return cached, nil
	}

	p, ok := a.byName[sess.Platform]
	if !ok {
		return nil, &UnknownPlatformError{Platform: sess.Platform}
	}

	res := a.fetchOne(ctx, p, sess.Keyword, page)
	if res.err != nil {
		metrics.SourceFetchTotal.WithLabelValues(p.Name(), "error").Inc()
		return nil, res.err
	}
	metrics.SourceFetchTotal.WithLabelValues(p.Name(), "ok").Inc()

	for i := range res.page.Candidates {
		res.page.Candidates[i].Origin = p.Name()
	}
	sess.pages.put(page, res.page)
	if res.page.IsLast {
		sess.exhausted[p.Name()] = true
	}
	return res.page, nil
}
