package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/novelseek/internal/book"
)

// Item is one displayed result with its 1-based global index.
type Item struct {
	Index int `json:"index" yaml:"index"`
	book.ScoredCandidate `yaml:",inline"`
}

// Result is one page of a search as shown to the user.
type Result struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Keyword   string `json:"keyword" yaml:"keyword"`
	// Platform is set for single-platform browsing.
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Page     int    `json:"page" yaml:"page"`
	PageSize int    `json:"page_size" yaml:"page_size"`
	Items    []Item `json:"items" yaml:"items"`
	// HasMore reports whether a following page may exist.
	HasMore bool `json:"has_more" yaml:"has_more"`
}

// Service implements the user-facing search operations on top of an
// Aggregator and a session Table.
type Service struct {
	agg   *Aggregator
	table *Table
}

// NewService creates a Service.
func NewService(agg *Aggregator, table *Table) *Service {
	return &Service{agg: agg, table: table}
}

// Aggregator returns the underlying aggregator.
func (s *Service) Aggregator() *Aggregator {
	return s.agg
}

// Search returns page of the fused results for keyword. Searching a new
// keyword resets the user's session; repeating the current keyword
// continues it.
func (s *Service) Search(ctx context.Context, user, keyword string, page int) (*Result, error) {
	return s.open(ctx, user, "", keyword, page)
}

// Browse returns page of a single platform's own results for keyword.
func (s *Service) Browse(ctx context.Context, user, platform, keyword string, page int) (*Result, error) {
	if _, ok := s.agg.Platform(platform); !ok {
		return nil, &UnknownPlatformError{Platform: platform}
	}
	return s.open(ctx, user, platform, keyword, page)
}

func (s *Service) open(ctx context.Context, user, platform, keyword string, page int) (*Result, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if page < 1 {
		page = 1
	}

	sess := s.table.GetOrCreate(user)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.matches(keyword, platform) {
		sess.reset(keyword, platform, s.table.maxCachedPages)
		slog.Info("New search", "user", user, "keyword", keyword, "platform", platform, "session", sess.ID)
	}
	return s.showPage(ctx, sess, page)
}

// Next shows the page after the current one.
func (s *Service) Next(ctx context.Context, user string) (*Result, error) {
	return s.continueWith(ctx, user, func(current int) (int, error) {
		return current + 1, nil
	})
}

// Prev shows the page before the current one.
func (s *Service) Prev(ctx context.Context, user string) (*Result, error) {
	return s.continueWith(ctx, user, func(current int) (int, error) {
		if current <= 1 {
			return 0, ErrFirstPage
		}
		return current - 1, nil
	})
}

// GoTo shows an explicit page of the current search.
func (s *Service) GoTo(ctx context.Context, user string, page int) (*Result, error) {
	return s.continueWith(ctx, user, func(int) (int, error) {
		if page < 1 {
			return 0, &NoMorePagesError{Page: page}
		}
		return page, nil
	})
}

func (s *Service) continueWith(ctx context.Context, user string, pick func(current int) (int, error)) (*Result, error) {
	sess, err := s.table.Get(user)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Keyword == "" {
		return nil, &SessionExpiredError{User: user}
	}
	page, err := pick(sess.CurrentPage)
	if err != nil {
		return nil, err
	}
	return s.showPage(ctx, sess, page)
}

func (s *Service) showPage(ctx context.Context, sess *Session, page int) (*Result, error) {
	if sess.Platform != "" {
		return s.showPlatformPage(ctx, sess, page)
	}

	size := s.agg.opts.PageSize
	if err := s.agg.Fill(ctx, sess, page*size); err != nil {
		return nil, err
	}

	start, end := PageBounds(page, size, len(sess.ranked))
	if start == end {
		if len(sess.ranked) == 0 {
			if unreached := s.agg.Unreached(sess); len(unreached) > 0 {
				return nil, &SourcesUnavailableError{Keyword: sess.Keyword, Platforms: unreached}
			}
			return nil, &NoResultsError{Keyword: sess.Keyword}
		}
		return nil, &NoMorePagesError{Page: page, LastPage: LastPage(len(sess.ranked), size)}
	}

	sess.CurrentPage = page
	items := make([]Item, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, Item{Index: i + 1, ScoredCandidate: sess.ranked[i]})
	}
	return &Result{
		SessionID: sess.ID,
		Keyword:   sess.Keyword,
		Page:      page,
		PageSize:  size,
		Items:     items,
		HasMore:   end < len(sess.ranked) || !s.agg.Drained(sess),
	}, nil
}

func (s *Service) showPlatformPage(ctx context.Context, sess *Session, page int) (*Result, error) {
	p, ok := s.agg.Platform(sess.Platform)
	if !ok {
		return nil, &UnknownPlatformError{Platform: sess.Platform}
	}

	res, err := s.agg.BrowsePage(ctx, sess, page)
	if err != nil {
		return nil, fmt.Errorf("browse %s page %d: %w", sess.Platform, page, err)
	}
	if len(res.Candidates) == 0 {
		if page == 1 {
			return nil, &NoResultsError{Keyword: sess.Keyword, Platform: sess.Platform}
		}
		return nil, &NoMorePagesError{Page: page, LastPage: page - 1}
	}

	size := p.Source.PageSize()
	sess.CurrentPage = page
	items := make([]Item, len(res.Candidates))
	for i, c := range res.Candidates {
		items[i] = Item{
			Index:           (page-1)*size + i + 1,
			ScoredCandidate: book.ScoredCandidate{Candidate: c},
		}
	}
	return &Result{
		SessionID: sess.ID,
		Keyword:   sess.Keyword,
		Platform:  sess.Platform,
		Page:      page,
		PageSize:  size,
		Items:     items,
		HasMore:   !res.IsLast,
	}, nil
}

// DetailByIndex resolves the 1-based global index n of the user's current
// search to its candidate.
func (s *Service) DetailByIndex(ctx context.Context, user string, n int) (*book.Candidate, error) {
	sess, err := s.table.Get(user)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Keyword == "" {
		return nil, &SessionExpiredError{User: user}
	}
	if n < 1 {
		return nil, &IndexOutOfRangeError{Index: n, Total: len(sess.ranked)}
	}

	if sess.Platform != "" {
		return s.platformItem(ctx, sess, n)
	}

	if n > len(sess.ranked) {
		if err := s.agg.Fill(ctx, sess, n); err != nil {
			return nil, err
		}
	}
	if n > len(sess.ranked) {
		return nil, &IndexOutOfRangeError{Index: n, Total: len(sess.ranked)}
	}
	c := sess.ranked[n-1].Candidate
	return &c, nil
}

func (s *Service) platformItem(ctx context.Context, sess *Session, n int) (*book.Candidate, error) {
	p, ok := s.agg.Platform(sess.Platform)
	if !ok {
		return nil, &UnknownPlatformError{Platform: sess.Platform}
	}

	page, offset := Locate(n, p.Source.PageSize())
	res, err := s.agg.BrowsePage(ctx, sess, page)
	if err != nil {
		return nil, fmt.Errorf("resolve index %d on %s: %w", n, sess.Platform, err)
	}
	if offset >= len(res.Candidates) {
		return nil, &IndexOutOfRangeError{Index: n, Total: (page-1)*p.Source.PageSize() + len(res.Candidates)}
	}
	c := res.Candidates[offset]
	return &c, nil
}

// Details fetches the detail record of c from its platform.
func (s *Service) Details(ctx context.Context, c *book.Candidate) (*book.Details, error) {
	p, ok := s.agg.Platform(c.Origin)
	if !ok {
		return nil, &UnknownPlatformError{Platform: c.Origin}
	}
	details, err := p.Source.FetchDetails(ctx, c.URL)
	if err != nil {
		return nil, fmt.Errorf("details of %s on %s: %w", c.Name, c.Origin, err)
	}
	return details, nil
}

// Reset drops the user's session.
func (s *Service) Reset(user string) {
	s.table.Delete(user)
	slog.Debug("Session reset", "user", user)
}
