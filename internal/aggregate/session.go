package aggregate

import (
	"sync"

	"github.com/google/uuid"

	"github.com/lepinkainen/novelseek/internal/book"
)

// Session is the search state of one user for one keyword. The owning
// Service holds mu for the whole of every operation, so fields are only
// ever touched by one request at a time.
type Session struct {
	mu sync.Mutex

	// ID changes every time the session is reset; it only labels logs.
	ID   string
	User string

	Keyword string
	// Platform is empty for aggregated searches and names the single
	// source in browse mode.
	Platform string

	// CurrentPage is the last page shown to the user.
	CurrentPage int

	raw       []book.ScoredCandidate
	ranked    []book.ScoredCandidate
	seen      map[book.Key]struct{}
	cursors   map[string]int
	exhausted map[string]bool
	pages     *pageCache
}

func newSession(user string, maxCachedPages int) *Session {
	s := &Session{User: user}
	s.reset("", "", maxCachedPages)
	return s
}

// reset clears all state and binds the session to a new keyword.
func (s *Session) reset(keyword, platform string, maxCachedPages int) {
	s.ID = uuid.NewString()
	s.Keyword = keyword
	s.Platform = platform
	s.CurrentPage = 0
	s.raw = nil
	s.ranked = nil
	s.seen = make(map[book.Key]struct{})
	s.cursors = make(map[string]int)
	s.exhausted = make(map[string]bool)
	s.pages = newPageCache(maxCachedPages)
}

// matches reports whether the session already serves keyword on platform.
func (s *Session) matches(keyword, platform string) bool {
	return s.Keyword != "" && s.Keyword == keyword && s.Platform == platform
}

// cursor returns the next page to fetch from platform.
func (s *Session) cursor(platform string) int {
	if c, ok := s.cursors[platform]; ok {
		return c
	}
	return 1
}

// addRaw appends a scored candidate to the raw pool unless its key is
// already present in the raw or ranked pool. Candidates with neither an id
// nor a URL cannot be told apart and are rejected.
func (s *Session) addRaw(c book.ScoredCandidate) bool {
	key := c.Key()
	if key.ID == "" {
		return false
	}
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.raw = append(s.raw, c)
	return true
}

// settle moves promoted candidates from the raw pool to the ranked pool and
// keeps pending as the new raw pool. Raw candidates in neither slice are
// dropped and their keys forgotten, so a later page may bring them back.
func (s *Session) settle(promoted, pending []book.ScoredCandidate) {
	keep := make(map[book.Key]struct{}, len(promoted)+len(pending))
	for _, c := range promoted {
		keep[c.Key()] = struct{}{}
	}
	for _, c := range pending {
		keep[c.Key()] = struct{}{}
	}
	for _, c := range s.raw {
		if _, ok := keep[c.Key()]; !ok {
			delete(s.seen, c.Key())
		}
	}
	s.ranked = append(s.ranked, promoted...)
	s.raw = pending
}

// Ranked returns a copy of the ranked pool.
func (s *Session) Ranked() []book.ScoredCandidate {
	return append([]book.ScoredCandidate(nil), s.ranked...)
}

// Raw returns a copy of the raw pool.
func (s *Session) Raw() []book.ScoredCandidate {
	return append([]book.ScoredCandidate(nil), s.raw...)
}

// Exhausted reports whether platform has signalled its last page.
func (s *Session) Exhausted(platform string) bool {
	return s.exhausted[platform]
}

// pageCache memoizes single-platform pages with least-recently-used eviction.
type pageCache struct {
	limit int
	pages map[int]*book.SearchPage
	order []int // least recently used first
}

func newPageCache(limit int) *pageCache {
	return &pageCache{limit: limit, pages: make(map[int]*book.SearchPage)}
}

func (c *pageCache) get(page int) (*book.SearchPage, bool) {
	p, ok := c.pages[page]
	if ok {
		c.touch(page)
	}
	return p, ok
}

func (c *pageCache) put(page int, p *book.SearchPage) {
	if _, ok := c.pages[page]; !ok && c.limit > 0 && len(c.pages) >= c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.pages, oldest)
	}
	c.pages[page] = p
	c.touch(page)
}

func (c *pageCache) touch(page int) {
	for i, p := range c.order {
		if p == page {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, page)
}

func (c *pageCache) len() int {
	return len(c.pages)
}
