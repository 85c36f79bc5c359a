package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/novelseek/internal/metrics"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// minSweepInterval bounds how often Run sweeps when derived from a tiny TTL.
const minSweepInterval = time.Second

type tableEntry struct {
	session *Session
	touched time.Time
}

// Table maps users to their search session. Sessions idle for longer than
// the TTL are evicted on access and by Run.
type Table struct {
	mu             sync.Mutex
	ttl            time.Duration
	maxCachedPages int
	entries        map[string]*tableEntry
	now            func() time.Time
}

// NewTable creates a session table. A ttl <= 0 uses DefaultSessionTTL.
func NewTable(ttl time.Duration, maxCachedPages int) *Table {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Table{
		ttl:            ttl,
		maxCachedPages: maxCachedPages,
		entries:        make(map[string]*tableEntry),
		now:            time.Now,
	}
}

// GetOrCreate returns the live session of user, creating an empty one when
// there is none or the previous one has expired.
func (t *Table) GetOrCreate(user string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if e, ok := t.entries[user]; ok && !t.expired(e, now) {
		e.touched = now
		return e.session
	}

	e := &tableEntry{session: newSession(user, t.maxCachedPages), touched: now}
	t.entries[user] = e
	metrics.SessionsActive.Set(float64(len(t.entries)))
	slog.Debug("Created search session", "user", user, "session", e.session.ID)
	return e.session
}

// Get returns the live session of user or a SessionExpiredError.
func (t *Table) Get(user string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.entries[user]
	if !ok {
		return nil, &SessionExpiredError{User: user}
	}
	if t.expired(e, now) {
		t.remove(user)
		return nil, &SessionExpiredError{User: user}
	}
	e.touched = now
	return e.session, nil
}

// Delete drops the session of user, if any.
func (t *Table) Delete(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(user)
}

// Len returns the number of sessions held, expired or not.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep evicts all expired sessions and returns how many were removed.
func (t *Table) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for user, e := range t.entries {
		if t.expired(e, now) {
			t.remove(user)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Evicted idle sessions", "count", removed, "remaining", len(t.entries))
	}
	return removed
}

// Run sweeps the table every interval until ctx is done. An interval <= 0
// sweeps at half the TTL, but never more often than once a second.
func (t *Table) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(t.sweepInterval(interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

func (t *Table) sweepInterval(interval time.Duration) time.Duration {
	if interval > 0 {
		return interval
	}
	return max(t.ttl/2, minSweepInterval)
}

func (t *Table) expired(e *tableEntry, now time.Time) bool {
	return now.Sub(e.touched) > t.ttl
}

func (t *Table) remove(user string) {
	if _, ok := t.entries[user]; !ok {
		return
	}
	delete(t.entries, user)
	metrics.SessionsActive.Set(float64(len(t.entries)))
}
