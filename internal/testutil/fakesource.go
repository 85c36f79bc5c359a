package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/lepinkainen/novelseek/internal/book"
)

// FakeSource is a scripted book.Source. Page n of any keyword is Pages[n-1];
// pages past the end are empty and last.
type FakeSource struct {
	ID       string
	Display  string
	Size     int
	Pages    []book.SearchPage
	Details  map[string]*book.Details
	PingErr  error
	Delay    time.Duration
	mu       sync.Mutex
	failOnce map[int]error
	calls    []int
}

// NewFakeSource creates a FakeSource with the given name, page size and pages.
func NewFakeSource(name string, size int, pages ...book.SearchPage) *FakeSource {
	return &FakeSource{ID: name, Display: name, Size: size, Pages: pages}
}

// FailOnce makes the next fetch of page fail with err.
func (f *FakeSource) FailOnce(page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnce == nil {
		f.failOnce = make(map[int]error)
	}
	f.failOnce[page] = err
}

// Calls returns the pages requested so far, in order.
func (f *FakeSource) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func (f *FakeSource) Name() string        { return f.ID }
func (f *FakeSource) DisplayName() string { return f.Display }
func (f *FakeSource) PageSize() int       { return f.Size }

func (f *FakeSource) Ping(context.Context) error {
	return f.PingErr
}

func (f *FakeSource) FetchPage(ctx context.Context, _ string, page int) (*book.SearchPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	err, failing := f.failOnce[page]
	if failing {
		delete(f.failOnce, page)
	}
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	if failing {
		return nil, err
	}
	if page < 1 || page > len(f.Pages) {
		return &book.SearchPage{IsLast: true}, nil
	}

	p := f.Pages[page-1]
	return &book.SearchPage{
		Candidates: append([]book.Candidate(nil), p.Candidates...),
		IsLast:     p.IsLast || page == len(f.Pages),
	}, nil
}

func (f *FakeSource) FetchDetails(_ context.Context, url string) (*book.Details, error) {
	if d, ok := f.Details[url]; ok {
		return d, nil
	}
	return nil, book.ErrBookNotFound
}

// Books builds candidates with the given names; URLs and ids are derived
// from the names.
func Books(names ...string) []book.Candidate {
	out := make([]book.Candidate, len(names))
	for i, n := range names {
		out[i] = book.Candidate{Name: n, Author: "someone", URL: "https://example.com/" + n, ExternalID: n}
	}
	return out
}
