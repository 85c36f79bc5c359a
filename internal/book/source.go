// Package book provides the shared record types and the Source capability
// used to search web-novel platforms.
package book

import (
	"context"
)

// Source defines the interface for searching one book platform.
// Each implementation handles its own transport, rate limiting and
// translation of the platform's records into Candidates.
type Source interface {
	// Name returns the stable platform identifier (e.g., "qidian").
	// It is used as Candidate.Origin and as the config key.
	Name() string

	// DisplayName returns the human-readable platform name.
	DisplayName() string

	// PageSize returns how many candidates one platform page usually holds.
	PageSize() int

	// Ping tests the connection to the platform.
	Ping(ctx context.Context) error

	// FetchPage returns one page (1-based) of search results for keyword.
	// A failed fetch returns a *errors.SourceError and no page.
	FetchPage(ctx context.Context, keyword string, page int) (*SearchPage, error)

	// FetchDetails retrieves the detail record behind a candidate URL.
	// Returns nil, ErrBookNotFound when the platform has no such book.
	FetchDetails(ctx context.Context, url string) (*Details, error)
}

// SearchPage is the result of a single Source.FetchPage call.
type SearchPage struct {
	// Candidates are the records on this page, in platform order.
	Candidates []Candidate

	// IsLast is true when the platform reports no further pages.
	IsLast bool
}
