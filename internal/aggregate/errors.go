package aggregate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyKeyword is returned when a search is requested without a keyword.
	ErrEmptyKeyword = errors.New("keyword is empty")

	// ErrFirstPage is returned when paging backwards from page 1.
	ErrFirstPage = errors.New("already on the first page")

	// ErrNoPlatforms is returned when every platform is disabled.
	ErrNoPlatforms = errors.New("no platform is enabled")
)

// NoResultsError means no platform produced a single usable match.
type NoResultsError struct {
	Keyword  string
	Platform string
}

func (e *NoResultsError) Error() string {
	if e.Platform != "" {
		return fmt.Sprintf("no results for %q on %s", e.Keyword, e.Platform)
	}
	return fmt.Sprintf("no results for %q", e.Keyword)
}

// SourcesUnavailableError means nothing was found while some platforms never
// answered a single page, so the absence of results is not conclusive.
type SourcesUnavailableError struct {
	Keyword   string
	Platforms []string
}

func (e *SourcesUnavailableError) Error() string {
	return fmt.Sprintf("no results for %q yet, unreachable platforms: %s", e.Keyword, strings.Join(e.Platforms, ", "))
}

// NoMorePagesError means the requested page lies beyond the collected results.
type NoMorePagesError struct {
	Page     int
	LastPage int
}

func (e *NoMorePagesError) Error() string {
	return fmt.Sprintf("page %d is beyond the last page (%d)", e.Page, e.LastPage)
}

// IndexOutOfRangeError means a detail index cannot be resolved.
type IndexOutOfRangeError struct {
	Index int
	Total int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d is out of range (%d results)", e.Index, e.Total)
}

// SessionExpiredError means a continuation arrived for a session that no
// longer exists; the user has to search again.
type SessionExpiredError struct {
	User string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("no active search session for %s, please search again", e.User)
}

// UnknownPlatformError means a platform name is not configured or disabled.
type UnknownPlatformError struct {
	Platform string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("platform %q is unknown or disabled", e.Platform)
}

// IsNoResults reports whether err is a NoResultsError (even when wrapped).
func IsNoResults(err error) bool {
	var target *NoResultsError
	return errors.As(err, &target)
}

// IsSourcesUnavailable reports whether err is a SourcesUnavailableError (even when wrapped).
func IsSourcesUnavailable(err error) bool {
	var target *SourcesUnavailableError
	return errors.As(err, &target)
}

// IsNoMorePages reports whether err is a NoMorePagesError (even when wrapped).
func IsNoMorePages(err error) bool {
	var target *NoMorePagesError
	return errors.As(err, &target)
}

// IsIndexOutOfRange reports whether err is an IndexOutOfRangeError (even when wrapped).
func IsIndexOutOfRange(err error) bool {
	var target *IndexOutOfRangeError
	return errors.As(err, &target)
}

// IsSessionExpired reports whether err is a SessionExpiredError (even when wrapped).
func IsSessionExpired(err error) bool {
	var target *SessionExpiredError
	return errors.As(err, &target)
}

// IsUnknownPlatform reports whether err is an UnknownPlatformError (even when wrapped).
func IsUnknownPlatform(err error) bool {
	var target *UnknownPlatformError
	return errors.As(err, &target)
}
