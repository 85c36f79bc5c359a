package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// SourceErrorKind classifies why a platform fetch failed.
type SourceErrorKind string

const (
	// KindNetwork covers transport failures and timeouts.
	KindNetwork SourceErrorKind = "network"
	// KindStatus is an unexpected HTTP status.
	KindStatus SourceErrorKind = "status"
	// KindParse means the page or payload no longer matches the expected shape.
	KindParse SourceErrorKind = "parse"
	// KindQuota means the platform throttled us.
	KindQuota SourceErrorKind = "quota"
)

// SourceError is a failed fetch against one platform.
// It never aborts an aggregation round; the platform is retried next round.
type SourceError struct {
	Platform   string
	Kind       SourceErrorKind
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (HTTP %d): %v", e.Platform, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Platform, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError wraps err as a SourceError of the given kind.
func NewSourceError(platform string, kind SourceErrorKind, err error) *SourceError {
	return &SourceError{Platform: platform, Kind: kind, Err: err}
}

// NewStatusError builds a SourceError from an HTTP status code.
// 429 and 503 are reported as quota errors wrapping a RateLimitError.
func NewStatusError(platform string, statusCode int) *SourceError {
	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable {
		return &SourceError{
			Platform:   platform,
			Kind:       KindQuota,
			StatusCode: statusCode,
			Err:        NewRateLimitError(platform + " is throttling requests"),
		}
	}
	return &SourceError{
		Platform:   platform,
		Kind:       KindStatus,
		StatusCode: statusCode,
		Err:        fmt.Errorf("unexpected status %d", statusCode),
	}
}

// IsSourceError reports whether err is a SourceError (even when wrapped).
func IsSourceError(err error) bool {
	var srcErr *SourceError
	return stdErrors.As(err, &srcErr)
}

// SourceErrorKindOf returns the kind of a wrapped SourceError, or "" if err is not one.
func SourceErrorKindOf(err error) SourceErrorKind {
	var srcErr *SourceError
	if stdErrors.As(err, &srcErr) {
		return srcErr.Kind
	}
	return ""
}
