package book

import "errors"

var (
	// ErrBookNotFound is returned when a platform has no book behind a URL.
	ErrBookNotFound = errors.New("book not found")

	// ErrInvalidURL is returned when a detail URL does not belong to the platform.
	ErrInvalidURL = errors.New("invalid book URL")

	// ErrAPIUnavailable is returned when a platform is not configured for use.
	ErrAPIUnavailable = errors.New("API unavailable")
)
