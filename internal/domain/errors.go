package domain

import (
	"errors"
	"fmt"
)

// Sentinels, matched with errors.Is through the wrapper types below
var (
	// ErrUnavailable indicates a resource could not be fetched for any
	// reason: network failure, timeout, or a non-200 status
	ErrUnavailable = errors.New("resource unavailable")

	// ErrContentNotFound indicates a fetched page is missing the expected
	// content container
	ErrContentNotFound = errors.New("content not found")

	// ErrAllTabsFailed indicates no tab of a spreadsheet could be exported
	ErrAllTabsFailed = errors.New("all tabs failed to export")

	// ErrInvalidDocType indicates an unrecognized export format
	ErrInvalidDocType = errors.New("invalid document type")

	// ErrInvalidDocID indicates an id that cannot be safely placed in a URL
	ErrInvalidDocID = errors.New("invalid document id")

	// ErrEmptyExport indicates an export response with no usable body
	ErrEmptyExport = errors.New("empty export body")

	// ErrConversionFailed indicates content could not be converted to the
	// requested format
	ErrConversionFailed = errors.New("conversion failed")

	// ErrCacheMiss indicates a key with no live entry
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheClosed indicates an operation on a closed cache
	ErrCacheClosed = errors.New("cache is closed")
)

// FetchError represents an error during fetching. StatusCode is zero for
// transport-level failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a FetchError around the failing URL
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ResolveError represents a failure to resolve a single id into archive
// entries. The id is carried so batch callers can log it and continue.
type ResolveError struct {
	ID  string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve error for %s: %v", e.ID, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// NewResolveError creates a new ResolveError
func NewResolveError(id string, err error) *ResolveError {
	return &ResolveError{
		ID:  id,
		Err: err,
	}
}

// IsUnavailable checks if an error stems from a failed fetch
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
