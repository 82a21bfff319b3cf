package domain

import (
	"context"
	"time"
)

// Fetcher retrieves public Google endpoints while presenting as a
// browser.
type Fetcher interface {
	// Get fetches content from a URL. It returns a Response only for
	// status 200; every other outcome is a *FetchError wrapping
	// ErrUnavailable.
	Get(ctx context.Context, url string) (*Response, error)
	Close() error
}

// Cache stores fetched bodies keyed by URL.
type Cache interface {
	// Get returns the stored value, or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value; zero ttl means no expiry
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Has(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
	Close() error
}

// DocumentSource resolves a document id into a single converted file.
type DocumentSource interface {
	// Resolve fetches the document and converts it to DOCX
	Resolve(ctx context.Context, id string) (*ExportedFile, error)
	// ResolveMarkdown fetches the document and converts it to Markdown
	ResolveMarkdown(ctx context.Context, id string) (*ExportedFile, error)
}

// SpreadsheetSource resolves a spreadsheet id into its exported tabs.
type SpreadsheetSource interface {
	// Resolve exports every discoverable tab as CSV, skipping tabs that
	// fail. It errors only when no tab exports.
	Resolve(ctx context.Context, id string) (*SpreadsheetExport, error)
}
