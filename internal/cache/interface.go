package cache

import (
	"time"

	"github.com/docsnatch/docsnatch/internal/domain"
)

var _ domain.Cache = (*BadgerCache)(nil)

// Entry is the JSON envelope stored per URL: the body plus the
// metadata needed to rebuild a response from it
type Entry struct {
	URL         string    `json:"url"`
	Content     []byte    `json:"content"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Options configures the badger store
type Options struct {
	Directory string
	InMemory  bool
	Logger    bool
}

// DefaultOptions returns the starting options: on-disk in the default
// location, badger's own logging off
func DefaultOptions() Options {
	return Options{
		Directory: "",
		InMemory:  false,
		Logger:    false,
	}
}
