package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/docsnatch/docsnatch/internal/domain"
)

// gcInterval is how often the value log is compacted while the store is open
const gcInterval = 5 * time.Minute

// BadgerCache stores fetched response bodies in BadgerDB, keyed by
// hashed URL. Safe for concurrent use.
type BadgerCache struct {
	db     *badger.DB
	gcStop chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewBadgerCache opens the store, creating the directory when needed.
// An empty directory means ~/.docsnatch/cache.
func NewBadgerCache(opts Options) (*BadgerCache, error) {
	var badgerOpts badger.Options

	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Directory == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			opts.Directory = homeDir + "/.docsnatch/cache"
		}
		if err := os.MkdirAll(opts.Directory, 0755); err != nil {
			return nil, err
		}
		badgerOpts = badger.DefaultOptions(opts.Directory)
	}

	// Badger logs through its own interface; keep it quiet unless asked
	if !opts.Logger {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	c := &BadgerCache{db: db, gcStop: make(chan struct{})}
	go c.runGC()
	return c, nil
}

// runGC compacts the value log periodically. The server keeps one cache
// open for its whole lifetime, so the loop stops with Close rather than
// with the process.
func (c *BadgerCache) runGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.db.RunValueLogGC(0.5)
		case <-c.gcStop:
			return
		}
	}
}

// Get retrieves the cached value for a URL. A missing or expired entry
// is domain.ErrCacheMiss.
func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(GenerateKey(key)))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return value, nil
}

// Set stores a value for a URL. A ttl of zero stores it without expiry.
func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(GenerateKey(key)), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	return mapBadgerErr(err)
}

// Has checks whether a URL is cached
func (c *BadgerCache) Has(ctx context.Context, key string) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(GenerateKey(key)))
		return err
	})
	return err == nil
}

// Delete removes the entry for a URL
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(GenerateKey(key)))
	})
	return mapBadgerErr(err)
}

// Close stops the GC loop and closes the store. Safe to call more than
// once; later calls return the first result.
func (c *BadgerCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.gcStop)
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

// Clear drops every entry
func (c *BadgerCache) Clear() error {
	return mapBadgerErr(c.db.DropAll())
}

// Size counts the live entries
func (c *BadgerCache) Size() int64 {
	var count int64
	_ = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Stats reports entry count and on-disk sizes for the stats command
func (c *BadgerCache) Stats() map[string]interface{} {
	lsm, vlog := c.db.Size()
	return map[string]interface{}{
		"entries":   c.Size(),
		"lsm_size":  lsm,
		"vlog_size": vlog,
	}
}

// mapBadgerErr translates badger sentinels into the domain's cache errors
func mapBadgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return domain.ErrCacheMiss
	case errors.Is(err, badger.ErrDBClosed):
		return domain.ErrCacheClosed
	}
	return err
}
