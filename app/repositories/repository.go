package repositories

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// OpenDB opens the BadgerDB that backs the page store. An empty path keeps
// the data in memory for the lifetime of the process.
func OpenDB(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path).
			WithSyncWrites(false).
			WithNumVersionsToKeep(1)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open page store: %w", err)
	}
	return db, nil
}
