package repositories

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPageRepository implements PageStore using BadgerDB
type BadgerPageRepository struct {
	db *badger.DB
}

func NewBadgerPageRepository(db *badger.DB) *BadgerPageRepository {
	return &BadgerPageRepository{db: db}
}

func (r *BadgerPageRepository) Get(slug string) (*StoredPage, error) {
	var page StoredPage

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(slug))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return unmarshalEntity(val, &page)
		})
	})

	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Put stores page and clears any not-found marker for its slug.
func (r *BadgerPageRepository) Put(page *StoredPage) error {
	if page == nil || page.Slug == "" {
		return fmt.Errorf("page slug is required")
	}
	data, err := marshalEntity(page)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(missingKey(page.Slug)); err != nil {
			return err
		}
		return txn.Set(pageKey(page.Slug), data)
	})
}

// MarkMissing stores an expiring marker; Badger drops it after ttl.
func (r *BadgerPageRepository) MarkMissing(slug string, ttl time.Duration) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(pageKey(slug)); err != nil {
			return err
		}
		if ttl <= 0 {
			return txn.Delete(missingKey(slug))
		}
		return txn.SetEntry(badger.NewEntry(missingKey(slug), []byte{1}).WithTTL(ttl))
	})
}

func (r *BadgerPageRepository) IsMissing(slug string) (bool, error) {
	var missing bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(missingKey(slug))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		missing = true
		return nil
	})
	return missing, err
}

// List returns the slugs of all stored pages in key order.
func (r *BadgerPageRepository) List() ([]string, error) {
	var slugs []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			slugs = append(slugs, strings.TrimPrefix(string(it.Item().Key()), PageKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(slugs)
	return slugs, nil
}

// Clear removes every stored page and not-found marker.
func (r *BadgerPageRepository) Clear() error {
	return r.db.DropPrefix([]byte(PageKeyPrefix), []byte(MissingKeyPrefix))
}
