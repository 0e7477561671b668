// Package catalog persists the client's document library in a local
// badger store as a single JSON array under a versioned schema key.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	currentKey = "documents:v2"
	legacyKey  = "documents:v1"
)

// Catalog is the document library. Writes are serialized; reads see the
// last committed array.
type Catalog struct {
	db     *badger.DB
	owned  bool
	mu     sync.Mutex
	logger *slog.Logger
}

// Open opens (or creates) a catalog at path. An empty path keeps the
// catalog in memory.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", path, err)
	}

	c, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.owned = true
	return c, nil
}

// New wraps an open badger database and migrates legacy records.
func New(db *badger.DB, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		db:     db,
		logger: logger.With("system", "catalog"),
	}
	if err := c.migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases the database when the catalog opened it.
func (c *Catalog) Close() error {
	if !c.owned {
		return nil
	}
	return c.db.Close()
}

// List returns every document. Saved documents are prepended.
func (c *Catalog) List() ([]Document, error) {
	var docs []Document
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		docs, err = read(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Find returns the document with id.
func (c *Catalog) Find(id string) (*Document, error) {
	docs, err := c.List()
	if err != nil {
		return nil, err
	}

	doc, ok := lo.Find(docs, func(d Document) bool { return d.ID == id })
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &doc, nil
}

// FindDuplicate returns a document with the same title and byte size.
func (c *Catalog) FindDuplicate(title string, size int64) (*Document, bool, error) {
	docs, err := c.List()
	if err != nil {
		return nil, false, err
	}

	doc, ok := lo.Find(docs, func(d Document) bool {
		return d.Title == title && d.FileSize == size
	})
	if !ok {
		return nil, false, nil
	}
	return &doc, true, nil
}

// Save inserts doc or replaces the document with the same id.
func (c *Catalog) Save(doc Document) error {
	if doc.ID == "" || doc.Title == "" {
		return ErrInvalidDocument
	}

	return c.mutate(func(docs []Document) ([]Document, error) {
		if _, i, ok := lo.FindIndexOf(docs, func(d Document) bool { return d.ID == doc.ID }); ok {
			docs[i] = doc
			return docs, nil
		}
		return append([]Document{doc}, docs...), nil
	})
}

// Update applies fn to the stored document with id and returns the result.
func (c *Catalog) Update(id string, fn func(*Document)) (*Document, error) {
	var updated Document
	err := c.mutate(func(docs []Document) ([]Document, error) {
		_, i, ok := lo.FindIndexOf(docs, func(d Document) bool { return d.ID == id })
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		fn(&docs[i])
		docs[i].ID = id
		updated = docs[i]
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Touch records that a document was opened at.
func (c *Catalog) Touch(id string, at time.Time) (*Document, error) {
	return c.Update(id, func(d *Document) {
		d.LastOpened = &at
	})
}

// Delete removes the document with id.
func (c *Catalog) Delete(id string) error {
	return c.mutate(func(docs []Document) ([]Document, error) {
		kept := lo.Reject(docs, func(d Document, _ int) bool { return d.ID == id })
		if len(kept) == len(docs) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return kept, nil
	})
}

// Seed adds the documents whose ids are not yet present and returns how
// many were added.
func (c *Catalog) Seed(seed []Document) (int, error) {
	added := 0
	err := c.mutate(func(docs []Document) ([]Document, error) {
		known := lo.SliceToMap(docs, func(d Document) (string, struct{}) {
			return d.ID, struct{}{}
		})
		fresh := lo.Filter(seed, func(d Document, _ int) bool {
			_, ok := known[d.ID]
			return !ok
		})
		added = len(fresh)
		return append(docs, fresh...), nil
	})
	if err != nil {
		return 0, err
	}

	if added > 0 {
		c.logger.Info("catalog seeded", "documents", added)
	}
	return added, nil
}

func (c *Catalog) mutate(fn func([]Document) ([]Document, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Update(func(txn *badger.Txn) error {
		docs, err := read(txn)
		if err != nil {
			return err
		}
		docs, err = fn(docs)
		if err != nil {
			return err
		}
		return write(txn, docs)
	})
}

// migrate copies documents:v1 into documents:v2 and removes the legacy
// key in the same transaction. An existing v2 array wins.
func (c *Catalog) migrate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	migrated := 0
	err := c.db.Update(func(txn *badger.Txn) error {
		legacy, err := txn.Get([]byte(legacyKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", legacyKey, err)
		}

		if _, err := txn.Get([]byte(currentKey)); err == nil {
			return txn.Delete([]byte(legacyKey))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read %s: %w", currentKey, err)
		}

		var old []legacyDocument
		err = legacy.Value(func(v []byte) error {
			return json.Unmarshal(v, &old)
		})
		if err != nil {
			return fmt.Errorf("decode %s: %w", legacyKey, err)
		}

		docs := lo.Map(old, func(l legacyDocument, _ int) Document { return l.upgrade() })
		if err := write(txn, docs); err != nil {
			return err
		}
		migrated = len(docs)
		return txn.Delete([]byte(legacyKey))
	})
	if err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}

	if migrated > 0 {
		c.logger.Info("catalog migrated", "from", legacyKey, "to", currentKey, "documents", migrated)
	}
	return nil
}

func read(txn *badger.Txn) ([]Document, error) {
	item, err := txn.Get([]byte(currentKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", currentKey, err)
	}

	var docs []Document
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &docs)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", currentKey, err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

func write(txn *badger.Txn, docs []Document) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	return txn.Set([]byte(currentKey), data)
}
