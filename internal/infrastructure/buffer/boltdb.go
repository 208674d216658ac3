package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is a FIFO outbox persisted in BoltDB. Keys sort by enqueue time.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "outbox"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(s.bucket), buildKey(item), item)
	})
}

// Peek returns up to limit of the oldest items without removing them.
func (s *Store) Peek(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			item.key = append([]byte(nil), k...)
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Ack removes delivered or abandoned items in one transaction.
func (s *Store) Ack(items ...Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, item := range items {
			key := item.key
			if len(key) == 0 {
				key = buildKey(item)
			}
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Retry stores the bumped retry counter in place, keeping the item's queue position.
func (s *Store) Retry(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.Retries++
	key := item.key
	if len(key) == 0 {
		key = buildKey(item)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(s.bucket), key, item)
	})
}

// Size returns the number of buffered items.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Prune removes items enqueued before olderThan and returns how many were dropped.
func (s *Store) Prune(olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	dropped := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err == nil && !item.Timestamp.Before(olderThan) {
				// keys are time ordered, nothing after this one is stale
				break
			}
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		dropped = len(stale)
		return nil
	})
	return dropped, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func put(b *bolt.Bucket, key []byte, item Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return b.Put(key, payload)
}

func buildKey(item Item) []byte {
	return []byte(fmt.Sprintf("%020d_%s", item.Timestamp.UnixNano(), item.ID))
}
