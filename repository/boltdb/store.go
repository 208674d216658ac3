// Package boltdb keeps tasks and users in an embedded BoltDB file.
// Tasks live in one nested bucket per owner, so every read is owner-scoped by construction.
package boltdb

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketTasks       = []byte("tasks")
	bucketUsers       = []byte("users")
	bucketUserByEmail = []byte("users_by_email")
)

// Store owns the Bolt file shared by the repositories of this package.
type Store struct {
	db *bolt.DB
}

// Open creates the file and top-level buckets when missing.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTasks, bucketUsers, bucketUserByEmail} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Ping reports whether the file is still open.
func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
