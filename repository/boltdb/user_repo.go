package boltdb

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// userRecord is the stored form; domain.User hides the password hash from JSON.
type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toRecord(u *domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Email:        domain.NormalizeEmail(u.Email),
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toUser() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type userRepository struct {
	store *Store
}

// NewUserRepository returns a Bolt-backed UserRepository with a unique email index.
func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var user *domain.User
	err := r.store.db.View(func(tx *bolt.Tx) error {
		var err error
		user, err = getUser(tx, id)
		return err
	})
	return user, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var user *domain.User
	err := r.store.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketUserByEmail).Get([]byte(domain.NormalizeEmail(email)))
		if id == nil {
			return domain.ErrUserNotFound
		}
		var err error
		user, err = getUser(tx, string(id))
		return err
	})
	return user, err
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	record := toRecord(user)
	return r.store.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketUserByEmail)
		if index.Get([]byte(record.Email)) != nil {
			return domain.ErrEmailTaken
		}
		if err := putUser(tx, record); err != nil {
			return err
		}
		return index.Put([]byte(record.Email), []byte(record.ID))
	})
}

// Update rewrites mutable profile fields. The email is fixed at registration.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.db.Update(func(tx *bolt.Tx) error {
		current, err := getUser(tx, user.ID)
		if err != nil {
			return err
		}
		record := toRecord(user)
		record.Email = current.Email
		record.CreatedAt = current.CreatedAt
		return putUser(tx, record)
	})
}

func getUser(tx *bolt.Tx, id string) (*domain.User, error) {
	raw := tx.Bucket(bucketUsers).Get([]byte(id))
	if raw == nil {
		return nil, domain.ErrUserNotFound
	}
	var record userRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return record.toUser(), nil
}

func putUser(tx *bolt.Tx, record userRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketUsers).Put([]byte(record.ID), payload)
}
