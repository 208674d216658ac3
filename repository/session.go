package repository

import (
	"context"
	"time"

	"github.com/fastygo/todo/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type ResetTokenRepository interface {
	Save(ctx context.Context, token *domain.ResetToken) error
	// Consume returns the token and removes it in one step.
	Consume(ctx context.Context, token string) (*domain.ResetToken, error)
}

// StatisticsCache memoizes per-owner statistics snapshots. Every Invalidate bumps the owner's
// generation; Set stores a snapshot only while the generation read before loading is current.
type StatisticsCache interface {
	Get(ctx context.Context, ownerID string) (*domain.Statistics, bool, error)
	Generation(ctx context.Context, ownerID string) (int64, error)
	Set(ctx context.Context, ownerID string, generation int64, stats *domain.Statistics, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, ownerID string) error
}

type ActivityRepository interface {
	Append(ctx context.Context, activity domain.Activity) error
	Recent(ctx context.Context, ownerID string, limit int) ([]domain.Activity, error)
}
