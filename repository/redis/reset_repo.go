package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

type resetTokenRepository struct {
	client *redislib.Client
	prefix string
}

// NewResetTokenRepository stores password reset tokens until they expire or are consumed.
func NewResetTokenRepository(client *redislib.Client) repository.ResetTokenRepository {
	return &resetTokenRepository{client: client, prefix: "password_reset:"}
}

func (r *resetTokenRepository) Save(ctx context.Context, token *domain.ResetToken) error {
	if token == nil || token.Token == "" || token.UserID == "" {
		return domain.ErrInvalidPayload
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return domain.NewError(domain.ErrCodeInvalid, "reset token already expired")
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+token.Token, payload, ttl).Err()
}

func (r *resetTokenRepository) Consume(ctx context.Context, token string) (*domain.ResetToken, error) {
	raw, err := r.client.GetDel(ctx, r.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, err
	}
	var out domain.ResetToken
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
