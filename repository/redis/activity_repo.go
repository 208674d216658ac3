package redis

import (
	"context"
	"encoding/json"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

const activityField = "payload"

type activityRepository struct {
	client *redislib.Client
	prefix string
	maxLen int64
}

// NewActivityRepository keeps each owner's activity feed in a capped Redis stream.
func NewActivityRepository(client *redislib.Client, maxLen int64) repository.ActivityRepository {
	if maxLen <= 0 {
		maxLen = 500
	}
	return &activityRepository{client: client, prefix: "activity:", maxLen: maxLen}
}

func (r *activityRepository) Append(ctx context.Context, activity domain.Activity) error {
	if activity.OwnerID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return r.client.XAdd(ctx, &redislib.XAddArgs{
		Stream: r.prefix + activity.OwnerID,
		MaxLen: r.maxLen,
		Values: map[string]interface{}{activityField: string(payload)},
	}).Err()
}

// Recent returns the newest entries first.
func (r *activityRepository) Recent(ctx context.Context, ownerID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	messages, err := r.client.XRevRangeN(ctx, r.prefix+ownerID, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, err
	}

	activities := make([]domain.Activity, 0, len(messages))
	for _, msg := range messages {
		raw, ok := msg.Values[activityField].(string)
		if !ok {
			continue
		}
		var activity domain.Activity
		if err := json.Unmarshal([]byte(raw), &activity); err != nil {
			continue
		}
		activities = append(activities, activity)
	}
	return activities, nil
}
