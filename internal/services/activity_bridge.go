package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/buffer"
	"github.com/fastygo/todo/usecase"
)

// ActivityBridge turns task activity into outbox items for the relay.
type ActivityBridge struct {
	relay *ActivityRelay
}

func NewActivityBridge(relay *ActivityRelay) *ActivityBridge {
	return &ActivityBridge{relay: relay}
}

func (b *ActivityBridge) Record(ctx context.Context, activity domain.Activity) error {
	if b == nil || b.relay == nil || activity.OwnerID == "" {
		return domain.ErrInvalidPayload
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	payload, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return b.relay.Submit(ctx, buffer.Item{
		ID:        activity.ID,
		OwnerID:   activity.OwnerID,
		Kind:      buffer.KindActivity,
		Data:      payload,
		Timestamp: activity.OccurredAt,
	})
}

var _ usecase.ActivityRecorder = (*ActivityBridge)(nil)
