package usecase

import (
	"context"

	"github.com/fastygo/todo/domain"
)

// ActivityRecorder abstracts the outbox so use cases stay storage-agnostic.
type ActivityRecorder interface {
	Record(ctx context.Context, activity domain.Activity) error
}
