package profile

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/validation"
	"github.com/fastygo/todo/repository"
)

type UpdateInput struct {
	Name string `json:"name" validate:"max=100"`
}

type UseCase struct {
	users  repository.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

func (uc *UseCase) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = in.Name
	user.UpdatedAt = uc.now().UTC()
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.Debug("profile updated", zap.String("user_id", userID))
	return user, nil
}
