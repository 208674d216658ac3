package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/logger"
	"github.com/fastygo/todo/pkg/mailer"
	"github.com/fastygo/todo/pkg/token"
	"github.com/fastygo/todo/pkg/validation"
	"github.com/fastygo/todo/repository"
)

type Config struct {
	BcryptCost int
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	// ResetURL is the page that receives the reset token as a query parameter.
	ResetURL string
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

type passwordInput struct {
	Password string `json:"new_password" validate:"required,min=8,max=72"`
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	resets   repository.ResetTokenRepository
	tokens   *token.Manager
	mail     mailer.Mailer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func New(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	resets repository.ResetTokenRepository,
	tokens *token.Manager,
	mail mailer.Mailer,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		resets:   resets,
		tokens:   tokens,
		mail:     mail,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.WithRequestID(ctx, uc.logger).Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login checks credentials and opens a refresh session. Unknown emails and wrong passwords
// produce the same error.
func (uc *UseCase) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := uc.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, domain.NewError(domain.ErrCodeForbidden, "account disabled")
	}
	return uc.issue(ctx, user)
}

// Refresh rotates the refresh session and issues a new token pair.
func (uc *UseCase) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	session, err := uc.sessions.Get(ctx, refreshToken)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.now()) {
		_ = uc.sessions.Delete(ctx, refreshToken)
		return nil, domain.ErrUnauthorized
	}

	user, err := uc.users.GetByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrUnauthorized
	}

	if err := uc.sessions.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}
	return uc.issue(ctx, user)
}

func (uc *UseCase) Logout(ctx context.Context, refreshToken string) error {
	return uc.sessions.Delete(ctx, refreshToken)
}

// ForgotPassword mails a reset link when the email is registered. It never reveals whether it is.
func (uc *UseCase) ForgotPassword(ctx context.Context, email string) error {
	log := logger.WithRequestID(ctx, uc.logger)

	user, err := uc.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		log.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	reset := &domain.ResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: uc.now().Add(uc.cfg.ResetTTL),
	}
	if err := uc.resets.Save(ctx, reset); err != nil {
		return err
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Use this link to choose a new password: %s?token=%s\nIt expires in %s.",
			uc.cfg.ResetURL, reset.Token, uc.cfg.ResetTTL),
	}
	if err := uc.mail.Send(ctx, msg); err != nil {
		log.Error("failed to send reset email", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}
	return nil
}

// ResetPassword consumes the token, stores the new password and revokes every session.
func (uc *UseCase) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := validation.Struct(&passwordInput{Password: newPassword}); err != nil {
		return err
	}
	reset, err := uc.resets.Consume(ctx, resetToken)
	if err != nil {
		return err
	}
	if !reset.ExpiresAt.After(uc.now()) {
		return domain.ErrResetTokenNotFound
	}
	user, err := uc.users.GetByID(ctx, reset.UserID)
	if err != nil {
		return err
	}
	return uc.setPassword(ctx, user, newPassword)
}

func (uc *UseCase) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validation.Struct(&passwordInput{Password: newPassword}); err != nil {
		return err
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}
	return uc.setPassword(ctx, user, newPassword)
}

func (uc *UseCase) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cfg.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = uc.now().UTC()
	if err := uc.users.Update(ctx, user); err != nil {
		return err
	}
	if err := uc.sessions.DeleteByUser(ctx, user.ID); err != nil {
		logger.WithRequestID(ctx, uc.logger).Warn("failed to revoke sessions", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (uc *UseCase) issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, accessExp, err := uc.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.cfg.RefreshTTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     session.ID,
		RefreshExpiresAt: session.ExpiresAt,
		TokenType:        "Bearer",
	}, nil
}
