package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/confirm"
	mailer "reviewhub/internal/mail"
	"reviewhub/internal/metrics"
)

// Sender delivers outbound mail; *mail.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type AuthService interface {
	Signup(ctx context.Context, actor access.Actor, req dto.SignupRequest) (*dto.SignupResponse, error)
	ExchangeToken(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	userRepo repository.UserRepository
	codes    *confirm.Issuer
	consumed confirm.ConsumedStore
	sender   Sender
	tokens   *TokenIssuer
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	codes *confirm.Issuer,
	consumed confirm.ConsumedStore,
	sender Sender,
	tokens *TokenIssuer,
	logger *slog.Logger,
) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userRepo: userRepo,
		codes:    codes,
		consumed: consumed,
		sender:   sender,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

// Signup registers (username, email) or, when that exact pair already
// exists, re-sends a fresh code for the existing account.
func (s *authService) Signup(ctx context.Context, actor access.Actor, req dto.SignupRequest) (*dto.SignupResponse, error) {
	if err := authorize(actor, access.Create, access.On(access.Signup)); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if err := validateIdentity(username, email); err != nil {
		return nil, err
	}

	user, err := s.resolveSignup(ctx, username, email)
	if err != nil {
		return nil, err
	}

	code := s.codes.Issue(subjectOf(user))
	if err := s.sender.Send(ctx, mailer.ConfirmationMessage(user.Email, user.Username, code)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	metrics.ConfirmationCodesSent.Inc()
	s.logger.Info("confirmation code sent", "user_id", user.ID, "username", user.Username)

	return &dto.SignupResponse{Username: user.Username, Email: user.Email}, nil
}

func (s *authService) resolveSignup(ctx context.Context, username, email string) (*models.User, error) {
	byName, err := s.lookup(ctx, s.userRepo.FindByUsername, username)
	if err != nil {
		return nil, err
	}
	byEmail, err := s.lookup(ctx, s.userRepo.FindByEmail, email)
	if err != nil {
		return nil, err
	}

	if byName != nil && byEmail != nil && byName.ID == byEmail.ID {
		return byName, nil
	}

	verr := &ValidationError{}
	if byName != nil {
		verr.Add("username", "A user with that username already exists.")
	}
	if byEmail != nil {
		verr.Add("email", "A user with that email already exists.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: email, Role: models.RoleUser}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateUserField(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) lookup(ctx context.Context, find func(context.Context, string) (*models.User, error), key string) (*models.User, error) {
	user, err := find(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// ExchangeToken trades a valid, unexpired, unused code for an access token.
func (s *authService) ExchangeToken(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, notFound("user", "find user", err)
	}

	code := strings.TrimSpace(req.ConfirmationCode)
	if err := s.codes.Verify(subjectOf(user), code); err != nil {
		reason := "invalid"
		msg := "Invalid confirmation code."
		if errors.Is(err, confirm.ErrExpiredCode) {
			reason, msg = "expired", "Confirmation code has expired."
		}
		metrics.CodeRejections.WithLabelValues(reason).Inc()
		return nil, fieldError("confirmation_code", msg)
	}

	key := user.ID + ":" + code
	fresh, err := s.consumed.MarkConsumed(ctx, key, s.codes.TTL())
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if !fresh {
		metrics.CodeRejections.WithLabelValues("used").Inc()
		return nil, fieldError("confirmation_code", "Confirmation code has already been used.")
	}

	now := s.now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		// last_login is unchanged, so the code is still valid once released
		if rerr := s.consumed.Release(ctx, key); rerr != nil {
			s.logger.Warn("failed to release confirmation code", "user_id", user.ID, "error", rerr)
		}
		return nil, notFound("user", "touch last login", err)
	}
	user.LastLogin = &now

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	metrics.TokensIssued.Inc()
	s.logger.Info("access token issued", "user_id", user.ID)

	return &dto.TokenResponse{Token: token}, nil
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	return s.tokens.Validate(tokenString)
}

func subjectOf(user *models.User) confirm.Subject {
	return confirm.Subject{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		LastLogin: user.LastLogin,
	}
}

// validateIdentity checks username and email together so both problems
// are reported at once.
func validateIdentity(username, email string) error {
	verr := &ValidationError{}
	if err := models.ValidateUsername(username); err != nil {
		verr.Add("username", err.Error())
	}
	if err := validateEmail(email); err != nil {
		verr.Add("email", err.Error())
	}
	return verr.OrNil()
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > models.MaxEmailLen {
		return errors.New("email must be at most 254 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("enter a valid email address")
	}
	return nil
}

// duplicateUserField names the colliding field from the violated index.
func duplicateUserField(err error) error {
	switch repository.ConstraintOf(err) {
	case "idx_users_username":
		return fieldError("username", "A user with that username already exists.")
	case "idx_users_email":
		return fieldError("email", "A user with that email already exists.")
	}
	verr := &ValidationError{}
	verr.Add("username", "A user with that username or email already exists.")
	verr.Add("email", "A user with that username or email already exists.")
	return verr
}
