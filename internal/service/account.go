package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/auth"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/repository"
)

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

type SignupInput struct {
	Name     string
	Email    string
	MobileNo string
	Password string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// AccountService owns credentials: signup, login and the profile lookups.
type AccountService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	log    *zap.Logger
}

func NewAccountService(users repository.UserRepository, tokens TokenIssuer, log *zap.Logger) *AccountService {
	return &AccountService{users: users, tokens: tokens, log: log}
}

func (s *AccountService) Signup(ctx context.Context, in SignupInput) (models.User, error) {
	return s.create(ctx, in, models.RoleUser)
}

func (s *AccountService) create(ctx context.Context, in SignupInput, role models.Role) (models.User, error) {
	email := normalizeEmail(in.Email)
	exists, err := s.users.ExistsByEmailOrMobile(ctx, email, in.MobileNo)
	if err != nil {
		return models.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return models.User{}, apperrors.New(apperrors.ErrConflict, "user with this email or mobile number already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		MobileNo:     strings.TrimSpace(in.MobileNo),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return models.User{}, err
	}
	return *u, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return LoginResult{}, apperrors.New(apperrors.ErrNotFound, "user not found")
		}
		return LoginResult{}, err
	}

	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return LoginResult{}, apperrors.ErrBadCredentials
	}
	if u.IsBlocked {
		return LoginResult{}, apperrors.New(apperrors.ErrBlocked, "your account is blocked")
	}

	token, exp, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *AccountService) Profile(ctx context.Context, userID string) (models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// EnsureAdmin creates the bootstrap administrator unless the email is already taken.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.FindByEmail(ctx, normalizeEmail(email)); err == nil {
		return nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if name == "" {
		name = "Admin"
	}
	u, err := s.create(ctx, SignupInput{Name: name, Email: email, Password: password}, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin user created", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
