package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
	"github.com/fathima-sithara/chat-app/internal/repository"
)

type ImportResult struct {
	Imported int `json:"importedCount"`
	Skipped  int `json:"skippedCount"`
}

// DirectoryService is the admin view of the user roster.
type DirectoryService struct {
	users    repository.UserRepository
	accounts *AccountService
	log      *zap.Logger
}

func NewDirectoryService(users repository.UserRepository, accounts *AccountService, log *zap.Logger) *DirectoryService {
	return &DirectoryService{users: users, accounts: accounts, log: log}
}

func (s *DirectoryService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *DirectoryService) Add(ctx context.Context, in SignupInput) (models.User, error) {
	return s.accounts.create(ctx, in, models.RoleUser)
}

func (s *DirectoryService) Update(ctx context.Context, id string, upd models.UserUpdate) (models.User, error) {
	if upd.Email != nil {
		e := normalizeEmail(*upd.Email)
		if e == "" {
			return models.User{}, apperrors.New(apperrors.ErrValidation, "email cannot be empty")
		}
		upd.Email = &e
	}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		upd.Name = &n
	}
	if upd.MobileNo != nil {
		m := strings.TrimSpace(*upd.MobileNo)
		upd.MobileNo = &m
	}
	return s.users.Update(ctx, id, upd)
}

func (s *DirectoryService) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// ToggleBlock flips the blocked flag and returns the user with its new state.
func (s *DirectoryService) ToggleBlock(ctx context.Context, id string) (models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return s.users.SetBlocked(ctx, id, !u.IsBlocked)
}

func (s *DirectoryService) Export(ctx context.Context) ([]byte, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return writeUsersXLSX(users)
}

// Import creates a user per complete row. Incomplete rows and rows whose email
// or mobile number already exists are skipped and counted.
func (s *DirectoryService) Import(ctx context.Context, filename string, r io.Reader) (ImportResult, error) {
	rows, err := readUserRows(filename, r)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for _, row := range rows {
		if !row.complete() {
			res.Skipped++
			continue
		}
		_, err := s.accounts.create(ctx, SignupInput(row), models.RoleUser)
		switch {
		case err == nil:
			res.Imported++
		case apperrors.HTTPStatus(err) < 500:
			res.Skipped++
		default:
			return res, fmt.Errorf("import row %s: %w", row.Email, err)
		}
	}
	s.log.Info("user import finished",
		zap.String("file", filename), zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))
	return res, nil
}
