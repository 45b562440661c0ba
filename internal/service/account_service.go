package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

// AccountService handles the administrative account lifecycle and self-service profile edits.
type AccountService struct {
	accounts AccountStore
	auth     *AuthService
	log      zerolog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts AccountStore, auth *AuthService, log zerolog.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		auth:     auth,
		log:      log.With().Str("component", "account_service").Logger(),
	}
}

// ListPending returns accounts awaiting approval in registration order.
func (s *AccountService) ListPending(ctx context.Context, f model.AccountFilter) ([]model.Account, error) {
	return s.accounts.List(ctx, false, f)
}

// ListActive returns approved accounts in registration order.
func (s *AccountService) ListActive(ctx context.Context, f model.AccountFilter) ([]model.Account, error) {
	return s.accounts.List(ctx, true, f)
}

// ListRetired returns retired snapshots, most recently retired first.
func (s *AccountService) ListRetired(ctx context.Context, f model.AccountFilter) ([]model.RetiredAccount, error) {
	return s.accounts.ListRetired(ctx, f)
}

// Approve marks the given pending accounts approved. Ids that are already approved
// are skipped; it fails with ErrNotFound only when none of the ids exist.
func (s *AccountService) Approve(ctx context.Context, ids []uuid.UUID) (int64, error) {
	n, err := s.accounts.Approve(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("approve accounts: %w", err)
	}
	if n == 0 {
		existing, err := s.accounts.CountExisting(ctx, ids)
		if err != nil {
			return 0, fmt.Errorf("count accounts: %w", err)
		}
		if existing == 0 {
			return 0, ErrNotFound
		}
	}

	s.log.Info().Int("requested", len(ids)).Int64("approved", n).Msg("Accounts approved")
	return n, nil
}

// Delete retires each account in its own transaction. Accounts that were retired stay
// retired even when others fail; failures are reported in a *BatchError.
func (s *AccountService) Delete(ctx context.Context, caller uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	deleted := make([]uuid.UUID, 0, len(ids))
	failures := make(map[uuid.UUID]error)

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if id == caller {
			failures[id] = ErrForbidden
			continue
		}

		if _, err := s.accounts.Retire(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				failures[id] = ErrNotFound
			} else {
				s.log.Error().Err(err).Str("account_id", id.String()).Msg("Failed to retire account")
				failures[id] = err
			}
			continue
		}
		deleted = append(deleted, id)
	}

	s.log.Info().Int("deleted", len(deleted)).Int("failed", len(failures)).Msg("Accounts retired")

	if len(failures) > 0 {
		return deleted, &BatchError{Failures: failures}
	}
	return deleted, nil
}

// Restore recreates an account from its retired snapshot under the original id with a
// random password. The administrator hands out a new one with UpdatePassword.
func (s *AccountService) Restore(ctx context.Context, retiredID uuid.UUID) (*model.Account, error) {
	password, err := randomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.Restore(ctx, retiredID, hash)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrRollNumberTaken
		}
		return nil, fmt.Errorf("restore account: %w", err)
	}

	s.log.Info().Str("account_id", account.ID.String()).Msg("Account restored")
	return account, nil
}

// PermanentDelete removes a retired snapshot for good.
func (s *AccountService) PermanentDelete(ctx context.Context, retiredID uuid.UUID) error {
	if err := s.accounts.DeleteRetired(ctx, retiredID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete retired account: %w", err)
	}
	return nil
}

// UpdatePassword resets an account's password on an administrator's behalf.
func (s *AccountService) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info().Str("account_id", id.String()).Msg("Password reset")
	return nil
}

// UpdateProfile applies a self-service patch in one locked transaction. A new token is
// issued when the password or any claim embedded in the token changed.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.UpdateProfileResponse, error) {
	var newHash string
	if req.Password != nil {
		h, err := s.auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		newHash = h
	}

	var before model.Account
	updated, err := s.accounts.UpdateProfile(ctx, id, func(a *model.Account) error {
		before = *a
		if req.Name != nil {
			a.Name = strings.TrimSpace(*req.Name)
		}
		if req.RollNumber != nil {
			a.RollNumber = strings.TrimSpace(*req.RollNumber)
		}
		if req.Department != nil {
			a.Department = strings.TrimSpace(*req.Department)
		}
		if a.Role != model.RoleStaff {
			if req.Section != nil {
				a.Section = strings.TrimSpace(*req.Section)
			}
			if req.Batch != nil {
				a.Batch = strings.TrimSpace(*req.Batch)
				if a.Batch == "" && a.Role == model.RoleStudent {
					return newValidationError("batch", "batch is required for students")
				}
			}
		}
		if newHash != "" {
			a.PasswordHash = newHash
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrRollNumberTaken
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			return nil, ve
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	resp := &model.UpdateProfileResponse{Account: updated}
	if newHash != "" || claimsChanged(&before, updated) {
		token, err := s.auth.GenerateToken(updated)
		if err != nil {
			return nil, err
		}
		resp.Token = token
	}

	s.log.Info().
		Str("account_id", id.String()).
		Bool("token_reissued", resp.Token != "").
		Msg("Profile updated")
	return resp, nil
}

// CreateStaff provisions an approved staff account.
func (s *AccountService) CreateStaff(ctx context.Context, req *model.CreateStaffRequest) (*model.Account, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		RollNumber:   strings.TrimSpace(req.RollNumber),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         model.RoleStaff,
		Department:   strings.TrimSpace(req.Department),
		IsApproved:   true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRollNumberTaken
		}
		return nil, fmt.Errorf("create staff: %w", err)
	}

	s.log.Info().Str("account_id", account.ID.String()).Msg("Staff account created")
	return account, nil
}

func claimsChanged(a, b *model.Account) bool {
	return a.RollNumber != b.RollNumber ||
		a.Name != b.Name ||
		a.Department != b.Department ||
		a.Section != b.Section ||
		a.Batch != b.Batch
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
