package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"
)

// AccountService owns account CRUD. Deletion is soft once any deposit
// references the account, so historical reconciliations keep resolving
// its name.
type AccountService struct {
	store ledger.Store
	now   func() time.Time
}

func NewAccountService(store ledger.Store) *AccountService {
	return &AccountService{store: store, now: time.Now}
}

type AccountInput struct {
	Name string
	Type string
	Note string
}

// List returns the user's accounts, active ones first, newest first
// within each status.
func (s *AccountService) List(ctx context.Context, userID int64) ([]core.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		if (a.Status == core.AccountActive) != (b.Status == core.AccountActive) {
			return a.Status == core.AccountActive
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return accounts, nil
}

func (s *AccountService) Get(ctx context.Context, id, userID int64) (*core.Account, error) {
	account, err := s.store.FindAccount(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return nil, core.ErrAccountNotFound
	}
	return account, nil
}

func (s *AccountService) Create(ctx context.Context, userID int64, input AccountInput) (*core.Account, error) {
	account := core.Account{
		UserID:    userID,
		Name:      input.Name,
		Type:      input.Type,
		Note:      input.Note,
		Status:    core.AccountActive,
		CreatedAt: core.DateOf(s.now()),
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.store.AccountNameExists(ctx, userID, input.Name, 0)
	if err != nil {
		return nil, fmt.Errorf("check account name: %w", err)
	}
	if taken {
		return nil, core.ErrAccountNameTaken
	}

	if err := s.store.UpsertAccount(ctx, &account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &account, nil
}

func (s *AccountService) Update(ctx context.Context, id, userID int64, input AccountInput) (*core.Account, error) {
	account, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	taken, err := s.store.AccountNameExists(ctx, userID, input.Name, id)
	if err != nil {
		return nil, fmt.Errorf("check account name: %w", err)
	}
	if taken {
		return nil, core.ErrAccountNameTaken
	}

	account.Name = input.Name
	account.Type = input.Type
	account.Note = input.Note
	if err := account.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// Delete disables the account when deposits reference it and hard
// deletes it otherwise.
func (s *AccountService) Delete(ctx context.Context, id, userID int64) error {
	account, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	referenced, err := s.store.AccountHasDeposits(ctx, id)
	if err != nil {
		return fmt.Errorf("check account deposits: %w", err)
	}
	if referenced {
		account.Status = core.AccountDisabled
		if err := s.store.UpsertAccount(ctx, account); err != nil {
			return fmt.Errorf("disable account: %w", err)
		}
		return nil
	}

	if err := s.store.DeleteAccount(ctx, id, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *AccountService) Enable(ctx context.Context, id, userID int64) (*core.Account, error) {
	return s.setStatus(ctx, id, userID, core.AccountActive)
}

func (s *AccountService) Disable(ctx context.Context, id, userID int64) (*core.Account, error) {
	return s.setStatus(ctx, id, userID, core.AccountDisabled)
}

func (s *AccountService) setStatus(ctx context.Context, id, userID int64, status core.AccountStatus) (*core.Account, error) {
	account, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	account.Status = status
	if err := s.store.UpsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("update account status: %w", err)
	}
	return account, nil
}
