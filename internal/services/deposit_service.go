package services

import (
	"context"
	"fmt"
	"log/slog"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"

	"github.com/shopspring/decimal"
)

// DepositService mutates individual deposit rows, historical snapshots
// included. Every mutation re-derives and persists the affected
// snapshot's total in the same transaction, keeping the
// total == sum(deposits) invariant.
type DepositService struct {
	store ledger.Store
}

func NewDepositService(store ledger.Store) *DepositService {
	return &DepositService{store: store}
}

type CreateDepositInput struct {
	AccountID          int64
	DepositType        string
	DepositTime        core.Date
	Amount             decimal.Decimal
	InterestRate       *decimal.Decimal
	Term               *decimal.Decimal
	Note               *string
	ReconciliationDate core.Date
}

type UpdateDepositInput struct {
	DepositType  string
	DepositTime  core.Date
	Amount       decimal.Decimal
	InterestRate *decimal.Decimal
	Term         *decimal.Decimal
	Note         *string
}

func (s *DepositService) ListByAccount(ctx context.Context, accountID, userID int64, date core.Date) ([]core.Deposit, error) {
	owned, err := s.store.AccountBelongsToUser(ctx, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("check account ownership: %w", err)
	}
	if !owned {
		return nil, core.ErrAccountNotFound
	}
	return s.store.ListDepositsByAccount(ctx, accountID, date)
}

func (s *DepositService) Create(ctx context.Context, userID int64, input CreateDepositInput) (*core.Deposit, error) {
	owned, err := s.store.AccountBelongsToUser(ctx, input.AccountID, userID)
	if err != nil {
		return nil, fmt.Errorf("check account ownership: %w", err)
	}
	if !owned {
		return nil, core.ErrAccountNotFound
	}

	deposit := core.Deposit{
		UserID:             userID,
		AccountID:          input.AccountID,
		DepositType:        input.DepositType,
		DepositTime:        input.DepositTime,
		Amount:             input.Amount,
		InterestRate:       input.InterestRate,
		Term:               input.Term,
		Note:               input.Note,
		ReconciliationDate: input.ReconciliationDate,
	}
	if err := deposit.Validate(); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx ledger.Store) error {
		if err := tx.UpsertDeposit(ctx, &deposit); err != nil {
			return fmt.Errorf("create deposit: %w", err)
		}
		return refreshSnapshotTotal(ctx, tx, userID, deposit.ReconciliationDate)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Deposit created",
		"user_id", userID, "deposit_id", deposit.ID,
		"account_id", deposit.AccountID, "amount", deposit.Amount.String())
	return &deposit, nil
}

func (s *DepositService) Update(ctx context.Context, id, userID int64, input UpdateDepositInput) (*core.Deposit, error) {
	deposit, err := s.store.FindDepositByID(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("find deposit: %w", err)
	}
	if deposit == nil {
		return nil, core.ErrDepositNotFound
	}

	deposit.DepositType = input.DepositType
	deposit.DepositTime = input.DepositTime
	deposit.Amount = input.Amount
	deposit.InterestRate = input.InterestRate
	deposit.Term = input.Term
	deposit.Note = input.Note
	if err := deposit.Validate(); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx ledger.Store) error {
		if err := tx.UpsertDeposit(ctx, deposit); err != nil {
			return fmt.Errorf("update deposit: %w", err)
		}
		return refreshSnapshotTotal(ctx, tx, userID, deposit.ReconciliationDate)
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

func (s *DepositService) Delete(ctx context.Context, id, userID int64) error {
	deposit, err := s.store.FindDepositByID(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("find deposit: %w", err)
	}
	if deposit == nil {
		return core.ErrDepositNotFound
	}

	return s.store.InTx(ctx, func(tx ledger.Store) error {
		if err := tx.DeleteDeposit(ctx, id, userID); err != nil {
			return fmt.Errorf("delete deposit: %w", err)
		}
		return refreshSnapshotTotal(ctx, tx, userID, deposit.ReconciliationDate)
	})
}

// refreshSnapshotTotal recomputes a date's snapshot total from its
// deposit rows. A date without a snapshot is left alone: orphan deposits
// never materialize one.
func refreshSnapshotTotal(ctx context.Context, store ledger.Store, userID int64, date core.Date) error {
	snapshot, err := store.FindSnapshot(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("find snapshot: %w", err)
	}
	if snapshot == nil {
		return nil
	}

	deposits, err := store.ListDeposits(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("list deposits: %w", err)
	}
	total := decimal.Zero
	for _, dep := range deposits {
		total = total.Add(dep.Amount)
	}

	snapshot.TotalAmount = total
	if err := store.UpsertSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("update snapshot total: %w", err)
	}
	return nil
}
