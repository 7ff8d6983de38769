// Package ledger defines the store contract the engines run against.
// Implementations live in internal/storage (SQLite) and
// internal/ledger/memory (in-memory, used by tests and the dev backend).
package ledger

import (
	"context"

	"bookkeeper/internal/core"
)

// Store exposes the persistence primitives. Lookups that can miss return
// (nil, nil) rather than an error; "absent" is a normal answer for the
// date-navigation logic built on top.
type Store interface {
	// InTx runs fn against a transaction-scoped store and commits if fn
	// returns nil. Nested InTx calls run in the enclosing transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	FindSnapshot(ctx context.Context, userID int64, date core.Date) (*core.Snapshot, error)
	// ListSnapshotsDesc returns all snapshots for the user ordered by
	// reconciliation date descending. This ordering is the authoritative
	// input for every navigation decision.
	ListSnapshotsDesc(ctx context.Context, userID int64) ([]core.Snapshot, error)
	UpsertSnapshot(ctx context.Context, snapshot *core.Snapshot) error
	DeleteSnapshot(ctx context.Context, userID int64, date core.Date) error

	ListDeposits(ctx context.Context, userID int64, date core.Date) ([]core.Deposit, error)
	ListDepositsByAccount(ctx context.Context, accountID int64, date core.Date) ([]core.Deposit, error)
	CountDeposits(ctx context.Context, userID int64, date core.Date) (int64, error)
	UpsertDeposit(ctx context.Context, deposit *core.Deposit) error
	DeleteDeposit(ctx context.Context, id, userID int64) error
	DeleteDepositsForDate(ctx context.Context, userID int64, date core.Date) error
	FindDepositByID(ctx context.Context, id, userID int64) (*core.Deposit, error)

	ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
	FindAccount(ctx context.Context, id, userID int64) (*core.Account, error)
	FindAccountsByIDs(ctx context.Context, userID int64, ids []int64) ([]core.Account, error)
	AccountBelongsToUser(ctx context.Context, accountID, userID int64) (bool, error)
	AccountNameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error)
	AccountHasDeposits(ctx context.Context, accountID int64) (bool, error)
	UpsertAccount(ctx context.Context, account *core.Account) error
	DeleteAccount(ctx context.Context, id, userID int64) error
}
