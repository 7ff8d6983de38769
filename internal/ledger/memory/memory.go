// Package memory provides an in-memory ledger.Store. It backs the dev
// backend and the service tests; the production store is SQLite.
package memory

import (
	"context"
	"sort"
	"sync"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"
)

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	snapshots map[int64]core.Snapshot
	deposits  map[int64]core.Deposit
	accounts  map[int64]core.Account

	nextSnapshotID int64
	nextDepositID  int64
	nextAccountID  int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		snapshots:      make(map[int64]core.Snapshot),
		deposits:       make(map[int64]core.Deposit),
		accounts:       make(map[int64]core.Account),
		nextSnapshotID: 1,
		nextDepositID:  1,
		nextAccountID:  1,
	}
}

// InTx serializes transactions against each other. The memory store does
// not roll back on error; engine code validates before its first write,
// so a failed transaction has not mutated anything.
func (s *Store) InTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(txStore{s})
}

// txStore runs inside an InTx callback; nested InTx calls join the
// enclosing transaction instead of re-locking.
type txStore struct {
	*Store
}

func (t txStore) InTx(ctx context.Context, fn func(ledger.Store) error) error {
	return fn(t)
}

func (s *Store) FindSnapshot(ctx context.Context, userID int64, date core.Date) (*core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range s.snapshots {
		if snap.UserID == userID && snap.ReconciliationDate.Equal(date) {
			out := cloneSnapshot(snap)
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListSnapshotsDesc(ctx context.Context, userID int64) ([]core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Snapshot
	for _, snap := range s.snapshots {
		if snap.UserID == userID {
			out = append(out, cloneSnapshot(snap))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReconciliationDate.After(out[j].ReconciliationDate)
	})
	return out, nil
}

func (s *Store) UpsertSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.ID == 0 {
		// One snapshot per (user, date): a dateless insert replaces any
		// existing row for that date.
		for id, existing := range s.snapshots {
			if existing.UserID == snapshot.UserID && existing.ReconciliationDate.Equal(snapshot.ReconciliationDate) {
				snapshot.ID = id
				break
			}
		}
	}
	if snapshot.ID == 0 {
		snapshot.ID = s.nextSnapshotID
		s.nextSnapshotID++
	}
	s.snapshots[snapshot.ID] = cloneSnapshot(*snapshot)
	return nil
}

func (s *Store) DeleteSnapshot(ctx context.Context, userID int64, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, snap := range s.snapshots {
		if snap.UserID == userID && snap.ReconciliationDate.Equal(date) {
			delete(s.snapshots, id)
		}
	}
	return nil
}

func (s *Store) ListDeposits(ctx context.Context, userID int64, date core.Date) ([]core.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Deposit
	for _, dep := range s.deposits {
		if dep.UserID == userID && dep.ReconciliationDate.Equal(date) {
			out = append(out, cloneDeposit(dep))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDepositsByAccount(ctx context.Context, accountID int64, date core.Date) ([]core.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Deposit
	for _, dep := range s.deposits {
		if dep.AccountID == accountID && dep.ReconciliationDate.Equal(date) {
			out = append(out, cloneDeposit(dep))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CountDeposits(ctx context.Context, userID int64, date core.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, dep := range s.deposits {
		if dep.UserID == userID && dep.ReconciliationDate.Equal(date) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertDeposit(ctx context.Context, deposit *core.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deposit.ID == 0 {
		deposit.ID = s.nextDepositID
		s.nextDepositID++
	}
	s.deposits[deposit.ID] = cloneDeposit(*deposit)
	return nil
}

func (s *Store) DeleteDeposit(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dep, ok := s.deposits[id]; ok && dep.UserID == userID {
		delete(s.deposits, id)
	}
	return nil
}

func (s *Store) DeleteDepositsForDate(ctx context.Context, userID int64, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, dep := range s.deposits {
		if dep.UserID == userID && dep.ReconciliationDate.Equal(date) {
			delete(s.deposits, id)
		}
	}
	return nil
}

func (s *Store) FindDepositByID(ctx context.Context, id, userID int64) (*core.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dep, ok := s.deposits[id]; ok && dep.UserID == userID {
		out := cloneDeposit(dep)
		return &out, nil
	}
	return nil, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Account
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindAccount(ctx context.Context, id, userID int64) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc, ok := s.accounts[id]; ok && acc.UserID == userID {
		out := acc
		return &out, nil
	}
	return nil, nil
}

func (s *Store) FindAccountsByIDs(ctx context.Context, userID int64, ids []int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []core.Account
	for _, acc := range s.accounts {
		if acc.UserID == userID && wanted[acc.ID] {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AccountBelongsToUser(ctx context.Context, accountID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	return ok && acc.UserID == userID, nil
}

func (s *Store) AccountNameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if acc.UserID == userID && acc.Name == name && acc.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AccountHasDeposits(ctx context.Context, accountID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dep := range s.deposits {
		if dep.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpsertAccount(ctx context.Context, account *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == 0 {
		account.ID = s.nextAccountID
		s.nextAccountID++
	}
	s.accounts[account.ID] = *account
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc, ok := s.accounts[id]; ok && acc.UserID == userID {
		delete(s.accounts, id)
	}
	return nil
}

func cloneSnapshot(s core.Snapshot) core.Snapshot {
	out := s
	if s.Note != nil {
		note := *s.Note
		out.Note = &note
	}
	return out
}

func cloneDeposit(d core.Deposit) core.Deposit {
	out := d
	if d.InterestRate != nil {
		rate := *d.InterestRate
		out.InterestRate = &rate
	}
	if d.Term != nil {
		term := *d.Term
		out.Term = &term
	}
	if d.Note != nil {
		note := *d.Note
		out.Note = &note
	}
	return out
}
