package services

import (
	"context"
	"fmt"
	"log/slog"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"

	"github.com/shopspring/decimal"
)

// EventPublisher receives reconciliation lifecycle events. Publishing is
// fire-and-forget: a publish failure never fails the business operation.
type EventPublisher interface {
	PublishReconciliationSaved(ctx context.Context, userID int64, date core.Date, total decimal.Decimal) error
	PublishReconciliationCreated(ctx context.Context, userID int64, date core.Date, total decimal.Decimal) error
}

// ReconciliationService owns the snapshot lifecycle. The snapshot table
// alone decides whether a date "has a reconciliation"; deposits filed
// under a date without a snapshot row are orphans and invisible to every
// operation here.
type ReconciliationService struct {
	store  ledger.Store
	events EventPublisher
}

func NewReconciliationService(store ledger.Store, events EventPublisher) *ReconciliationService {
	return &ReconciliationService{store: store, events: events}
}

type (
	// DepositInput is one deposit line of a Save request. A non-zero ID
	// asks for an in-place update, honored only when the ID belongs to
	// the caller and is already filed under the target date.
	DepositInput struct {
		ID           int64
		DepositType  string
		DepositTime  core.Date
		Amount       decimal.Decimal
		InterestRate *decimal.Decimal
		Term         *decimal.Decimal
		Note         *string
	}

	AccountDeposits struct {
		AccountID int64
		Deposits  []DepositInput
	}

	SaveRequest struct {
		Note     *string
		Accounts []AccountDeposits
	}

	AccountGroup struct {
		AccountID   int64
		AccountName string
		Deposits    []core.Deposit
	}

	SnapshotView struct {
		Date        core.Date
		Note        *string
		TotalAmount decimal.Decimal
		Accounts    []AccountGroup
	}

	HistoryItem struct {
		Date        core.Date
		RecordCount int64
	}
)

// GetData returns the reconciliation view for a date. When no snapshot
// exists the view is empty: it never falls back to showing currently
// active accounts with zero deposits.
func (s *ReconciliationService) GetData(ctx context.Context, userID int64, date core.Date) (SnapshotView, error) {
	view := SnapshotView{
		Date:        date,
		TotalAmount: decimal.Zero,
		Accounts:    []AccountGroup{},
	}

	snapshot, err := s.store.FindSnapshot(ctx, userID, date)
	if err != nil {
		return view, fmt.Errorf("find snapshot: %w", err)
	}
	if snapshot == nil {
		slog.DebugContext(ctx, "No snapshot for date, returning empty view",
			"user_id", userID, "date", date.String())
		return view, nil
	}

	view.Note = snapshot.Note
	view.TotalAmount = snapshot.TotalAmount

	deposits, err := s.store.ListDeposits(ctx, userID, date)
	if err != nil {
		return view, fmt.Errorf("list deposits: %w", err)
	}
	if len(deposits) == 0 {
		// Valid empty snapshot: note and total come from the snapshot
		// row, the account list stays empty.
		return view, nil
	}

	byAccount := make(map[int64][]core.Deposit)
	var accountIDs []int64
	for _, dep := range deposits {
		if _, seen := byAccount[dep.AccountID]; !seen {
			accountIDs = append(accountIDs, dep.AccountID)
		}
		byAccount[dep.AccountID] = append(byAccount[dep.AccountID], dep)
	}

	// Resolve names for the accounts in the snapshot, disabled ones
	// included: history keeps showing what was reconciled back then.
	accounts, err := s.store.FindAccountsByIDs(ctx, userID, accountIDs)
	if err != nil {
		return view, fmt.Errorf("find accounts: %w", err)
	}

	for _, acc := range accounts {
		view.Accounts = append(view.Accounts, AccountGroup{
			AccountID:   acc.ID,
			AccountName: acc.Name,
			Deposits:    byAccount[acc.ID],
		})
	}
	return view, nil
}

// Save atomically replaces the deposit set and snapshot for a date. A
// supplied deposit ID is reused only when it belongs to the caller and is
// currently filed under the target date; stale IDs from another date's
// history produce new rows instead.
func (s *ReconciliationService) Save(ctx context.Context, userID int64, date core.Date, req SaveRequest) error {
	for _, accountData := range req.Accounts {
		owned, err := s.store.AccountBelongsToUser(ctx, accountData.AccountID, userID)
		if err != nil {
			return fmt.Errorf("check account ownership: %w", err)
		}
		if !owned {
			return fmt.Errorf("account %d: %w", accountData.AccountID, core.ErrAccountNotOwned)
		}
		for _, input := range accountData.Deposits {
			if !input.Amount.IsPositive() {
				return core.ErrInvalidAmount
			}
		}
	}

	total := decimal.Zero
	err := s.store.InTx(ctx, func(tx ledger.Store) error {
		// Decide which incoming IDs may be updated in place before
		// clearing the date, so the stale-ID guard sees current rows.
		reuse := make(map[int64]bool)
		for _, accountData := range req.Accounts {
			for _, input := range accountData.Deposits {
				if input.ID == 0 {
					continue
				}
				existing, err := tx.FindDepositByID(ctx, input.ID, userID)
				if err != nil {
					return fmt.Errorf("find deposit %d: %w", input.ID, err)
				}
				if existing != nil && existing.ReconciliationDate.Equal(date) {
					reuse[input.ID] = true
				}
			}
		}

		if len(reuse) == 0 {
			if err := tx.DeleteDepositsForDate(ctx, userID, date); err != nil {
				return fmt.Errorf("clear deposits: %w", err)
			}
		} else {
			current, err := tx.ListDeposits(ctx, userID, date)
			if err != nil {
				return fmt.Errorf("list current deposits: %w", err)
			}
			for _, dep := range current {
				if !reuse[dep.ID] {
					if err := tx.DeleteDeposit(ctx, dep.ID, userID); err != nil {
						return fmt.Errorf("delete deposit %d: %w", dep.ID, err)
					}
				}
			}
		}
		if err := tx.DeleteSnapshot(ctx, userID, date); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}

		for _, accountData := range req.Accounts {
			for _, input := range accountData.Deposits {
				deposit := core.Deposit{
					UserID:             userID,
					AccountID:          accountData.AccountID,
					DepositType:        input.DepositType,
					DepositTime:        input.DepositTime,
					Amount:             input.Amount,
					InterestRate:       input.InterestRate,
					Term:               input.Term,
					Note:               input.Note,
					ReconciliationDate: date,
				}
				if reuse[input.ID] {
					deposit.ID = input.ID
				}
				if err := deposit.Validate(); err != nil {
					return err
				}
				if err := tx.UpsertDeposit(ctx, &deposit); err != nil {
					return fmt.Errorf("save deposit: %w", err)
				}
				total = total.Add(deposit.Amount)
			}
		}

		return tx.UpsertSnapshot(ctx, &core.Snapshot{
			UserID:             userID,
			ReconciliationDate: date,
			TotalAmount:        total,
			Note:               req.Note,
		})
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Reconciliation saved",
		"user_id", userID, "date", date.String(), "total_amount", total.String())
	s.publish(ctx, "saved", userID, date, total)
	return nil
}

// UpdateNote changes only the snapshot note; deposits and total stay
// untouched.
func (s *ReconciliationService) UpdateNote(ctx context.Context, userID int64, date core.Date, note *string) error {
	snapshot, err := s.store.FindSnapshot(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("find snapshot: %w", err)
	}
	if snapshot == nil {
		return core.ErrSnapshotNotFound
	}

	snapshot.Note = note
	if err := s.store.UpsertSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("update snapshot note: %w", err)
	}
	return nil
}

// LatestDate returns the newest snapshot date, or nil when the user has
// never reconciled.
func (s *ReconciliationService) LatestDate(ctx context.Context, userID int64) (*core.Date, error) {
	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	date := snapshots[0].ReconciliationDate
	return &date, nil
}

// SnapshotDates lists all snapshot dates, newest first. This list is the
// authoritative input for date navigation.
func (s *ReconciliationService) SnapshotDates(ctx context.Context, userID int64) ([]core.Date, error) {
	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	dates := make([]core.Date, 0, len(snapshots))
	for _, snap := range snapshots {
		dates = append(dates, snap.ReconciliationDate)
	}
	return dates, nil
}

// PreviousDate returns the snapshot date before the given one. A date
// that is itself a snapshot steps to the next-older entry; any other
// date resolves to the nearest snapshot strictly before it.
func (s *ReconciliationService) PreviousDate(ctx context.Context, userID int64, date core.Date) (*core.Date, error) {
	dates, err := s.SnapshotDates(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i, d := range dates {
		if d.Equal(date) {
			if i+1 < len(dates) {
				prev := dates[i+1]
				return &prev, nil
			}
			return nil, nil
		}
	}

	// Not a snapshot date: the list is descending, so the first entry
	// before the given date is the nearest one behind it.
	for _, d := range dates {
		if d.Before(date) {
			prev := d
			return &prev, nil
		}
	}
	return nil, nil
}

// NextDate is the mirror of PreviousDate, using strictly-later
// comparison.
func (s *ReconciliationService) NextDate(ctx context.Context, userID int64, date core.Date) (*core.Date, error) {
	dates, err := s.SnapshotDates(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i, d := range dates {
		if d.Equal(date) {
			if i > 0 {
				next := dates[i-1]
				return &next, nil
			}
			return nil, nil
		}
	}

	// Walk the descending list from the oldest end so the first match
	// is the nearest date strictly after the given one.
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i].After(date) {
			next := dates[i]
			return &next, nil
		}
	}
	return nil, nil
}

// CreateNew carries the ledger forward: it copies every deposit from the
// nearest snapshot before targetDate into a fresh snapshot at targetDate
// with a cleared note. Without any earlier snapshot it creates an empty
// one with total 0.
func (s *ReconciliationService) CreateNew(ctx context.Context, userID int64, targetDate core.Date) error {
	existing, err := s.store.FindSnapshot(ctx, userID, targetDate)
	if err != nil {
		return fmt.Errorf("find snapshot: %w", err)
	}
	if existing != nil {
		return core.ErrSnapshotExists
	}

	dates, err := s.SnapshotDates(ctx, userID)
	if err != nil {
		return err
	}
	var sourceDate *core.Date
	for _, d := range dates {
		if d.Before(targetDate) {
			src := d
			sourceDate = &src
			break
		}
	}

	total := decimal.Zero
	err = s.store.InTx(ctx, func(tx ledger.Store) error {
		if sourceDate != nil {
			deposits, err := tx.ListDeposits(ctx, userID, *sourceDate)
			if err != nil {
				return fmt.Errorf("list source deposits: %w", err)
			}
			for _, src := range deposits {
				copied := src
				copied.ID = 0
				copied.ReconciliationDate = targetDate
				if err := tx.UpsertDeposit(ctx, &copied); err != nil {
					return fmt.Errorf("copy deposit: %w", err)
				}
				total = total.Add(src.Amount)
			}
		}

		return tx.UpsertSnapshot(ctx, &core.Snapshot{
			UserID:             userID,
			ReconciliationDate: targetDate,
			TotalAmount:        total,
			Note:               nil,
		})
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Reconciliation created",
		"user_id", userID, "date", targetDate.String(), "total_amount", total.String())
	s.publish(ctx, "created", userID, targetDate, total)
	return nil
}

// History lists snapshot dates newest first, each with its deposit
// record count.
func (s *ReconciliationService) History(ctx context.Context, userID int64) ([]HistoryItem, error) {
	snapshots, err := s.store.ListSnapshotsDesc(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	items := make([]HistoryItem, 0, len(snapshots))
	for _, snap := range snapshots {
		count, err := s.store.CountDeposits(ctx, userID, snap.ReconciliationDate)
		if err != nil {
			return nil, fmt.Errorf("count deposits: %w", err)
		}
		items = append(items, HistoryItem{Date: snap.ReconciliationDate, RecordCount: count})
	}
	return items, nil
}

func (s *ReconciliationService) publish(ctx context.Context, kind string, userID int64, date core.Date, total decimal.Decimal) {
	if s.events == nil {
		return
	}

	var err error
	switch kind {
	case "saved":
		err = s.events.PublishReconciliationSaved(ctx, userID, date, total)
	case "created":
		err = s.events.PublishReconciliationCreated(ctx, userID, date, total)
	}
	if err != nil {
		// Data is committed; the export pipeline catches up later.
		slog.ErrorContext(ctx, "Failed to publish reconciliation event",
			"error", err, "kind", kind, "user_id", userID, "date", date.String())
	}
}
