package services

import (
	"context"
	"testing"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger/memory"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string {
	return &s
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func seedAccount(t *testing.T, store *memory.Store, userID int64, name string) int64 {
	t.Helper()
	account := core.Account{
		UserID:    userID,
		Name:      name,
		Type:      "bank",
		Status:    core.AccountActive,
		CreatedAt: core.NewDate(2023, 1, 1),
	}
	if err := store.UpsertAccount(context.Background(), &account); err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	return account.ID
}

func seedSnapshot(t *testing.T, store *memory.Store, userID int64, date core.Date, total string, note *string) {
	t.Helper()
	err := store.UpsertSnapshot(context.Background(), &core.Snapshot{
		UserID:             userID,
		ReconciliationDate: date,
		TotalAmount:        dec(total),
		Note:               note,
	})
	if err != nil {
		t.Fatalf("seed snapshot %s: %v", date, err)
	}
}

func seedDeposit(t *testing.T, store *memory.Store, userID, accountID int64, date core.Date, amount string) int64 {
	t.Helper()
	deposit := core.Deposit{
		UserID:             userID,
		AccountID:          accountID,
		DepositType:        "活期",
		DepositTime:        date,
		Amount:             dec(amount),
		ReconciliationDate: date,
	}
	if err := store.UpsertDeposit(context.Background(), &deposit); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	return deposit.ID
}

// assertSnapshotTotal checks the maintained invariant: the snapshot
// total equals the sum of the date's deposit amounts.
func assertSnapshotTotal(t *testing.T, store *memory.Store, userID int64, date core.Date, want string) {
	t.Helper()
	ctx := context.Background()

	snapshot, err := store.FindSnapshot(ctx, userID, date)
	if err != nil {
		t.Fatalf("find snapshot: %v", err)
	}
	if snapshot == nil {
		t.Fatalf("expected snapshot at %s", date)
	}
	if !snapshot.TotalAmount.Equal(dec(want)) {
		t.Fatalf("snapshot total at %s: got %s, want %s", date, snapshot.TotalAmount, want)
	}

	deposits, err := store.ListDeposits(ctx, userID, date)
	if err != nil {
		t.Fatalf("list deposits: %v", err)
	}
	sum := decimal.Zero
	for _, dep := range deposits {
		sum = sum.Add(dep.Amount)
	}
	if !sum.Equal(snapshot.TotalAmount) {
		t.Fatalf("invariant broken at %s: snapshot total %s, deposit sum %s", date, snapshot.TotalAmount, sum)
	}
}
