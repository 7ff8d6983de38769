package services

import (
	"context"
	"errors"
	"testing"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger/memory"
)

func TestDepositCreateRefreshesSnapshotTotal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewDepositService(store)

	acct := seedAccount(t, store, testUser, "工商银行")
	date := core.NewDate(2024, 1, 15)
	seedSnapshot(t, store, testUser, date, "100.00", nil)
	seedDeposit(t, store, testUser, acct, date, "100.00")

	created, err := svc.Create(ctx, testUser, CreateDepositInput{
		AccountID:          acct,
		DepositType:        "活期",
		DepositTime:        date,
		Amount:             dec("50.00"),
		ReconciliationDate: date,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	assertSnapshotTotal(t, store, testUser, date, "150.00")
}

func TestDepositCreateOrphanLeavesNoSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewDepositService(store)

	acct := seedAccount(t, store, testUser, "工商银行")
	date := core.NewDate(2024, 1, 15)

	_, err := svc.Create(ctx, testUser, CreateDepositInput{
		AccountID:          acct,
		DepositType:        "活期",
		DepositTime:        date,
		Amount:             dec("50.00"),
		ReconciliationDate: date,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	snapshot, err := store.FindSnapshot(ctx, testUser, date)
	if err != nil {
		t.Fatalf("find snapshot: %v", err)
	}
	if snapshot != nil {
		t.Errorf("orphan deposit must not materialize a snapshot, got %+v", snapshot)
	}
}

func TestDepositCreateForeignAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewDepositService(store)

	other := seedAccount(t, store, 99, "别人的账户")

	_, err := svc.Create(ctx, testUser, CreateDepositInput{
		AccountID:          other,
		DepositType:        "活期",
		DepositTime:        core.NewDate(2024, 1, 15),
		Amount:             dec("50.00"),
		ReconciliationDate: core.NewDate(2024, 1, 15),
	})
	if !errors.Is(err, core.ErrAccountNotFound) {
		t.Errorf("got %v, want ErrAccountNotFound", err)
	}
}

func TestDepositCreateInvalidAmount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewDepositService(store)

	acct := seedAccount(t, store, testUser, "工商银行")

	_, err := svc.Create(ctx, testUser, CreateDepositInput{
		AccountID:          acct,
		DepositType:        "活期",
		DepositTime:        core.NewDate(2024, 1, 15),
		Amount:             dec("0"),
		ReconciliationDate: core.NewDate(2024, 1, 15),
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("got %v, want ErrInvalidAmount", err)
	}
}

func TestDepositUpdateRefreshesSnapshotTotal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewDepositService(store)

	acct := seedAccount(t, store, testUser, "工商银行")
	date := core.NewDate(2024, 1, 15)
	seedSnapshot(t, store, testUser, date, "150.00", nil)
	depID := seedDeposit(t, store, testUser, acct, date, "100.00")
	seedDeposit(t, store, testUser, acct, date, "50.00")

	updated, err := svc.Update(ctx, depID, testUser, UpdateDepositInput{
		DepositType: "定期",
		DepositTime: date,
		Amount:      dec("200.00"),
		Term:        decPtr("1.0"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Amount.Equal(dec("200.00")) || updated.DepositType != "定期" {
		t.Errorf("updated fields not applied: %+v", updated)
	}
	assertSnapshotTotal(t, store, testUser, date, "250.00")
}

func TestDepositUpdateNotFound(t *testing.T) {
	store := memory.New()
	svc := NewDepositService(store)

	_, err := svc.Update(context.Background(), 404, testUser, UpdateDepositInput{
		DepositType: "活期",
		DepositTime: core.NewDate(2024, 1, 15),
		Amount:      dec("10.00"),
	})
	if !errors.Is(err, core.ErrDepositNotFound) {
		t.Errorf("got %v, want ErrDepositNotFound", err)
	}
}

func TestDepositDeleteRefreshesSnapshotTotal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewDepositService(store)

	acct := seedAccount(t, store, testUser, "工商银行")
	date := core.NewDate(2024, 1, 15)
	seedSnapshot(t, store, testUser, date, "150.00", nil)
	depID := seedDeposit(t, store, testUser, acct, date, "100.00")
	seedDeposit(t, store, testUser, acct, date, "50.00")

	if err := svc.Delete(ctx, depID, testUser); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertSnapshotTotal(t, store, testUser, date, "50.00")

	if err := svc.Delete(ctx, depID, testUser); !errors.Is(err, core.ErrDepositNotFound) {
		t.Errorf("second delete: got %v, want ErrDepositNotFound", err)
	}
}

func TestDepositListByAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewDepositService(store)

	acct := seedAccount(t, store, testUser, "工商银行")
	other := seedAccount(t, store, testUser, "招商银行")
	date := core.NewDate(2024, 1, 15)
	seedDeposit(t, store, testUser, acct, date, "100.00")
	seedDeposit(t, store, testUser, other, date, "50.00")
	seedDeposit(t, store, testUser, acct, core.NewDate(2024, 2, 15), "100.00")

	deposits, err := svc.ListByAccount(ctx, acct, testUser, date)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(deposits) != 1 {
		t.Fatalf("got %d deposits, want 1", len(deposits))
	}
	if deposits[0].AccountID != acct {
		t.Errorf("wrong account: %d", deposits[0].AccountID)
	}

	foreign := seedAccount(t, store, 99, "别人的账户")
	if _, err := svc.ListByAccount(ctx, foreign, testUser, date); !errors.Is(err, core.ErrAccountNotFound) {
		t.Errorf("foreign account: got %v, want ErrAccountNotFound", err)
	}
}
