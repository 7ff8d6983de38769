package export

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/amqp"
	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger/memory"
)

type captureWriter struct {
	rows []SnapshotRow
}

func (w *captureWriter) Append(_ context.Context, row SnapshotRow) (string, error) {
	w.rows = append(w.rows, row)
	return "mem:1", nil
}

func TestExporterHandle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &captureWriter{}
	exporter := NewExporter(store, writer)

	date := core.NewDate(2024, 1, 15)
	note := "year start"
	err := store.UpsertSnapshot(ctx, &core.Snapshot{
		UserID:             1,
		ReconciliationDate: date,
		TotalAmount:        decimal.RequireFromString("100000.00"),
		Note:               &note,
	})
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	account := core.Account{UserID: 1, Name: "工商银行", Type: "bank", Status: core.AccountActive, CreatedAt: date}
	if err := store.UpsertAccount(ctx, &account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	deposit := core.Deposit{
		UserID: 1, AccountID: account.ID, DepositType: "活期",
		DepositTime: date, Amount: decimal.RequireFromString("100000.00"),
		ReconciliationDate: date,
	}
	if err := store.UpsertDeposit(ctx, &deposit); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	event := amqp.NewReconciliationEvent(amqp.EventReconciliationSaved, 1, date, decimal.RequireFromString("100000.00"))
	if err := exporter.Handle(ctx, event); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(writer.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(writer.rows))
	}
	row := writer.rows[0]
	if row.UserID != 1 || !row.Date.Equal(date) {
		t.Errorf("row identity: %+v", row)
	}
	if !row.TotalAmount.Equal(decimal.RequireFromString("100000.00")) {
		t.Errorf("row total: %s", row.TotalAmount)
	}
	if row.DepositCount != 1 {
		t.Errorf("deposit count: %d", row.DepositCount)
	}
	if row.Note != "year start" {
		t.Errorf("note: %q", row.Note)
	}
}

func TestExporterHandleSnapshotGone(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &captureWriter{}
	exporter := NewExporter(store, writer)

	event := amqp.NewReconciliationEvent(amqp.EventReconciliationSaved, 1,
		core.NewDate(2024, 1, 15), decimal.Zero)
	if err := exporter.Handle(ctx, event); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(writer.rows) != 0 {
		t.Errorf("no rows expected for a missing snapshot, got %d", len(writer.rows))
	}
}
