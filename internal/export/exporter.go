package export

import (
	"context"
	"fmt"
	"log/slog"

	"bookkeeper/internal/amqp"
	"bookkeeper/internal/ledger"
)

// Exporter resolves a reconciliation event against the database and
// appends one audit row per event. The event body is only a pointer;
// the snapshot row is re-read so the export always reflects committed
// state.
type Exporter struct {
	store  ledger.Store
	writer SnapshotWriter
}

func NewExporter(store ledger.Store, writer SnapshotWriter) *Exporter {
	return &Exporter{store: store, writer: writer}
}

func (e *Exporter) Handle(ctx context.Context, event *amqp.ReconciliationEvent) error {
	snapshot, err := e.store.FindSnapshot(ctx, event.UserID, event.ReconciliationDate)
	if err != nil {
		return fmt.Errorf("find snapshot: %w", err)
	}
	if snapshot == nil {
		// Deleted between publish and consume. Nothing to export.
		slog.WarnContext(ctx, "Snapshot gone before export",
			"user_id", event.UserID, "date", event.ReconciliationDate.String())
		return nil
	}

	count, err := e.store.CountDeposits(ctx, event.UserID, event.ReconciliationDate)
	if err != nil {
		return fmt.Errorf("count deposits: %w", err)
	}

	note := ""
	if snapshot.Note != nil {
		note = *snapshot.Note
	}

	ref, err := e.writer.Append(ctx, SnapshotRow{
		UserID:       event.UserID,
		Date:         snapshot.ReconciliationDate,
		TotalAmount:  snapshot.TotalAmount,
		DepositCount: count,
		Note:         note,
		Kind:         event.Kind,
	})
	if err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}

	slog.InfoContext(ctx, "Exported reconciliation",
		"user_id", event.UserID,
		"date", snapshot.ReconciliationDate.String(),
		"row_ref", ref)
	return nil
}
