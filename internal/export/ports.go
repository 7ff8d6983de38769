package export

import (
	"context"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
)

// SnapshotRow is one exported audit-log line for a saved reconciliation.
type SnapshotRow struct {
	UserID       int64
	Date         core.Date
	TotalAmount  decimal.Decimal
	DepositCount int64
	Note         string
	Kind         string
}

// SnapshotWriter appends reconciliation audit rows to an external sink.
type SnapshotWriter interface {
	Append(ctx context.Context, row SnapshotRow) (rowRef string, err error)
}
