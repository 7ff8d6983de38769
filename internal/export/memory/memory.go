package memory

import (
	"context"
	"fmt"
	"sync"

	"bookkeeper/internal/export"
)

// Writer collects audit rows in memory. Used in tests and when no
// spreadsheet is configured.
type Writer struct {
	mu   sync.Mutex
	rows []export.SnapshotRow
}

func New() *Writer {
	return &Writer{}
}

func (w *Writer) Append(_ context.Context, row export.SnapshotRow) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, row)
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []export.SnapshotRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]export.SnapshotRow(nil), w.rows...)
}
