package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
)

// ReconciliationEvent is the lightweight message published when a
// snapshot is saved or created. The export worker fetches the full
// snapshot from the database, so the body carries only the identity
// and the total for logging.
type ReconciliationEvent struct {
	Kind               string          `json:"kind"`
	UserID             int64           `json:"userId"`
	ReconciliationDate core.Date       `json:"reconciliationDate"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	Timestamp          time.Time       `json:"timestamp"`
}

const (
	EventReconciliationSaved   = "reconciliation.saved"
	EventReconciliationCreated = "reconciliation.created"
)

func NewReconciliationEvent(kind string, userID int64, date core.Date, total decimal.Decimal) *ReconciliationEvent {
	return &ReconciliationEvent{
		Kind:               kind,
		UserID:             userID,
		ReconciliationDate: date,
		TotalAmount:        total,
		Timestamp:          time.Now(),
	}
}

func (m *ReconciliationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReconciliationEventFromJSON(data []byte) (*ReconciliationEvent, error) {
	var msg ReconciliationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
