package amqp

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
)

func TestNewReconciliationEvent(t *testing.T) {
	date := core.NewDate(2024, 1, 15)
	total := decimal.RequireFromString("100000.00")

	event := NewReconciliationEvent(EventReconciliationSaved, 1, date, total)

	if event.Kind != EventReconciliationSaved {
		t.Errorf("Kind = %v, want %v", event.Kind, EventReconciliationSaved)
	}
	if event.UserID != 1 {
		t.Errorf("UserID = %v, want 1", event.UserID)
	}
	if !event.ReconciliationDate.Equal(date) {
		t.Errorf("ReconciliationDate = %v, want %v", event.ReconciliationDate, date)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestReconciliationEvent_JSON(t *testing.T) {
	event := &ReconciliationEvent{
		Kind:               EventReconciliationCreated,
		UserID:             7,
		ReconciliationDate: core.NewDate(2024, 3, 10),
		TotalAmount:        decimal.RequireFromString("123.45"),
		Timestamp:          time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ReconciliationEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ReconciliationEventFromJSON() error = %v", err)
	}

	if parsed.Kind != event.Kind {
		t.Errorf("Parsed Kind = %v, want %v", parsed.Kind, event.Kind)
	}
	if parsed.UserID != event.UserID {
		t.Errorf("Parsed UserID = %v, want %v", parsed.UserID, event.UserID)
	}
	if !parsed.ReconciliationDate.Equal(event.ReconciliationDate) {
		t.Errorf("Parsed ReconciliationDate = %v, want %v", parsed.ReconciliationDate, event.ReconciliationDate)
	}
	if !parsed.TotalAmount.Equal(event.TotalAmount) {
		t.Errorf("Parsed TotalAmount = %v, want %v", parsed.TotalAmount, event.TotalAmount)
	}
	if !parsed.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, event.Timestamp)
	}
}

func TestReconciliationEvent_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"userId": "not_a_number"}`)

	_, err := ReconciliationEventFromJSON(invalidJSON)
	if err == nil {
		t.Error("ReconciliationEventFromJSON() should fail with invalid JSON")
	}
}
