package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"bookkeeper/internal/ledger/memory"
	"bookkeeper/internal/services"
)

func newTestServer() *Server {
	store := memory.New()
	return NewServer(":0",
		services.NewReconciliationService(store, nil),
		services.NewStatisticsService(store),
		services.NewDepositService(store),
		services.NewAccountService(store),
		1)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv.Handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReconciliationRoundTrip(t *testing.T) {
	srv := newTestServer()

	// No data yet: empty view.
	rec := doJSON(t, srv.Handler, http.MethodGet, "/api/reconciliation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty get status = %d, want 200", rec.Code)
	}
	var empty snapshotViewDTO
	decodeBody(t, rec, &empty)
	if len(empty.Accounts) != 0 || !empty.TotalAmount.IsZero() {
		t.Errorf("expected empty view, got %+v", empty)
	}

	// Create an account.
	rec = doJSON(t, srv.Handler, http.MethodPost, "/api/accounts",
		map[string]string{"name": "工商银行", "type": "bank"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var account accountDTO
	decodeBody(t, rec, &account)

	// Save a reconciliation.
	saveBody := map[string]any{
		"date": "2024-01-15",
		"note": "january",
		"accounts": []map[string]any{{
			"accountId": account.ID,
			"deposits": []map[string]any{{
				"depositType": "活期",
				"depositTime": "2024-01-15",
				"amount":      "100000.00",
			}},
		}},
	}
	rec = doJSON(t, srv.Handler, http.MethodPost, "/api/reconciliation", saveBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200: %s", rec.Code, rec.Body)
	}

	// Read it back.
	rec = doJSON(t, srv.Handler, http.MethodGet, "/api/reconciliation?date=2024-01-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	var view snapshotViewDTO
	decodeBody(t, rec, &view)
	if view.TotalAmount.String() != "100000" {
		t.Errorf("total = %s, want 100000", view.TotalAmount)
	}
	if len(view.Accounts) != 1 || view.Accounts[0].AccountName != "工商银行" {
		t.Errorf("accounts: %+v", view.Accounts)
	}
	if view.Note == nil || *view.Note != "january" {
		t.Errorf("note: %v", view.Note)
	}

	// Default date resolves to the latest snapshot.
	rec = doJSON(t, srv.Handler, http.MethodGet, "/api/reconciliation", nil)
	decodeBody(t, rec, &view)
	if view.Date.String() != "2024-01-15" {
		t.Errorf("default date = %s, want 2024-01-15", view.Date)
	}
}

func TestReconciliationErrorMapping(t *testing.T) {
	srv := newTestServer()

	// Note update on a date without a snapshot is 404.
	rec := doJSON(t, srv.Handler, http.MethodPut, "/api/reconciliation/note",
		map[string]any{"date": "2024-01-15", "note": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("note on missing snapshot: status = %d, want 404", rec.Code)
	}

	// Creating twice on the same date is 409.
	body := map[string]any{"date": "2024-01-15"}
	rec = doJSON(t, srv.Handler, http.MethodPost, "/api/reconciliation/new", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: status = %d, want 201: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, srv.Handler, http.MethodPost, "/api/reconciliation/new", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("second create: status = %d, want 409", rec.Code)
	}

	// Malformed date is 400.
	rec = doJSON(t, srv.Handler, http.MethodGet, "/api/reconciliation?date=15-01-2024", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestSaveRejectsForeignAccountOverHTTP(t *testing.T) {
	srv := newTestServer()

	// Account created by user 2.
	req := httptest.NewRequest(http.MethodPost, "/api/accounts",
		strings.NewReader(`{"name":"别人的账户","type":"bank"}`))
	req.Header.Set("X-User-ID", "2")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: status = %d: %s", rec.Code, rec.Body)
	}
	var account accountDTO
	decodeBody(t, rec, &account)

	// Default user (1) tries to reconcile against it: 403.
	saveBody := map[string]any{
		"date": "2024-01-15",
		"accounts": []map[string]any{{
			"accountId": account.ID,
			"deposits": []map[string]any{{
				"depositType": "活期",
				"depositTime": "2024-01-15",
				"amount":      "10.00",
			}},
		}},
	}
	rec2 := doJSON(t, srv.Handler, http.MethodPost, "/api/reconciliation", saveBody)
	if rec2.Code != http.StatusForbidden {
		t.Errorf("foreign save: status = %d, want 403: %s", rec2.Code, rec2.Body)
	}
}

func TestAccountLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer()

	rec := doJSON(t, srv.Handler, http.MethodPost, "/api/accounts",
		map[string]string{"name": "招商银行", "type": "bank"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", rec.Code, rec.Body)
	}
	var account accountDTO
	decodeBody(t, rec, &account)

	// Duplicate name is 409.
	rec = doJSON(t, srv.Handler, http.MethodPost, "/api/accounts",
		map[string]string{"name": "招商银行", "type": "bank"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", rec.Code)
	}

	// Blank name is 422.
	rec = doJSON(t, srv.Handler, http.MethodPost, "/api/accounts",
		map[string]string{"name": "  ", "type": "bank"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name: status = %d, want 422", rec.Code)
	}

	// Disable then list shows DISABLED.
	rec = doJSON(t, srv.Handler, http.MethodPost,
		"/api/accounts/"+itoa(account.ID)+"/disable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("disable: status = %d: %s", rec.Code, rec.Body)
	}
	var disabled accountDTO
	decodeBody(t, rec, &disabled)
	if disabled.Status != "DISABLED" {
		t.Errorf("status: %s, want DISABLED", disabled.Status)
	}

	// Unreferenced account deletes outright.
	rec = doJSON(t, srv.Handler, http.MethodDelete, "/api/accounts/"+itoa(account.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", rec.Code)
	}
	rec = doJSON(t, srv.Handler, http.MethodGet, "/api/accounts/"+itoa(account.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestMonthlyStatisticsValidation(t *testing.T) {
	srv := newTestServer()

	rec := doJSON(t, srv.Handler, http.MethodGet, "/api/statistics/monthly?month=2024-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv.Handler, http.MethodGet, "/api/statistics/monthly?month=2024-01", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("valid month: status = %d, want 200", rec.Code)
	}
	var stats monthlyStatisticsDTO
	decodeBody(t, rec, &stats)
	if stats.Month != "2024-01" || len(stats.Distribution) != 0 {
		t.Errorf("empty stats: %+v", stats)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
