package http

import (
	"net/http"
	"strings"
	"time"

	"bookkeeper/internal/middleware/trace"
	"bookkeeper/internal/services"
)

type Server struct {
	http.Server

	reconciliation *services.ReconciliationService
	statistics     *services.StatisticsService
	deposits       *services.DepositService
	accounts       *services.AccountService

	defaultUserID int64
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, recon *services.ReconciliationService, stats *services.StatisticsService,
	deposits *services.DepositService, accounts *services.AccountService, defaultUserID int64) *Server {

	mux := http.NewServeMux()

	s := &Server{
		reconciliation: recon,
		statistics:     stats,
		deposits:       deposits,
		accounts:       accounts,
		defaultUserID:  defaultUserID,
	}

	mux.HandleFunc("GET /api/reconciliation", s.handleGetReconciliation)
	mux.HandleFunc("POST /api/reconciliation", s.handleSaveReconciliation)
	mux.HandleFunc("PUT /api/reconciliation/note", s.handleUpdateNote)
	mux.HandleFunc("POST /api/reconciliation/new", s.handleCreateReconciliation)
	mux.HandleFunc("GET /api/reconciliation/dates", s.handleSnapshotDates)
	mux.HandleFunc("GET /api/reconciliation/latest-date", s.handleLatestDate)
	mux.HandleFunc("GET /api/reconciliation/previous-date", s.handlePreviousDate)
	mux.HandleFunc("GET /api/reconciliation/next-date", s.handleNextDate)
	mux.HandleFunc("GET /api/reconciliation/history", s.handleHistory)

	mux.HandleFunc("GET /api/statistics/monthly", s.handleMonthlyStatistics)
	mux.HandleFunc("GET /api/statistics/trend", s.handleTrendStatistics)
	mux.HandleFunc("GET /api/statistics/account-trend", s.handleAccountTrendStatistics)
	mux.HandleFunc("GET /api/statistics/yearly", s.handleYearlyStatistics)
	mux.HandleFunc("GET /api/statistics/maturity", s.handleMaturityStatistics)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/enable", s.handleEnableAccount)
	mux.HandleFunc("POST /api/accounts/{id}/disable", s.handleDisableAccount)
	mux.HandleFunc("GET /api/accounts/{id}/deposits", s.handleListAccountDeposits)

	mux.HandleFunc("POST /api/deposits", s.handleCreateDeposit)
	mux.HandleFunc("PUT /api/deposits/{id}", s.handleUpdateDeposit)
	mux.HandleFunc("DELETE /api/deposits/{id}", s.handleDeleteDeposit)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	traceMW := trace.NewMiddleware(extractClientIP)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        traceMW.Middleware(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func extractClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	return r.RemoteAddr
}
