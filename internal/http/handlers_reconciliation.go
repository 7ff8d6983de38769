package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
	"bookkeeper/internal/services"
)

type (
	depositDTO struct {
		ID           int64            `json:"id"`
		AccountID    int64            `json:"accountId"`
		DepositType  string           `json:"depositType"`
		DepositTime  core.Date        `json:"depositTime"`
		Amount       decimal.Decimal  `json:"amount"`
		InterestRate *decimal.Decimal `json:"interestRate,omitempty"`
		Term         *decimal.Decimal `json:"term,omitempty"`
		Note         *string          `json:"note,omitempty"`
	}

	accountGroupDTO struct {
		AccountID   int64        `json:"accountId"`
		AccountName string       `json:"accountName"`
		Deposits    []depositDTO `json:"deposits"`
	}

	snapshotViewDTO struct {
		Date        core.Date         `json:"date"`
		Note        *string           `json:"note,omitempty"`
		TotalAmount decimal.Decimal   `json:"totalAmount"`
		Accounts    []accountGroupDTO `json:"accounts"`
	}

	saveDepositDTO struct {
		ID           int64            `json:"id"`
		DepositType  string           `json:"depositType"`
		DepositTime  core.Date        `json:"depositTime"`
		Amount       decimal.Decimal  `json:"amount"`
		InterestRate *decimal.Decimal `json:"interestRate"`
		Term         *decimal.Decimal `json:"term"`
		Note         *string          `json:"note"`
	}

	saveAccountDTO struct {
		AccountID int64            `json:"accountId"`
		Deposits  []saveDepositDTO `json:"deposits"`
	}

	saveReconciliationRequest struct {
		Date     core.Date        `json:"date"`
		Note     *string          `json:"note"`
		Accounts []saveAccountDTO `json:"accounts"`
	}

	updateNoteRequest struct {
		Date core.Date `json:"date"`
		Note *string   `json:"note"`
	}

	createReconciliationRequest struct {
		Date core.Date `json:"date"`
	}

	dateResponse struct {
		Date *core.Date `json:"date"`
	}

	historyItemDTO struct {
		Date        core.Date `json:"date"`
		RecordCount int64     `json:"recordCount"`
	}
)

func toDepositDTO(d core.Deposit) depositDTO {
	return depositDTO{
		ID:           d.ID,
		AccountID:    d.AccountID,
		DepositType:  d.DepositType,
		DepositTime:  d.DepositTime,
		Amount:       d.Amount,
		InterestRate: d.InterestRate,
		Term:         d.Term,
		Note:         d.Note,
	}
}

func toSnapshotViewDTO(view services.SnapshotView) snapshotViewDTO {
	dto := snapshotViewDTO{
		Date:        view.Date,
		Note:        view.Note,
		TotalAmount: view.TotalAmount,
		Accounts:    []accountGroupDTO{},
	}
	for _, group := range view.Accounts {
		deposits := make([]depositDTO, 0, len(group.Deposits))
		for _, dep := range group.Deposits {
			deposits = append(deposits, toDepositDTO(dep))
		}
		dto.Accounts = append(dto.Accounts, accountGroupDTO{
			AccountID:   group.AccountID,
			AccountName: group.AccountName,
			Deposits:    deposits,
		})
	}
	return dto
}

// handleGetReconciliation serves the reconciliation view for ?date=,
// defaulting to the latest snapshot date.
func (s *Server) handleGetReconciliation(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	date, err := dateParam(r)
	if err != nil {
		writeBadRequest(w, "invalid date, want YYYY-MM-DD")
		return
	}
	if date == nil {
		latest, err := s.reconciliation.LatestDate(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if latest == nil {
			writeJSON(w, http.StatusOK, snapshotViewDTO{Accounts: []accountGroupDTO{}, TotalAmount: decimal.Zero})
			return
		}
		date = latest
	}

	view, err := s.reconciliation.GetData(r.Context(), userID, *date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotViewDTO(view))
}

func (s *Server) handleSaveReconciliation(w http.ResponseWriter, r *http.Request) {
	var req saveReconciliationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Date.IsZero() {
		writeBadRequest(w, "date is required")
		return
	}

	saveReq := services.SaveRequest{Note: req.Note}
	for _, acc := range req.Accounts {
		group := services.AccountDeposits{AccountID: acc.AccountID}
		for _, dep := range acc.Deposits {
			group.Deposits = append(group.Deposits, services.DepositInput{
				ID:           dep.ID,
				DepositType:  dep.DepositType,
				DepositTime:  dep.DepositTime,
				Amount:       dep.Amount,
				InterestRate: dep.InterestRate,
				Term:         dep.Term,
				Note:         dep.Note,
			})
		}
		saveReq.Accounts = append(saveReq.Accounts, group)
	}

	if err := s.reconciliation.Save(r.Context(), s.userID(r), req.Date, saveReq); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Date.IsZero() {
		writeBadRequest(w, "date is required")
		return
	}

	if err := s.reconciliation.UpdateNote(r.Context(), s.userID(r), req.Date, req.Note); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCreateReconciliation(w http.ResponseWriter, r *http.Request) {
	var req createReconciliationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Date.IsZero() {
		writeBadRequest(w, "date is required")
		return
	}

	if err := s.reconciliation.CreateNew(r.Context(), s.userID(r), req.Date); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleSnapshotDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.reconciliation.SnapshotDates(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

func (s *Server) handleLatestDate(w http.ResponseWriter, r *http.Request) {
	date, err := s.reconciliation.LatestDate(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dateResponse{Date: date})
}

func (s *Server) handlePreviousDate(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, r, s.reconciliation.PreviousDate)
}

func (s *Server) handleNextDate(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, r, s.reconciliation.NextDate)
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request,
	step func(ctx context.Context, userID int64, date core.Date) (*core.Date, error)) {
	date, err := dateParam(r)
	if err != nil {
		writeBadRequest(w, "invalid date, want YYYY-MM-DD")
		return
	}
	if date == nil {
		writeBadRequest(w, "date is required")
		return
	}

	result, err := step(r.Context(), s.userID(r), *date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dateResponse{Date: result})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.reconciliation.History(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]historyItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, historyItemDTO{Date: item.Date, RecordCount: item.RecordCount})
	}
	writeJSON(w, http.StatusOK, out)
}
