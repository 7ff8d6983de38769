package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"bookkeeper/internal/core"
	"bookkeeper/internal/services"
)

type (
	createDepositRequest struct {
		AccountID          int64            `json:"accountId"`
		DepositType        string           `json:"depositType"`
		DepositTime        core.Date        `json:"depositTime"`
		Amount             decimal.Decimal  `json:"amount"`
		InterestRate       *decimal.Decimal `json:"interestRate"`
		Term               *decimal.Decimal `json:"term"`
		Note               *string          `json:"note"`
		ReconciliationDate core.Date        `json:"reconciliationDate"`
	}

	updateDepositRequest struct {
		DepositType  string           `json:"depositType"`
		DepositTime  core.Date        `json:"depositTime"`
		Amount       decimal.Decimal  `json:"amount"`
		InterestRate *decimal.Decimal `json:"interestRate"`
		Term         *decimal.Decimal `json:"term"`
		Note         *string          `json:"note"`
	}
)

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	deposit, err := s.deposits.Create(r.Context(), s.userID(r), services.CreateDepositInput{
		AccountID:          req.AccountID,
		DepositType:        req.DepositType,
		DepositTime:        req.DepositTime,
		Amount:             req.Amount,
		InterestRate:       req.InterestRate,
		Term:               req.Term,
		Note:               req.Note,
		ReconciliationDate: req.ReconciliationDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepositDTO(*deposit))
}

func (s *Server) handleUpdateDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "invalid deposit id")
		return
	}

	var req updateDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	deposit, err := s.deposits.Update(r.Context(), id, s.userID(r), services.UpdateDepositInput{
		DepositType:  req.DepositType,
		DepositTime:  req.DepositTime,
		Amount:       req.Amount,
		InterestRate: req.InterestRate,
		Term:         req.Term,
		Note:         req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositDTO(*deposit))
}

func (s *Server) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "invalid deposit id")
		return
	}

	if err := s.deposits.Delete(r.Context(), id, s.userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
