package http

import (
	"context"
	"net/http"

	"bookkeeper/internal/core"
	"bookkeeper/internal/services"
)

type (
	accountDTO struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Type      string    `json:"type"`
		Note      string    `json:"note,omitempty"`
		Status    string    `json:"status"`
		CreatedAt core.Date `json:"createdAt"`
	}

	accountRequest struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Note string `json:"note"`
	}
)

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{
		ID:        a.ID,
		Name:      a.Name,
		Type:      a.Type,
		Note:      a.Note,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountDTO, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, toAccountDTO(acc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "invalid account id")
		return
	}

	account, err := s.accounts.Get(r.Context(), id, s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	account, err := s.accounts.Create(r.Context(), s.userID(r), services.AccountInput{
		Name: req.Name,
		Type: req.Type,
		Note: req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*account))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "invalid account id")
		return
	}

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	account, err := s.accounts.Update(r.Context(), id, s.userID(r), services.AccountInput{
		Name: req.Name,
		Type: req.Type,
		Note: req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "invalid account id")
		return
	}

	if err := s.accounts.Delete(r.Context(), id, s.userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnableAccount(w http.ResponseWriter, r *http.Request) {
	s.handleSetAccountStatus(w, r, s.accounts.Enable)
}

func (s *Server) handleDisableAccount(w http.ResponseWriter, r *http.Request) {
	s.handleSetAccountStatus(w, r, s.accounts.Disable)
}

func (s *Server) handleSetAccountStatus(w http.ResponseWriter, r *http.Request,
	set func(ctx context.Context, id, userID int64) (*core.Account, error)) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "invalid account id")
		return
	}

	account, err := set(r.Context(), id, s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// handleListAccountDeposits lists one account's deposits for a
// reconciliation date.
func (s *Server) handleListAccountDeposits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "invalid account id")
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeBadRequest(w, "invalid date, want YYYY-MM-DD")
		return
	}
	if date == nil {
		writeBadRequest(w, "date is required")
		return
	}

	deposits, err := s.deposits.ListByAccount(r.Context(), id, s.userID(r), *date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]depositDTO, 0, len(deposits))
	for _, dep := range deposits {
		out = append(out, toDepositDTO(dep))
	}
	writeJSON(w, http.StatusOK, out)
}
