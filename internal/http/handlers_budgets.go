package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type createBudgetRequest struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Amount         string      `json:"amount"`
	Period         core.Period `json:"period"`
	AccountID      *int64      `json:"accountId"`
	CategoryID     *int64      `json:"categoryId"`
	IsActive       *bool       `json:"isActive"`
	AlertThreshold *string     `json:"alertThreshold"`
}

type updateBudgetRequest struct {
	Name           *string      `json:"name"`
	Description    *string      `json:"description"`
	Amount         *string      `json:"amount"`
	Period         *core.Period `json:"period"`
	AccountID      optionalID   `json:"accountId"`
	CategoryID     optionalID   `json:"categoryId"`
	IsActive       *bool        `json:"isActive"`
	AlertThreshold *string      `json:"alertThreshold"`
}

type spendingResponse struct {
	BudgetID int64           `json:"budgetId"`
	Spent    decimal.Decimal `json:"spent"`
}

// handleListBudgets lists budgets, optionally scoped by ?accountId and ?categoryId.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	var (
		f    storage.BudgetFilter
		verr core.ValidationError
		err  error
	)
	if f.AccountID, err = queryID(q, "accountId"); err != nil {
		verr.Merge(err)
	}
	if f.CategoryID, err = queryID(q, "categoryId"); err != nil {
		verr.Merge(err)
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), f)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(budgets).Write(w)
	return nil
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	b, err := s.ledger.GetBudget(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(b).Write(w)
	return nil
}

// handleCreateBudget stores a budget. It is active by default and alerts at
// the default threshold unless one is given.
func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) error {
	var req createBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	b := core.Budget{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Amount:         p.amount("amount", req.Amount, decimal.Zero),
		Period:         req.Period,
		AccountID:      req.AccountID,
		CategoryID:     req.CategoryID,
		IsActive:       req.IsActive == nil || *req.IsActive,
		AlertThreshold: core.DefaultAlertThreshold,
	}
	if t := p.fraction("alertThreshold", req.AlertThreshold); t != nil {
		b.AlertThreshold = *t
	}
	if err := p.check(b.Validate); err != nil {
		return err
	}
	created, err := s.ledger.CreateBudget(r.Context(), b)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
	return nil
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req updateBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	patch := core.BudgetPatch{
		Name:           req.Name,
		Description:    req.Description,
		Amount:         p.optional("amount", req.Amount),
		Period:         req.Period,
		AccountID:      req.AccountID.Value,
		ClearAccount:   req.AccountID.Set && req.AccountID.Value == nil,
		CategoryID:     req.CategoryID.Value,
		ClearCategory:  req.CategoryID.Set && req.CategoryID.Value == nil,
		IsActive:       req.IsActive,
		AlertThreshold: p.fraction("alertThreshold", req.AlertThreshold),
	}
	if err := p.check(nil); err != nil {
		return err
	}
	b, err := s.ledger.UpdateBudget(r.Context(), id, patch)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(b).Write(w)
	return nil
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteBudget(r.Context(), id); err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	return nil
}

// handleBudgetSpending reports spending in the current window. An unknown budget spends zero.
func (s *Server) handleBudgetSpending(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	spent, err := s.ledger.BudgetSpending(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(spendingResponse{BudgetID: id, Spent: spent}).Write(w)
	return nil
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	status, err := s.ledger.BudgetStatus(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(status).Write(w)
	return nil
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) error {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		return err
	}
	overview, err := s.ledger.Overview(r.Context(), params.Year, params.Month)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(overview).Write(w)
	return nil
}
