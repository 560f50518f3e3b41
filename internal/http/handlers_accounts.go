package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
)

type createAccountRequest struct {
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	InitialBalance string           `json:"initialBalance"`
	Color          string           `json:"color"`
	IsActive       *bool            `json:"isActive"`
}

type updateAccountRequest struct {
	Name     *string           `json:"name"`
	Type     *core.AccountType `json:"type"`
	Color    *string           `json:"color"`
	IsActive *bool             `json:"isActive"`
}

// balanceResponse is returned by recompute.
type balanceResponse struct {
	AccountID int64           `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) error {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		return err
	}
	NewJSONResponse().Body(accounts).Write(w)
	return nil
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	acc, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(acc).Write(w)
	return nil
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) error {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	acc := core.Account{
		Name:           strings.TrimSpace(req.Name),
		Type:           req.Type,
		InitialBalance: p.signed("initialBalance", req.InitialBalance),
		Color:          req.Color,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := p.check(acc.Validate); err != nil {
		return err
	}
	created, err := s.ledger.CreateAccount(r.Context(), acc)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
	return nil
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	acc, err := s.ledger.UpdateAccount(r.Context(), id, core.AccountPatch{
		Name:     req.Name,
		Type:     req.Type,
		Color:    req.Color,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	NewJSONResponse().Body(acc).Write(w)
	return nil
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	return nil
}

func (s *Server) handleRecomputeAccount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	balance, err := s.ledger.RecomputeAccount(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(balanceResponse{AccountID: id, Balance: balance}).Write(w)
	return nil
}

func (s *Server) handleAccountHeadroom(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	h, err := s.ledger.Headroom(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(h).Write(w)
	return nil
}

// Categories

type createCategoryRequest struct {
	Name     string            `json:"name"`
	Type     core.CategoryType `json:"type"`
	Color    string            `json:"color"`
	ParentID *int64            `json:"parentId"`
}

type updateCategoryRequest struct {
	Name     *string            `json:"name"`
	Type     *core.CategoryType `json:"type"`
	Color    *string            `json:"color"`
	ParentID optionalID         `json:"parentId"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) error {
	cats, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		return err
	}
	NewJSONResponse().Body(cats).Write(w)
	return nil
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	c, err := s.ledger.GetCategory(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(c).Write(w)
	return nil
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) error {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	created, err := s.ledger.CreateCategory(r.Context(), core.Category{
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Color:    req.Color,
		ParentID: req.ParentID,
	})
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
	return nil
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req updateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	c, err := s.ledger.UpdateCategory(r.Context(), id, core.CategoryPatch{
		Name:        req.Name,
		Type:        req.Type,
		Color:       req.Color,
		ParentID:    req.ParentID.Value,
		ClearParent: req.ParentID.Set && req.ParentID.Value == nil,
	})
	if err != nil {
		return err
	}
	NewJSONResponse().Body(c).Write(w)
	return nil
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteCategory(r.Context(), id); err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	return nil
}
