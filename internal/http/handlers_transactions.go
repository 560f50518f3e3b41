package http

import (
	"net/http"
	"strings"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type createTransactionRequest struct {
	Description string               `json:"description"`
	Amount      string               `json:"amount"`
	Type        core.TransactionType `json:"type"`
	Date        core.Date            `json:"date"`
	AccountID   int64                `json:"accountId"`
	CategoryID  *int64               `json:"categoryId"`
	Notes       string               `json:"notes"`
}

type updateTransactionRequest struct {
	Description *string               `json:"description"`
	Amount      *string               `json:"amount"`
	Type        *core.TransactionType `json:"type"`
	Date        *core.Date            `json:"date"`
	AccountID   *int64                `json:"accountId"`
	CategoryID  optionalID            `json:"categoryId"`
	Notes       *string               `json:"notes"`
}

// transactionFilter builds a listing filter from ?accountId, ?categoryId,
// ?type, ?from and ?to.
func transactionFilter(r *http.Request) (storage.TransactionFilter, error) {
	q := r.URL.Query()
	var (
		f    storage.TransactionFilter
		verr core.ValidationError
		err  error
	)
	if f.AccountID, err = queryID(q, "accountId"); err != nil {
		verr.Merge(err)
	}
	if f.CategoryID, err = queryID(q, "categoryId"); err != nil {
		verr.Merge(err)
	}
	if t := core.TransactionType(strings.TrimSpace(q.Get("type"))); t != "" {
		if !t.IsValid() {
			verr.Add("type", "must be one of income, expense, transfer")
		}
		f.Type = t
	}
	for _, key := range []string{"from", "to"} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			verr.Add(key, "must be a date in YYYY-MM-DD format")
			continue
		}
		if key == "from" {
			f.From = d
		} else {
			f.To = d
		}
	}
	return f, verr.OrNil()
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) error {
	f, err := transactionFilter(r)
	if err != nil {
		return err
	}
	txs, err := s.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(txs).Write(w)
	return nil
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	t, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(t).Write(w)
	return nil
}

// handleCreateTransaction records a transaction. A missing date means today.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) error {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(s.now())
	}
	var p moneyParser
	t := core.Transaction{
		Description: strings.TrimSpace(req.Description),
		Type:        req.Type,
		Date:        req.Date,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Notes:       req.Notes,
	}
	if strings.TrimSpace(req.Amount) == "" {
		p.verr.Add("amount", "is required")
	} else {
		t.Amount = p.amount("amount", req.Amount, t.Amount)
	}
	if err := p.check(t.Validate); err != nil {
		return err
	}
	created, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
	return nil
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req updateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	patch := core.TransactionPatch{
		Description:   req.Description,
		Amount:        p.optional("amount", req.Amount),
		Type:          req.Type,
		Date:          req.Date,
		AccountID:     req.AccountID,
		CategoryID:    req.CategoryID.Value,
		ClearCategory: req.CategoryID.Set && req.CategoryID.Value == nil,
		Notes:         req.Notes,
	}
	if err := p.check(nil); err != nil {
		return err
	}
	t, err := s.ledger.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(t).Write(w)
	return nil
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	return nil
}

// Holdings

type createHoldingRequest struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Shares        string    `json:"shares"`
	PurchasePrice string    `json:"purchasePrice"`
	CurrentPrice  string    `json:"currentPrice"`
	AccountID     int64     `json:"accountId"`
	PurchaseDate  core.Date `json:"purchaseDate"`
	Notes         string    `json:"notes"`
}

type updateHoldingRequest struct {
	Symbol        *string    `json:"symbol"`
	Name          *string    `json:"name"`
	Shares        *string    `json:"shares"`
	PurchasePrice *string    `json:"purchasePrice"`
	CurrentPrice  *string    `json:"currentPrice"`
	AccountID     *int64     `json:"accountId"`
	PurchaseDate  *core.Date `json:"purchaseDate"`
	Notes         *string    `json:"notes"`
}

type priceRequest struct {
	CurrentPrice string `json:"currentPrice"`
}

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) error {
	accountID, err := queryID(r.URL.Query(), "accountId")
	if err != nil {
		return err
	}
	holdings, err := s.ledger.ListHoldings(r.Context(), accountID)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(holdings).Write(w)
	return nil
}

func (s *Server) handleGetHolding(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	h, err := s.ledger.GetHolding(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(h).Write(w)
	return nil
}

// handleCreateHolding records a position. The current price defaults to the purchase price.
func (s *Server) handleCreateHolding(w http.ResponseWriter, r *http.Request) error {
	var req createHoldingRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	h := core.Holding{
		Symbol:       req.Symbol,
		Name:         strings.TrimSpace(req.Name),
		AccountID:    req.AccountID,
		PurchaseDate: req.PurchaseDate,
		Notes:        req.Notes,
	}
	h.Shares = p.amount("shares", req.Shares, h.Shares)
	h.PurchasePrice = p.amount("purchasePrice", req.PurchasePrice, h.PurchasePrice)
	h.CurrentPrice = p.amount("currentPrice", req.CurrentPrice, h.PurchasePrice)
	if err := p.check(h.Validate); err != nil {
		return err
	}
	created, err := s.ledger.CreateHolding(r.Context(), h)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
	return nil
}

func (s *Server) handleUpdateHolding(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req updateHoldingRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	patch := core.HoldingPatch{
		Symbol:        req.Symbol,
		Name:          req.Name,
		Shares:        p.optional("shares", req.Shares),
		PurchasePrice: p.optional("purchasePrice", req.PurchasePrice),
		CurrentPrice:  p.optional("currentPrice", req.CurrentPrice),
		AccountID:     req.AccountID,
		PurchaseDate:  req.PurchaseDate,
		Notes:         req.Notes,
	}
	if err := p.check(nil); err != nil {
		return err
	}
	h, err := s.ledger.UpdateHolding(r.Context(), id, patch)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(h).Write(w)
	return nil
}

func (s *Server) handleUpdateHoldingPrice(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req priceRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	price := p.optional("currentPrice", &req.CurrentPrice)
	if err := p.check(nil); err != nil {
		return err
	}
	h, err := s.ledger.UpdateHoldingPrice(r.Context(), id, *price)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(h).Write(w)
	return nil
}

func (s *Server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteHolding(r.Context(), id); err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	return nil
}
