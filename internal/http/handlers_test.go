package http

import (
	"fmt"
	"net/http"
	"testing"
)

func createAccount(t *testing.T, srv *Server, name, typ, initial string) int64 {
	t.Helper()
	rr, body := do(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": name, "type": typ, "initialBalance": initial,
	})
	mustStatus(t, rr, http.StatusCreated)
	return id(body)
}

func TestTransactionsDriveAccountBalance(t *testing.T) {
	srv := newTestServer(t, Options{})
	accID := createAccount(t, srv, "Checking", "checking", "1000.00")

	rr, body := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"description": "Groceries", "amount": "200.00", "type": "expense",
		"date": "2025-03-10", "accountId": accID,
	})
	mustStatus(t, rr, http.StatusCreated)
	txID := id(body)

	_, acc := do(t, srv, http.MethodGet, fmt.Sprintf("/api/accounts/%d", accID), nil)
	assertMoney(t, acc, "balance", "800")
	assertMoney(t, acc, "initialBalance", "1000")

	rr, _ = do(t, srv, http.MethodPatch, fmt.Sprintf("/api/transactions/%d", txID), map[string]any{"amount": "150"})
	mustStatus(t, rr, http.StatusOK)
	_, acc = do(t, srv, http.MethodGet, fmt.Sprintf("/api/accounts/%d", accID), nil)
	assertMoney(t, acc, "balance", "850")

	rr, _ = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", txID), nil)
	mustStatus(t, rr, http.StatusNoContent)
	_, acc = do(t, srv, http.MethodGet, fmt.Sprintf("/api/accounts/%d", accID), nil)
	assertMoney(t, acc, "balance", "1000")

	rr, body = do(t, srv, http.MethodPost, fmt.Sprintf("/api/accounts/%d/recompute", accID), nil)
	mustStatus(t, rr, http.StatusOK)
	assertMoney(t, body, "balance", "1000")
}

func TestCreateTransactionDefaultsDateToToday(t *testing.T) {
	srv := newTestServer(t, Options{})
	accID := createAccount(t, srv, "Checking", "checking", "")

	rr, body := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"description": "Salary", "amount": "10", "type": "income", "accountId": accID,
	})
	mustStatus(t, rr, http.StatusCreated)
	if body["date"] != "2025-03-12" {
		t.Errorf("date = %v, want 2025-03-12", body["date"])
	}
}

func TestValidationErrorMapping(t *testing.T) {
	srv := newTestServer(t, Options{})
	accID := createAccount(t, srv, "Checking", "checking", "0")

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
		wantFields []string
	}{
		{
			name:       "bad amount and missing description",
			path:       "/api/transactions",
			body:       map[string]any{"amount": "12.3.4", "type": "expense", "date": "2025-03-01", "accountId": accID},
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"amount", "description"},
		},
		{
			name:       "negative amount",
			path:       "/api/transactions",
			body:       map[string]any{"description": "x", "amount": "-5", "type": "expense", "date": "2025-03-01", "accountId": accID},
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"amount"},
		},
		{
			name:       "missing account type",
			path:       "/api/accounts",
			body:       map[string]any{"name": "Broken"},
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"type"},
		},
		{
			name:       "threshold above one",
			path:       "/api/budgets",
			body:       map[string]any{"name": "Food", "amount": "100", "period": "monthly", "alertThreshold": "1.5"},
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"alertThreshold"},
		},
		{
			name:       "unknown field",
			path:       "/api/accounts",
			body:       map[string]any{"name": "X", "type": "checking", "balance": "100"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed JSON",
			path:       "/api/accounts",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty body",
			path:       "/api/goals",
			body:       "",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, srv, http.MethodPost, tt.path, tt.body)
			mustStatus(t, rr, tt.wantStatus)
			fields, _ := body["fields"].(map[string]any)
			for _, f := range tt.wantFields {
				if _, ok := fields[f]; !ok {
					t.Errorf("fields = %v, missing %q", fields, f)
				}
			}
		})
	}
}

func TestNotFoundMapping(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{
		"/api/accounts/99",
		"/api/categories/99",
		"/api/transactions/99",
		"/api/holdings/99",
		"/api/goals/99",
		"/api/goal-allocations/99",
		"/api/budgets/99",
		"/api/budgets/99/status",
		"/api/goals/99/allocations",
	} {
		t.Run(path, func(t *testing.T) {
			rr, body := do(t, srv, http.MethodGet, path, nil)
			mustStatus(t, rr, http.StatusNotFound)
			if body["type"] != "not_found_error" {
				t.Errorf("type = %v", body["type"])
			}
		})
	}

	rr, body := do(t, srv, http.MethodGet, "/api/budgets/99/spending", nil)
	mustStatus(t, rr, http.StatusOK)
	assertMoney(t, body, "spent", "0")
}

func TestAllocationCapacityConflict(t *testing.T) {
	srv := newTestServer(t, Options{})
	accID := createAccount(t, srv, "Savings", "savings", "1000")

	rr, goal := do(t, srv, http.MethodPost, "/api/goals", map[string]any{
		"name": "Holiday", "targetAmount": "2000", "accountId": accID, "deadline": "2025-12-31",
	})
	mustStatus(t, rr, http.StatusCreated)
	goalID := id(goal)

	rr, alloc := do(t, srv, http.MethodPost, "/api/goal-allocations", map[string]any{"goalId": goalID, "amount": "600"})
	mustStatus(t, rr, http.StatusCreated)
	if alloc["date"] != "2025-03-12" {
		t.Errorf("allocation date = %v, want today", alloc["date"])
	}

	rr, body := do(t, srv, http.MethodPost, "/api/goal-allocations", map[string]any{"goalId": goalID, "amount": "500"})
	mustStatus(t, rr, http.StatusConflict)
	if body["available"] != "400.00" || body["requested"] != "500.00" {
		t.Errorf("conflict body = %v", body)
	}
	if body["type"] != "capacity_exceeded" {
		t.Errorf("type = %v", body["type"])
	}

	rr, _ = do(t, srv, http.MethodPost, "/api/goal-allocations", map[string]any{"goalId": goalID, "amount": "400"})
	mustStatus(t, rr, http.StatusCreated)

	_, current := do(t, srv, http.MethodGet, fmt.Sprintf("/api/goals/%d/current-amount", goalID), nil)
	assertMoney(t, current, "currentAmount", "1000")

	_, headroom := do(t, srv, http.MethodGet, fmt.Sprintf("/api/accounts/%d/headroom", accID), nil)
	assertMoney(t, headroom, "available", "0")

	rr, body = do(t, srv, http.MethodPatch, fmt.Sprintf("/api/goal-allocations/%d", id(alloc)), map[string]any{"amount": "601"})
	mustStatus(t, rr, http.StatusConflict)
	if body["available"] != "600.00" {
		t.Errorf("update excludes its own amount; available = %v", body["available"])
	}

	_, progress := do(t, srv, http.MethodGet, fmt.Sprintf("/api/goals/%d/progress", goalID), nil)
	assertMoney(t, progress, "ratio", "0.5")

	rr, _ = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/goals/%d", goalID), nil)
	mustStatus(t, rr, http.StatusNoContent)
	rr, _ = do(t, srv, http.MethodGet, fmt.Sprintf("/api/goal-allocations/%d", id(alloc)), nil)
	mustStatus(t, rr, http.StatusNotFound)
}

func TestPatchDistinguishesNullFromAbsent(t *testing.T) {
	srv := newTestServer(t, Options{})
	_, parent := do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Food", "type": "expense"})
	rr, child := do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Groceries", "type": "expense", "parentId": id(parent)})
	mustStatus(t, rr, http.StatusCreated)
	path := fmt.Sprintf("/api/categories/%d", id(child))

	rr, body := do(t, srv, http.MethodPatch, path, map[string]any{"color": "#000000"})
	mustStatus(t, rr, http.StatusOK)
	if body["parentId"] == nil {
		t.Fatalf("absent parentId must keep the parent: %v", body)
	}

	rr, body = do(t, srv, http.MethodPatch, path, `{"parentId": null}`)
	mustStatus(t, rr, http.StatusOK)
	if body["parentId"] != nil {
		t.Errorf("null parentId must clear the parent: %v", body)
	}

	rr, _ = do(t, srv, http.MethodPatch, fmt.Sprintf("/api/categories/%d", id(parent)), map[string]any{"parentId": id(parent)})
	mustStatus(t, rr, http.StatusUnprocessableEntity)
}

func TestHoldingsAndPriceUpdate(t *testing.T) {
	srv := newTestServer(t, Options{})
	accID := createAccount(t, srv, "Broker", "investment", "0")

	rr, h := do(t, srv, http.MethodPost, "/api/holdings", map[string]any{
		"symbol": "vwce", "name": "FTSE All-World", "shares": "10", "purchasePrice": "100.00",
		"accountId": accID, "purchaseDate": "2025-01-02",
	})
	mustStatus(t, rr, http.StatusCreated)
	if h["symbol"] != "VWCE" {
		t.Errorf("symbol = %v, want VWCE", h["symbol"])
	}
	assertMoney(t, h, "currentPrice", "100")

	_, acc := do(t, srv, http.MethodGet, fmt.Sprintf("/api/accounts/%d", accID), nil)
	assertMoney(t, acc, "balance", "1000")

	rr, _ = do(t, srv, http.MethodPut, fmt.Sprintf("/api/holdings/%d/price", id(h)), map[string]any{"currentPrice": "112.5"})
	mustStatus(t, rr, http.StatusOK)
	_, acc = do(t, srv, http.MethodGet, fmt.Sprintf("/api/accounts/%d", accID), nil)
	assertMoney(t, acc, "balance", "1125")

	rr, _ = do(t, srv, http.MethodPut, fmt.Sprintf("/api/holdings/%d/price", id(h)), map[string]any{"currentPrice": "abc"})
	mustStatus(t, rr, http.StatusUnprocessableEntity)
}

func TestBudgetStatusAndOverview(t *testing.T) {
	srv := newTestServer(t, Options{})
	accID := createAccount(t, srv, "Checking", "checking", "500")
	_, cat := do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Food", "type": "expense"})

	rr, budget := do(t, srv, http.MethodPost, "/api/budgets", map[string]any{
		"name": "Food", "amount": "100", "period": "monthly", "categoryId": id(cat),
	})
	mustStatus(t, rr, http.StatusCreated)
	assertMoney(t, budget, "alertThreshold", "0.8")
	if budget["isActive"] != true {
		t.Errorf("budgets are active by default: %v", budget)
	}

	for _, amt := range []string{"50", "35"} {
		rr, _ := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
			"description": "Market", "amount": amt, "type": "expense", "date": "2025-03-05",
			"accountId": accID, "categoryId": id(cat),
		})
		mustStatus(t, rr, http.StatusCreated)
	}

	_, spending := do(t, srv, http.MethodGet, fmt.Sprintf("/api/budgets/%d/spending", id(budget)), nil)
	assertMoney(t, spending, "spent", "85")

	_, status := do(t, srv, http.MethodGet, fmt.Sprintf("/api/budgets/%d/status", id(budget)), nil)
	if status["state"] != "near_limit" {
		t.Errorf("state = %v, want near_limit", status["state"])
	}
	if status["start"] != "2025-03-01" || status["end"] != "2025-03-12" {
		t.Errorf("window = %v..%v", status["start"], status["end"])
	}

	rr, overview := do(t, srv, http.MethodGet, "/api/overview?year=2025&month=3", nil)
	mustStatus(t, rr, http.StatusOK)
	assertMoney(t, overview, "expenses", "85")
	assertMoney(t, overview, "totalBalance", "415")

	rr, _ = do(t, srv, http.MethodGet, "/api/overview", nil)
	mustStatus(t, rr, http.StatusOK)

	rr, body := do(t, srv, http.MethodGet, "/api/overview?month=13", nil)
	mustStatus(t, rr, http.StatusUnprocessableEntity)
	if fields, _ := body["fields"].(map[string]any); fields["month"] == nil {
		t.Errorf("expected month field error: %v", body)
	}

	rr, _ = do(t, srv, http.MethodPatch, fmt.Sprintf("/api/budgets/%d", id(budget)), `{"categoryId": null}`)
	mustStatus(t, rr, http.StatusOK)
	_, spending = do(t, srv, http.MethodGet, fmt.Sprintf("/api/budgets/%d/spending", id(budget)), nil)
	assertMoney(t, spending, "spent", "85")
}

func TestTransactionListFilters(t *testing.T) {
	srv := newTestServer(t, Options{})
	a := createAccount(t, srv, "A", "checking", "0")
	b := createAccount(t, srv, "B", "checking", "0")
	for _, acc := range []int64{a, a, b} {
		rr, _ := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
			"description": "t", "amount": "1", "type": "income", "date": "2025-03-01", "accountId": acc,
		})
		mustStatus(t, rr, http.StatusCreated)
	}

	rr := httptestGet(t, srv, fmt.Sprintf("/api/transactions?accountId=%d", a))
	if n := countItems(t, rr); n != 2 {
		t.Errorf("accountId filter returned %d, want 2", n)
	}
	rr = httptestGet(t, srv, "/api/transactions")
	if n := countItems(t, rr); n != 3 {
		t.Errorf("unfiltered list returned %d, want 3", n)
	}

	resp, _ := do(t, srv, http.MethodGet, "/api/transactions?accountId=x&from=yesterday", nil)
	mustStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestBudgetListFilters(t *testing.T) {
	srv := newTestServer(t, Options{})
	a := createAccount(t, srv, "A", "checking", "0")
	b := createAccount(t, srv, "B", "checking", "0")
	rr, cat := do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Food", "type": "expense"})
	mustStatus(t, rr, http.StatusCreated)

	for _, body := range []map[string]any{
		{"name": "A food", "amount": "100", "period": "monthly", "accountId": a, "categoryId": id(cat)},
		{"name": "A all", "amount": "300", "period": "monthly", "accountId": a},
		{"name": "B", "amount": "50", "period": "weekly", "accountId": b},
		{"name": "Everything", "amount": "900", "period": "yearly"},
	} {
		rr, _ := do(t, srv, http.MethodPost, "/api/budgets", body)
		mustStatus(t, rr, http.StatusCreated)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 4},
		{fmt.Sprintf("?accountId=%d", a), 2},
		{fmt.Sprintf("?accountId=%d", b), 1},
		{fmt.Sprintf("?categoryId=%d", id(cat)), 1},
		{fmt.Sprintf("?accountId=%d&categoryId=%d", b, id(cat)), 0},
	}
	for _, tt := range tests {
		rr := httptestGet(t, srv, "/api/budgets"+tt.query)
		if n := countItems(t, rr); n != tt.want {
			t.Errorf("GET /api/budgets%s returned %d budgets, want %d", tt.query, n, tt.want)
		}
	}

	resp, body := do(t, srv, http.MethodGet, "/api/budgets?categoryId=zero", nil)
	mustStatus(t, resp, http.StatusUnprocessableEntity)
	if fields, _ := body["fields"].(map[string]any); fields["categoryId"] == nil {
		t.Errorf("expected categoryId field error: %v", body)
	}
}
