package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"finledger/internal/core"
)

type createGoalRequest struct {
	Name         string     `json:"name"`
	TargetAmount string     `json:"targetAmount"`
	Deadline     *core.Date `json:"deadline"`
	AccountID    int64      `json:"accountId"`
	Description  string     `json:"description"`
	IsCompleted  bool       `json:"isCompleted"`
}

type updateGoalRequest struct {
	Name         *string      `json:"name"`
	TargetAmount *string      `json:"targetAmount"`
	Deadline     optionalDate `json:"deadline"`
	AccountID    *int64       `json:"accountId"`
	Description  *string      `json:"description"`
	IsCompleted  *bool        `json:"isCompleted"`
}

type currentAmountResponse struct {
	GoalID        int64           `json:"goalId"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) error {
	accountID, err := queryID(r.URL.Query(), "accountId")
	if err != nil {
		return err
	}
	goals, err := s.ledger.ListGoals(r.Context(), accountID)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(goals).Write(w)
	return nil
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	g, err := s.ledger.GetGoal(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(g).Write(w)
	return nil
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) error {
	var req createGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	g := core.Goal{
		Name:         strings.TrimSpace(req.Name),
		TargetAmount: p.amount("targetAmount", req.TargetAmount, decimal.Zero),
		AccountID:    req.AccountID,
		Description:  req.Description,
		IsCompleted:  req.IsCompleted,
	}
	if req.Deadline != nil && !req.Deadline.IsZero() {
		g.Deadline = req.Deadline
	}
	if err := p.check(g.Validate); err != nil {
		return err
	}
	created, err := s.ledger.CreateGoal(r.Context(), g)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
	return nil
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req updateGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	patch := core.GoalPatch{
		Name:          req.Name,
		TargetAmount:  p.optional("targetAmount", req.TargetAmount),
		Deadline:      req.Deadline.Value,
		ClearDeadline: req.Deadline.Set && req.Deadline.Value == nil,
		AccountID:     req.AccountID,
		Description:   req.Description,
		IsCompleted:   req.IsCompleted,
	}
	if err := p.check(nil); err != nil {
		return err
	}
	g, err := s.ledger.UpdateGoal(r.Context(), id, patch)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(g).Write(w)
	return nil
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteGoal(r.Context(), id); err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	return nil
}

func (s *Server) handleGoalCurrentAmount(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	amount, err := s.ledger.GoalCurrentAmount(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(currentAmountResponse{GoalID: id, CurrentAmount: amount}).Write(w)
	return nil
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	progress, err := s.ledger.GoalProgress(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(progress).Write(w)
	return nil
}

func (s *Server) handleGoalAllocations(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	allocs, err := s.ledger.ListAllocationsByGoal(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(allocs).Write(w)
	return nil
}

// Goal allocations

type createAllocationRequest struct {
	GoalID      int64     `json:"goalId"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Date        core.Date `json:"date"`
}

type updateAllocationRequest struct {
	GoalID      *int64     `json:"goalId"`
	Amount      *string    `json:"amount"`
	Description *string    `json:"description"`
	Date        *core.Date `json:"date"`
}

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request) error {
	goalID, err := queryID(r.URL.Query(), "goalId")
	if err != nil {
		return err
	}
	var allocs []core.GoalAllocation
	if goalID != nil {
		allocs, err = s.ledger.ListAllocationsByGoal(r.Context(), *goalID)
	} else {
		allocs, err = s.ledger.ListAllocations(r.Context())
	}
	if err != nil {
		return err
	}
	NewJSONResponse().Body(allocs).Write(w)
	return nil
}

func (s *Server) handleGetAllocation(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	a, err := s.ledger.GetAllocation(r.Context(), id)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(a).Write(w)
	return nil
}

// handleCreateAllocation earmarks money for a goal. A missing date means today;
// an allocation above the account's headroom is rejected with 409.
func (s *Server) handleCreateAllocation(w http.ResponseWriter, r *http.Request) error {
	var req createAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(s.now())
	}
	var p moneyParser
	a := core.GoalAllocation{
		GoalID:      req.GoalID,
		Amount:      p.amount("amount", req.Amount, decimal.Zero),
		Description: req.Description,
		Date:        req.Date,
	}
	if err := p.check(a.Validate); err != nil {
		return err
	}
	created, err := s.ledger.CreateAllocation(r.Context(), a)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
	return nil
}

func (s *Server) handleUpdateAllocation(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req updateAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	var p moneyParser
	patch := core.AllocationPatch{
		GoalID:      req.GoalID,
		Amount:      p.optional("amount", req.Amount),
		Description: req.Description,
		Date:        req.Date,
	}
	if err := p.check(nil); err != nil {
		return err
	}
	a, err := s.ledger.UpdateAllocation(r.Context(), id, patch)
	if err != nil {
		return err
	}
	NewJSONResponse().Body(a).Write(w)
	return nil
}

func (s *Server) handleDeleteAllocation(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteAllocation(r.Context(), id); err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	return nil
}
