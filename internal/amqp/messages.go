package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	BalanceRecomputed EventType = "balance.recomputed"
	AllocationChanged EventType = "allocation.changed"
)

// LedgerEvent is a lightweight notification that an account's derived state
// changed. Consumers re-read the store for details.
type LedgerEvent struct {
	Type      EventType `json:"type"`
	AccountID int64     `json:"accountId"`
	GoalID    int64     `json:"goalId,omitempty"`
	Balance   string    `json:"balance,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBalanceRecomputed creates an event carrying the freshly persisted balance.
func NewBalanceRecomputed(accountID int64, balance decimal.Decimal) *LedgerEvent {
	return &LedgerEvent{
		Type:      BalanceRecomputed,
		AccountID: accountID,
		Balance:   balance.StringFixed(2),
		Timestamp: time.Now(),
	}
}

// NewAllocationChanged creates an event for an allocation written or removed under goalID.
func NewAllocationChanged(accountID, goalID int64) *LedgerEvent {
	return &LedgerEvent{
		Type:      AllocationChanged,
		AccountID: accountID,
		GoalID:    goalID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case BalanceRecomputed, AllocationChanged:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
