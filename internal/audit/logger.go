package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// Event is one structured settlement audit record, emitted to the process log
// in JSON. The durable audit trail lives in the journal_entries table; these
// events exist for operational visibility.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	LoadID    string    `json:"load_id"`
	AccountID string    `json:"account_id,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogDeduction(loadID, side, accountID string, amount decimal.Decimal) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "SERVICE_FEE_DEDUCT",
		LoadID:    loadID,
		AccountID: accountID,
		Amount:    amount.String(),
		Status:    "SUCCESS",
		Details:   map[string]string{"side": side},
	})
}

func (a *Logger) LogRefund(loadID, accountID string, amount decimal.Decimal) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "SERVICE_FEE_REFUND",
		LoadID:    loadID,
		AccountID: accountID,
		Amount:    amount.String(),
		Status:    "SUCCESS",
	})
}

func (a *Logger) LogSkipped(loadID, side, reason string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "SETTLEMENT_SKIPPED",
		LoadID:    loadID,
		Status:    "SKIPPED",
		Details:   map[string]string{"side": side, "reason": reason},
	})
}

func (a *Logger) LogError(loadID string, err error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		LoadID:    loadID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
