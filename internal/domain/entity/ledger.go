package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/benefit-approval/internal/domain/workflow"
)

// BudgetLedger is one per-employee, per-category balance row. All mutations
// are compare-and-swap on Version; available = totalLimit - committed -
// reserved must stay non-negative after every write.
type BudgetLedger struct {
	EmployeeID string            `json:"employee_id"`
	Category   workflow.Category `json:"category"`
	TotalLimit decimal.Decimal   `json:"total_limit"`
	Committed  decimal.Decimal   `json:"committed"`
	Reserved   decimal.Decimal   `json:"reserved"`
	Version    int64             `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Available returns the budget still open for new reservations
func (l *BudgetLedger) Available() decimal.Decimal {
	return l.TotalLimit.Sub(l.Committed).Sub(l.Reserved)
}

// CanReserve reports whether a hold for amount would keep available >= 0
func (l *BudgetLedger) CanReserve(amount decimal.Decimal) bool {
	return l.Available().GreaterThanOrEqual(amount)
}

// HoldState is the lifecycle state of a ledger hold
type HoldState string

const (
	HoldStateActive    HoldState = "ACTIVE"
	HoldStateCommitted HoldState = "COMMITTED"
	HoldStateReleased  HoldState = "RELEASED"
)

// IsTerminal returns true once the hold has been committed or released
func (s HoldState) IsTerminal() bool {
	return s == HoldStateCommitted || s == HoldStateReleased
}

// String returns the string representation of the hold state
func (s HoldState) String() string {
	return string(s)
}

// LedgerHold is a provisional debit reserved against a budget ledger row.
// A request owns at most one active hold; a hold reaches exactly one terminal
// state, and re-applying that outcome is a no-op.
type LedgerHold struct {
	ID         string            `json:"id"`
	RequestID  string            `json:"request_id"`
	EmployeeID string            `json:"employee_id"`
	Category   workflow.Category `json:"category"`
	Amount     decimal.Decimal   `json:"amount"`
	State      HoldState         `json:"state"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
