package models

import "time"

// ShiftStatus defines the type for cash-drawer shift statuses.
type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "open"
	ShiftStatusClosed ShiftStatus = "closed"
)

// Shift is one bounded cash-drawer operating window. At most one shift may be
// open at any time; the store enforces this with a partial unique index, so the
// invariant survives process restarts. All reconciliation fields are frozen at
// close and never recomputed.
type Shift struct {
	ID                   int64       `json:"id" db:"id"`
	OpenedBy             int64       `json:"opened_by" db:"opened_by"`
	ClosedBy             *int64      `json:"closed_by,omitempty" db:"closed_by"`
	OpenedAt             time.Time   `json:"opened_at" db:"opened_at"`
	ClosedAt             *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
	StartCashCents       int64       `json:"start_cash_cents" db:"start_cash_cents"`
	EndCashExpectedCents *int64      `json:"end_cash_expected_cents,omitempty" db:"end_cash_expected_cents"`
	EndCashActualCents   *int64      `json:"end_cash_actual_cents,omitempty" db:"end_cash_actual_cents"`
	DifferenceCents      *int64      `json:"difference_cents,omitempty" db:"difference_cents"`
	TotalSalesCents      *int64      `json:"total_sales_cents,omitempty" db:"total_sales_cents"`
	TotalExpensesCents   *int64      `json:"total_expenses_cents,omitempty" db:"total_expenses_cents"`
	Status               ShiftStatus `json:"status" db:"status"`
	Notes                *string     `json:"notes,omitempty" db:"notes"`
}

// Expense is a cash-drawer outflow counted against the shift it falls into.
type Expense struct {
	ID          int64     `json:"id" db:"id"`
	Label       string    `json:"label" db:"label"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	IncurredAt  time.Time `json:"incurred_at" db:"incurred_at"`
	Note        *string   `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ExpenseFilters defines the available filters for querying expenses.
type ExpenseFilters struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
