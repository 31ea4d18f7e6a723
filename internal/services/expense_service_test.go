package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lodgepos_backend/internal/models"
)

func TestRecordExpense(t *testing.T) {
	db, _ := newMockDB(t)
	expenseRepo := &stubExpenseRepo{}
	svc := NewExpenseService(expenseRepo, db)

	expense, err := svc.RecordExpense(RecordExpenseRequest{
		Label:  "  window cleaning  ",
		Amount: 12.50,
		Note:   ptrStr("paid from drawer"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), expense.ID)
	assert.Equal(t, "window cleaning", expense.Label)
	assert.Equal(t, int64(1250), expense.AmountCents)
	require.NotNil(t, expense.Note)
	assert.Equal(t, "paid from drawer", *expense.Note)
	assert.WithinDuration(t, time.Now(), expense.IncurredAt, time.Minute)

	require.Len(t, expenseRepo.expenses, 1)
}

func TestRecordExpenseKeepsProvidedTimestamp(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewExpenseService(&stubExpenseRepo{}, db)

	expense, err := svc.RecordExpense(RecordExpenseRequest{
		Label:      "ice delivery",
		Amount:     8.00,
		IncurredAt: ptrStr("2026-08-20T14:30:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC), expense.IncurredAt.UTC())
}

func TestRecordExpenseValidation(t *testing.T) {
	db, _ := newMockDB(t)
	expenseRepo := &stubExpenseRepo{}
	svc := NewExpenseService(expenseRepo, db)

	tests := []struct {
		name string
		req  RecordExpenseRequest
	}{
		{name: "missing label", req: RecordExpenseRequest{Amount: 5}},
		{name: "blank label", req: RecordExpenseRequest{Label: "   ", Amount: 5}},
		{name: "zero amount", req: RecordExpenseRequest{Label: "x", Amount: 0}},
		{name: "negative amount", req: RecordExpenseRequest{Label: "x", Amount: -5}},
		{name: "bad timestamp", req: RecordExpenseRequest{Label: "x", Amount: 5, IncurredAt: ptrStr("20.08.2026")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordExpense(tt.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, expenseRepo.expenses)
}

func TestListExpenses(t *testing.T) {
	db, _ := newMockDB(t)
	expenseRepo := &stubExpenseRepo{
		expenses: []models.Expense{{ID: 1, Label: "laundry", AmountCents: 900}},
	}
	svc := NewExpenseService(expenseRepo, db)

	expenses, total, err := svc.ListExpenses(models.ExpenseFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, expenses, 1)
	assert.Equal(t, "laundry", expenses[0].Label)
}
