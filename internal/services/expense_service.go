package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"lodgepos_backend/internal/models"
	"lodgepos_backend/internal/repositories"
	"lodgepos_backend/pkg/utils"
)

// --- Expense DTOs ---

// RecordExpenseRequest is used for booking a cash outflow.
type RecordExpenseRequest struct {
	Label      string  `json:"label" validate:"required"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	IncurredAt *string `json:"incurred_at"` // RFC3339, defaults to now
	Note       *string `json:"note"`
}

// --- ExpenseService Interface ---
type ExpenseService interface {
	RecordExpense(req RecordExpenseRequest) (*models.Expense, error)
	ListExpenses(filters models.ExpenseFilters) ([]models.Expense, int, error)
}

// --- expenseService Implementation ---
type expenseService struct {
	expenseRepo repositories.ExpenseRepository
	db          *sql.DB
}

// NewExpenseService creates a new instance of ExpenseService.
func NewExpenseService(er repositories.ExpenseRepository, db *sql.DB) ExpenseService {
	return &expenseService{
		expenseRepo: er,
		db:          db,
	}
}

func (s *expenseService) RecordExpense(req RecordExpenseRequest) (*models.Expense, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if utils.IsEmpty(req.Label) {
		return nil, fmt.Errorf("%w: expense label cannot be empty", ErrValidation)
	}

	incurredAt := time.Now()
	if req.IncurredAt != nil && *req.IncurredAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.IncurredAt)
		if err != nil {
			return nil, fmt.Errorf("%w: incurred_at %q is not an RFC3339 timestamp", ErrValidation, *req.IncurredAt)
		}
		incurredAt = parsed
	}

	expense := models.Expense{
		Label:       strings.TrimSpace(req.Label),
		AmountCents: utils.CentsFromAmount(req.Amount),
		IncurredAt:  incurredAt,
		Note:        utils.TrimToNil(req.Note),
		CreatedAt:   time.Now(),
	}
	id, err := s.expenseRepo.CreateExpense(s.db, &expense)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense record: %w", err)
	}
	expense.ID = id

	utils.LogInfo("expense recorded", map[string]interface{}{
		"expense_id": id,
		"label":      expense.Label,
		"amount":     utils.AmountFromCents(expense.AmountCents),
	})
	return &expense, nil
}

func (s *expenseService) ListExpenses(filters models.ExpenseFilters) ([]models.Expense, int, error) {
	expenses, totalCount, err := s.expenseRepo.GetExpenses(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get expenses: %w", err)
	}
	return expenses, totalCount, nil
}
