package repositories

import (
	"database/sql"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"
)

// ExpenseRepository defines the interface for expense database operations.
type ExpenseRepository interface {
	CreateExpense(executor SQLExecutor, expense *models.Expense) (int64, error)
	GetExpenses(filters models.ExpenseFilters) ([]models.Expense, int, error)
	SumExpensesBetween(executor SQLExecutor, from, to time.Time) (int64, error)
}

type expenseRepository struct {
	db *sql.DB
}

// NewExpenseRepository creates a new instance of ExpenseRepository.
func NewExpenseRepository(db *sql.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) CreateExpense(executor SQLExecutor, expense *models.Expense) (int64, error) {
	query := `INSERT INTO expenses (label, amount_cents, incurred_at, note, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	currentTime := time.Now()
	if expense.IncurredAt.IsZero() {
		expense.IncurredAt = currentTime
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = currentTime
	}

	err := executor.QueryRow(query,
		expense.Label, expense.AmountCents, expense.IncurredAt, expense.Note, expense.CreatedAt,
	).Scan(&expense.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating expense: %v", ErrDatabaseError, err)
	}
	return expense.ID, nil
}

func (r *expenseRepository) GetExpenses(filters models.ExpenseFilters) ([]models.Expense, int, error) {
	expenses := []models.Expense{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, label, amount_cents, incurred_at, note, created_at, COUNT(*) OVER() as total_count
	                          FROM expenses`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("incurred_at >= $%d", argCount))
		args = append(args, *filters.From)
		argCount++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("incurred_at <= $%d", argCount))
		args = append(args, *filters.To)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY incurred_at DESC, id DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filters.PageSize)
		argCount++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying expenses: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.Label, &e.AmountCents, &e.IncurredAt, &e.Note, &e.CreatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning expense: %v", ErrDatabaseError, err)
		}
		expenses = append(expenses, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating expense rows: %v", ErrDatabaseError, err)
	}
	return expenses, totalCount, nil
}

// SumExpensesBetween totals expenses incurred inside the window. Shift close
// reads through its own transaction.
func (r *expenseRepository) SumExpensesBetween(executor SQLExecutor, from, to time.Time) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE incurred_at BETWEEN $1 AND $2`
	err := executor.QueryRow(query, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: summing expenses: %v", ErrDatabaseError, err)
	}
	return total, nil
}
