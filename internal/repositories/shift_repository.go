package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"time"
)

// ShiftRepository defines the interface for cash-drawer shift database operations.
type ShiftRepository interface {
	CreateShift(executor SQLExecutor, shift *models.Shift) (int64, error)
	GetShiftByID(shiftID int64) (*models.Shift, error)
	GetShiftByIDForUpdate(executor SQLExecutor, shiftID int64) (*models.Shift, error)
	GetOpenShift() (*models.Shift, error)
	CloseShift(executor SQLExecutor, shift *models.Shift) error
}

type shiftRepository struct {
	db *sql.DB
}

// NewShiftRepository creates a new instance of ShiftRepository.
func NewShiftRepository(db *sql.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

// CreateShift opens a new shift row. The partial unique index on open shifts is
// the authoritative single-open-shift guard; its violation surfaces as
// ErrDuplicateKey.
func (r *shiftRepository) CreateShift(executor SQLExecutor, shift *models.Shift) (int64, error) {
	query := `INSERT INTO shifts (opened_by, opened_at, start_cash_cents, status, notes)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now()
	}
	if shift.Status == "" {
		shift.Status = models.ShiftStatusOpen
	}

	err := executor.QueryRow(query,
		shift.OpenedBy, shift.OpenedAt, shift.StartCashCents, shift.Status, shift.Notes,
	).Scan(&shift.ID)

	if err != nil {
		if isUniqueViolation(err, "shifts_one_open_idx") {
			return 0, fmt.Errorf("%w: an open shift already exists", ErrDuplicateKey)
		}
		return 0, fmt.Errorf("%w: creating shift: %v", ErrDatabaseError, err)
	}
	return shift.ID, nil
}

const shiftSelectQuery = `SELECT id, opened_by, closed_by, opened_at, closed_at, start_cash_cents,
	       end_cash_expected_cents, end_cash_actual_cents, difference_cents,
	       total_sales_cents, total_expenses_cents, status, notes
	FROM shifts`

func (r *shiftRepository) GetShiftByID(shiftID int64) (*models.Shift, error) {
	return scanShiftRow(r.db.QueryRow(shiftSelectQuery+` WHERE id = $1`, shiftID))
}

// GetShiftByIDForUpdate retrieves a shift and locks the row until the
// surrounding transaction ends. Close runs under this lock so the frozen
// totals match exactly one close.
func (r *shiftRepository) GetShiftByIDForUpdate(executor SQLExecutor, shiftID int64) (*models.Shift, error) {
	return scanShiftRow(executor.QueryRow(shiftSelectQuery+` WHERE id = $1 FOR UPDATE`, shiftID))
}

// GetOpenShift retrieves the current open shift, if any.
func (r *shiftRepository) GetOpenShift() (*models.Shift, error) {
	return scanShiftRow(r.db.QueryRow(shiftSelectQuery+` WHERE status = $1`, models.ShiftStatusOpen))
}

func scanShiftRow(row scanner) (*models.Shift, error) {
	shift := &models.Shift{}
	err := row.Scan(
		&shift.ID, &shift.OpenedBy, &shift.ClosedBy, &shift.OpenedAt, &shift.ClosedAt,
		&shift.StartCashCents, &shift.EndCashExpectedCents, &shift.EndCashActualCents,
		&shift.DifferenceCents, &shift.TotalSalesCents, &shift.TotalExpensesCents,
		&shift.Status, &shift.Notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting shift: %v", ErrDatabaseError, err)
	}
	return shift, nil
}

// CloseShift freezes the reconciliation fields of an open shift. The
// status = 'open' guard means a shift can be closed exactly once.
func (r *shiftRepository) CloseShift(executor SQLExecutor, shift *models.Shift) error {
	query := `UPDATE shifts SET
	            closed_by = $1, closed_at = $2, end_cash_expected_cents = $3,
	            end_cash_actual_cents = $4, difference_cents = $5, total_sales_cents = $6,
	            total_expenses_cents = $7, status = $8, notes = $9
	          WHERE id = $10 AND status = $11`

	result, err := executor.Exec(query,
		shift.ClosedBy, shift.ClosedAt, shift.EndCashExpectedCents,
		shift.EndCashActualCents, shift.DifferenceCents, shift.TotalSalesCents,
		shift.TotalExpensesCents, models.ShiftStatusClosed, shift.Notes,
		shift.ID, models.ShiftStatusOpen,
	)
	if err != nil {
		return fmt.Errorf("%w: closing shift ID %d: %v", ErrDatabaseError, shift.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for closing shift ID %d: %v", ErrDatabaseError, shift.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
