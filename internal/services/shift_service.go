package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lodgepos_backend/internal/database"
	"lodgepos_backend/internal/models"
	"lodgepos_backend/internal/repositories"
	"lodgepos_backend/pkg/utils"
)

// --- Custom Service Errors for Shifts ---
var (
	ErrShiftNotFound    = fmt.Errorf("%w: shift not found", utils.ErrNotFound)
	ErrNoOpenShift      = fmt.Errorf("%w: no open shift", utils.ErrNotFound)
	ErrShiftAlreadyOpen = fmt.Errorf("%w: an open shift already exists", utils.ErrConflict)
	ErrShiftClosed      = fmt.Errorf("%w: shift is already closed", utils.ErrConflict)
)

// --- Shift DTOs ---

// OpenShiftRequest is used for opening a cash-drawer shift.
type OpenShiftRequest struct {
	OpenedBy  int64   `json:"opened_by" validate:"gt=0"`
	StartCash float64 `json:"start_cash" validate:"gte=0"`
	Notes     *string `json:"notes"`
}

// CloseShiftRequest is used for closing the shift with the counted drawer.
type CloseShiftRequest struct {
	ClosedBy      int64   `json:"closed_by" validate:"gt=0"`
	EndCashActual float64 `json:"end_cash_actual" validate:"gte=0"`
	Notes         *string `json:"notes"`
}

// ShiftSummary is the frozen reconciliation result of a closed shift.
type ShiftSummary struct {
	ShiftID         int64     `json:"shift_id"`
	OpenedBy        int64     `json:"opened_by"`
	ClosedBy        int64     `json:"closed_by"`
	OpenedAt        time.Time `json:"opened_at"`
	ClosedAt        time.Time `json:"closed_at"`
	StartCash       float64   `json:"start_cash"`
	TotalSales      float64   `json:"total_sales"`
	TotalExpenses   float64   `json:"total_expenses"`
	EndCashExpected float64   `json:"end_cash_expected"`
	EndCashActual   float64   `json:"end_cash_actual"`
	Difference      float64   `json:"difference"`
	Notes           *string   `json:"notes,omitempty"`
}

// --- ShiftService Interface ---
type ShiftService interface {
	OpenShift(req OpenShiftRequest) (*models.Shift, error)
	CloseShift(shiftID int64, req CloseShiftRequest) (*ShiftSummary, error)
	GetOpenShift() (*models.Shift, error)
}

// --- shiftService Implementation ---
type shiftService struct {
	shiftRepo   repositories.ShiftRepository
	saleRepo    repositories.SaleRepository
	expenseRepo repositories.ExpenseRepository
	db          *sql.DB
}

// NewShiftService creates a new instance of ShiftService.
func NewShiftService(
	shr repositories.ShiftRepository,
	sr repositories.SaleRepository,
	er repositories.ExpenseRepository,
	db *sql.DB,
) ShiftService {
	return &shiftService{
		shiftRepo:   shr,
		saleRepo:    sr,
		expenseRepo: er,
		db:          db,
	}
}

// OpenShift starts a new shift. The partial unique index on open shifts is
// the authoritative guard; the pre-check just gives a cleaner error without
// burning a sequence value.
func (s *shiftService) OpenShift(req OpenShiftRequest) (*models.Shift, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.shiftRepo.GetOpenShift(); err == nil {
		return nil, ErrShiftAlreadyOpen
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for an open shift: %w", err)
	}

	shift := models.Shift{
		OpenedBy:       req.OpenedBy,
		OpenedAt:       time.Now(),
		StartCashCents: utils.CentsFromAmount(req.StartCash),
		Status:         models.ShiftStatusOpen,
		Notes:          utils.TrimToNil(req.Notes),
	}
	id, err := s.shiftRepo.CreateShift(s.db, &shift)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrShiftAlreadyOpen
		}
		return nil, fmt.Errorf("failed to create shift record: %w", err)
	}

	created, err := s.shiftRepo.GetShiftByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created shift %d: %w", id, err)
	}
	utils.LogInfo("shift opened", map[string]interface{}{
		"shift_id":   created.ID,
		"opened_by":  created.OpenedBy,
		"start_cash": utils.AmountFromCents(created.StartCashCents),
	})
	return created, nil
}

// CloseShift reconciles the drawer for the window [opened_at, close time]:
// expected cash = start cash + paid sales - expenses. All totals are frozen
// on the shift row and never recomputed afterwards.
func (s *shiftService) CloseShift(shiftID int64, req CloseShiftRequest) (*ShiftSummary, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	endActualCents := utils.CentsFromAmount(req.EndCashActual)

	var summary *ShiftSummary
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		summary = nil

		shift, err := s.shiftRepo.GetShiftByIDForUpdate(tx, shiftID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: shift ID %d", ErrShiftNotFound, shiftID)
			}
			return fmt.Errorf("failed to lock shift %d: %w", shiftID, err)
		}
		if shift.Status != models.ShiftStatusOpen {
			return fmt.Errorf("%w: shift ID %d", ErrShiftClosed, shiftID)
		}

		now := time.Now()
		totalSales, err := s.saleRepo.SumPaidSalesBetween(tx, shift.OpenedAt, now)
		if err != nil {
			return fmt.Errorf("failed to sum paid sales for shift %d: %w", shiftID, err)
		}
		totalExpenses, err := s.expenseRepo.SumExpensesBetween(tx, shift.OpenedAt, now)
		if err != nil {
			return fmt.Errorf("failed to sum expenses for shift %d: %w", shiftID, err)
		}

		expected := shift.StartCashCents + totalSales - totalExpenses
		difference := endActualCents - expected

		shift.ClosedBy = &req.ClosedBy
		shift.ClosedAt = &now
		shift.EndCashExpectedCents = &expected
		shift.EndCashActualCents = &endActualCents
		shift.DifferenceCents = &difference
		shift.TotalSalesCents = &totalSales
		shift.TotalExpensesCents = &totalExpenses
		shift.Status = models.ShiftStatusClosed
		if notes := utils.TrimToNil(req.Notes); notes != nil {
			shift.Notes = notes
		}

		if err := s.shiftRepo.CloseShift(tx, shift); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: shift ID %d", ErrShiftClosed, shiftID)
			}
			return fmt.Errorf("failed to close shift %d: %w", shiftID, err)
		}

		summary = &ShiftSummary{
			ShiftID:         shift.ID,
			OpenedBy:        shift.OpenedBy,
			ClosedBy:        req.ClosedBy,
			OpenedAt:        shift.OpenedAt,
			ClosedAt:        now,
			StartCash:       utils.AmountFromCents(shift.StartCashCents),
			TotalSales:      utils.AmountFromCents(totalSales),
			TotalExpenses:   utils.AmountFromCents(totalExpenses),
			EndCashExpected: utils.AmountFromCents(expected),
			EndCashActual:   utils.AmountFromCents(endActualCents),
			Difference:      utils.AmountFromCents(difference),
			Notes:           shift.Notes,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("shift closed", map[string]interface{}{
		"shift_id":          summary.ShiftID,
		"closed_by":         summary.ClosedBy,
		"end_cash_expected": summary.EndCashExpected,
		"end_cash_actual":   summary.EndCashActual,
	})
	if summary.Difference != 0 {
		utils.LogWarn("cash drawer variance on shift close", map[string]interface{}{
			"shift_id":   summary.ShiftID,
			"difference": summary.Difference,
		})
	}
	return summary, nil
}

func (s *shiftService) GetOpenShift() (*models.Shift, error) {
	shift, err := s.shiftRepo.GetOpenShift()
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoOpenShift
		}
		return nil, fmt.Errorf("failed to get open shift: %w", err)
	}
	return shift, nil
}
