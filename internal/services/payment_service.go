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

// --- Custom Service Errors for Payments ---
var (
	ErrSaleAlreadyPaid       = fmt.Errorf("%w: sale is already settled", utils.ErrConflict)
	ErrPaymentExceedsBalance = fmt.Errorf("%w: payment exceeds balance due", utils.ErrConflict)
)

// --- Payment DTOs ---

// RecordPaymentRequest is used for recording a payment against a sale.
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Method string  `json:"method" validate:"required"`
	Note   *string `json:"note"`
}

// PaymentDetails is one ledger entry for collaborators.
type PaymentDetails struct {
	ID     int64     `json:"id"`
	Amount float64   `json:"amount"`
	Method string    `json:"method"`
	Note   *string   `json:"note,omitempty"`
	PaidAt time.Time `json:"paid_at"`
}

// PaymentSummary is the settlement state of a sale.
type PaymentSummary struct {
	SaleID      int64            `json:"sale_id"`
	TotalAmount float64          `json:"total_amount"`
	AmountPaid  float64          `json:"amount_paid"`
	BalanceDue  float64          `json:"balance_due"`
	Paid        bool             `json:"paid"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
	Payments    []PaymentDetails `json:"payments"`
}

// --- PaymentService Interface ---
type PaymentService interface {
	RecordPayment(saleID int64, req RecordPaymentRequest) (*PaymentSummary, error)
	GetPaymentSummary(saleID int64) (*PaymentSummary, error)
}

// --- paymentService Implementation ---
type paymentService struct {
	saleRepo    repositories.SaleRepository
	paymentRepo repositories.PaymentRepository
	db          *sql.DB
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(
	sr repositories.SaleRepository,
	pr repositories.PaymentRepository,
	db *sql.DB,
) PaymentService {
	return &paymentService{
		saleRepo:    sr,
		paymentRepo: pr,
		db:          db,
	}
}

// RecordPayment appends a payment to the sale's ledger. The sale row is
// locked for the duration so concurrent payments serialize; the sum of
// payments can never exceed the sale total, and the paid flag flips exactly
// once when the balance reaches zero.
func (s *paymentService) RecordPayment(saleID int64, req RecordPaymentRequest) (*PaymentSummary, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	amountCents := utils.CentsFromAmount(req.Amount)
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}

	var settled bool
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		settled = false

		sale, err := s.saleRepo.GetSaleByIDForUpdate(tx, saleID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: sale ID %d", ErrSaleNotFound, saleID)
			}
			return fmt.Errorf("failed to lock sale %d: %w", saleID, err)
		}
		if sale.Paid {
			return fmt.Errorf("%w: sale ID %d", ErrSaleAlreadyPaid, saleID)
		}

		paidSoFar, err := s.paymentRepo.SumPaymentsBySaleID(tx, saleID)
		if err != nil {
			return fmt.Errorf("failed to sum payments for sale %d: %w", saleID, err)
		}
		balance := sale.TotalAmountCents - paidSoFar
		if balance < 0 {
			balance = 0
		}
		if amountCents > balance {
			return fmt.Errorf("%w: payment %.2f exceeds balance due %.2f on sale %d",
				ErrPaymentExceedsBalance, utils.AmountFromCents(amountCents), utils.AmountFromCents(balance), saleID)
		}

		now := time.Now()
		payment := models.Payment{
			SaleID:      saleID,
			AmountCents: amountCents,
			Method:      req.Method,
			Note:        utils.TrimToNil(req.Note),
			PaidAt:      now,
		}
		if _, err := s.paymentRepo.CreatePayment(tx, &payment); err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}

		if paidSoFar+amountCents >= sale.TotalAmountCents {
			if err := s.saleRepo.MarkSalePaid(tx, saleID, now); err != nil {
				return fmt.Errorf("failed to mark sale %d paid: %w", saleID, err)
			}
			settled = true
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("payment recorded", map[string]interface{}{
		"sale_id": saleID,
		"amount":  utils.AmountFromCents(amountCents),
		"method":  req.Method,
		"settled": settled,
	})

	return s.GetPaymentSummary(saleID)
}

func (s *paymentService) GetPaymentSummary(saleID int64) (*PaymentSummary, error) {
	sale, err := s.saleRepo.GetSaleByID(saleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: sale ID %d", ErrSaleNotFound, saleID)
		}
		return nil, fmt.Errorf("failed to get sale by ID: %w", err)
	}
	payments, err := s.paymentRepo.GetPaymentsBySaleID(saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for sale %d: %w", saleID, err)
	}

	var paidCents int64
	entries := make([]PaymentDetails, 0, len(payments))
	for _, p := range payments {
		paidCents += p.AmountCents
		entries = append(entries, PaymentDetails{
			ID:     p.ID,
			Amount: utils.AmountFromCents(p.AmountCents),
			Method: p.Method,
			Note:   p.Note,
			PaidAt: p.PaidAt,
		})
	}
	balance := sale.TotalAmountCents - paidCents
	if balance < 0 {
		balance = 0
	}

	return &PaymentSummary{
		SaleID:      sale.ID,
		TotalAmount: utils.AmountFromCents(sale.TotalAmountCents),
		AmountPaid:  utils.AmountFromCents(paidCents),
		BalanceDue:  utils.AmountFromCents(balance),
		Paid:        sale.Paid,
		PaidAt:      sale.PaidAt,
		Payments:    entries,
	}, nil
}
