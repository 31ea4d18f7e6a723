package repositories

import (
	"database/sql"
	"fmt"
	"lodgepos_backend/internal/models"
	"time"
)

// PaymentRepository defines the interface for the append-only payment ledger.
type PaymentRepository interface {
	CreatePayment(executor SQLExecutor, payment *models.Payment) (int64, error)
	GetPaymentsBySaleID(saleID int64) ([]models.Payment, error)
	SumPaymentsBySaleID(executor SQLExecutor, saleID int64) (int64, error)
}

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreatePayment(executor SQLExecutor, payment *models.Payment) (int64, error) {
	query := `INSERT INTO payments (sale_id, amount_cents, method, note, paid_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now()
	}

	err := executor.QueryRow(query,
		payment.SaleID, payment.AmountCents, payment.Method, payment.Note, payment.PaidAt,
	).Scan(&payment.ID)

	if err != nil {
		if isForeignKeyViolation(err, "payments_sale_id_fkey") {
			return 0, fmt.Errorf("%w: sale ID %d referenced by new payment", ErrForeignKeyViolation, payment.SaleID)
		}
		return 0, fmt.Errorf("%w: creating payment: %v", ErrDatabaseError, err)
	}
	return payment.ID, nil
}

func (r *paymentRepository) GetPaymentsBySaleID(saleID int64) ([]models.Payment, error) {
	payments := []models.Payment{}
	query := `SELECT id, sale_id, amount_cents, method, note, paid_at
	          FROM payments
	          WHERE sale_id = $1
	          ORDER BY paid_at ASC, id ASC`

	rows, err := r.db.Query(query, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying payments for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.AmountCents, &p.Method, &p.Note, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("%w: scanning payment for sale ID %d: %v", ErrDatabaseError, saleID, err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating payment rows for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return payments, nil
}

// SumPaymentsBySaleID totals the recorded payments of a sale. Callers hold the
// sale row lock when the sum feeds a balance decision.
func (r *paymentRepository) SumPaymentsBySaleID(executor SQLExecutor, saleID int64) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE sale_id = $1`
	err := executor.QueryRow(query, saleID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: summing payments for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return total, nil
}
