package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"
)

// PurchaseRepository defines the interface for procurement database operations.
type PurchaseRepository interface {
	// Purchase methods
	CreatePurchase(executor SQLExecutor, purchase *models.Purchase) (int64, error)
	GetPurchaseByID(purchaseID int64) (*models.Purchase, error)
	GetPurchaseByIDForUpdate(executor SQLExecutor, purchaseID int64) (*models.Purchase, error)
	GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error) // purchases, total count, error
	DeletePurchase(executor SQLExecutor, purchaseID int64) (int64, error)

	// PurchaseItem methods
	CreatePurchaseItem(executor SQLExecutor, item *models.PurchaseItem) (int64, error)
	GetPurchaseItemsByPurchaseID(purchaseID int64) ([]models.PurchaseItem, error)
	DeletePurchaseItemsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error)

	// SupplierPayment methods
	CreateSupplierPayment(executor SQLExecutor, payment *models.SupplierPayment) (int64, error)
	GetSupplierPaymentsByPurchaseID(purchaseID int64) ([]models.SupplierPayment, error)
	SumSupplierPaymentsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error)
	DeleteSupplierPaymentsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error)
}

type purchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates a new instance of PurchaseRepository.
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// --- Purchase Methods ---

func (r *purchaseRepository) CreatePurchase(executor SQLExecutor, purchase *models.Purchase) (int64, error) {
	query := `INSERT INTO purchases (supplier_id, purchase_date, total_amount_cents, note, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		purchase.SupplierID, purchase.PurchaseDate, purchase.TotalAmountCents,
		purchase.Note, purchase.CreatedAt,
	).Scan(&purchase.ID)

	if err != nil {
		if isForeignKeyViolation(err, "purchases_supplier_id_fkey") {
			return 0, fmt.Errorf("%w: supplier %v referenced by new purchase", ErrForeignKeyViolation, purchase.SupplierID)
		}
		return 0, fmt.Errorf("%w: creating purchase: %v", ErrDatabaseError, err)
	}
	return purchase.ID, nil
}

const purchaseSelectQuery = `SELECT id, supplier_id, purchase_date, total_amount_cents, note, created_at
          FROM purchases`

func (r *purchaseRepository) GetPurchaseByID(purchaseID int64) (*models.Purchase, error) {
	return scanPurchaseRow(r.db.QueryRow(purchaseSelectQuery+` WHERE id = $1`, purchaseID), purchaseID)
}

// GetPurchaseByIDForUpdate retrieves a purchase and locks the row until the
// surrounding transaction ends. Deletion and payment recording serialize here.
func (r *purchaseRepository) GetPurchaseByIDForUpdate(executor SQLExecutor, purchaseID int64) (*models.Purchase, error) {
	return scanPurchaseRow(executor.QueryRow(purchaseSelectQuery+` WHERE id = $1 FOR UPDATE`, purchaseID), purchaseID)
}

func scanPurchaseRow(row scanner, purchaseID int64) (*models.Purchase, error) {
	purchase := &models.Purchase{}
	err := row.Scan(
		&purchase.ID, &purchase.SupplierID, &purchase.PurchaseDate,
		&purchase.TotalAmountCents, &purchase.Note, &purchase.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting purchase by ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	return purchase, nil
}

func (r *purchaseRepository) GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error) {
	purchases := []models.Purchase{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            p.id, p.supplier_id, p.purchase_date, p.total_amount_cents, p.note, p.created_at,
            s.name as supplier_name,
            COUNT(*) OVER() as total_count
        FROM purchases p
        LEFT JOIN suppliers s ON p.supplier_id = s.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.SupplierID != nil {
		conditions = append(conditions, fmt.Sprintf("p.supplier_id = $%d", argCounter))
		args = append(args, *filters.SupplierID)
		argCounter++
	}
	if filters.DateFrom != nil && *filters.DateFrom != "" {
		if parsed, err := time.Parse("2006-01-02", *filters.DateFrom); err == nil {
			conditions = append(conditions, fmt.Sprintf("p.purchase_date >= $%d", argCounter))
			args = append(args, parsed)
			argCounter++
		}
	}
	if filters.DateTo != nil && *filters.DateTo != "" {
		if parsed, err := time.Parse("2006-01-02", *filters.DateTo); err == nil {
			conditions = append(conditions, fmt.Sprintf("p.purchase_date <= $%d", argCounter))
			args = append(args, parsed)
			argCounter++
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY p.purchase_date DESC, p.id DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying purchases: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Purchase
		var supplierName sql.NullString

		err := rows.Scan(
			&p.ID, &p.SupplierID, &p.PurchaseDate, &p.TotalAmountCents, &p.Note, &p.CreatedAt,
			&supplierName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning purchase: %v", ErrDatabaseError, err)
		}

		if p.SupplierID != nil {
			supplier := models.Supplier{ID: *p.SupplierID}
			if supplierName.Valid {
				supplier.Name = supplierName.String
			}
			p.Supplier = &supplier
		}
		purchases = append(purchases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating purchase rows: %v", ErrDatabaseError, err)
	}
	return purchases, totalCount, nil
}

func (r *purchaseRepository) DeletePurchase(executor SQLExecutor, purchaseID int64) (int64, error) {
	query := `DELETE FROM purchases WHERE id = $1`
	result, err := executor.Exec(query, purchaseID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	if rowsAffected == 0 {
		return 0, ErrNotFound
	}
	return rowsAffected, nil
}

// --- PurchaseItem Methods ---

func (r *purchaseRepository) CreatePurchaseItem(executor SQLExecutor, item *models.PurchaseItem) (int64, error) {
	query := `INSERT INTO purchase_items (purchase_id, catalog_item_id, name, quantity, unit_cost_cents, line_total_cents)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	err := executor.QueryRow(query,
		item.PurchaseID, item.CatalogItemID, item.Name, item.Quantity,
		item.UnitCostCents, item.LineTotalCents,
	).Scan(&item.ID)

	if err != nil {
		if isForeignKeyViolation(err, "") {
			return 0, fmt.Errorf("%w: creating purchase item for purchase ID %d", ErrForeignKeyViolation, item.PurchaseID)
		}
		return 0, fmt.Errorf("%w: creating purchase item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *purchaseRepository) GetPurchaseItemsByPurchaseID(purchaseID int64) ([]models.PurchaseItem, error) {
	items := []models.PurchaseItem{}
	query := `SELECT id, purchase_id, catalog_item_id, name, quantity, unit_cost_cents, line_total_cents
	          FROM purchase_items
	          WHERE purchase_id = $1
	          ORDER BY id`

	rows, err := r.db.Query(query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying purchase items for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.PurchaseItem
		err := rows.Scan(
			&item.ID, &item.PurchaseID, &item.CatalogItemID, &item.Name,
			&item.Quantity, &item.UnitCostCents, &item.LineTotalCents,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning purchase item for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating purchase item rows for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	return items, nil
}

func (r *purchaseRepository) DeletePurchaseItemsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error) {
	query := `DELETE FROM purchase_items WHERE purchase_id = $1`
	result, err := executor.Exec(query, purchaseID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting purchase items for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting purchase items purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	return rowsAffected, nil
}

// --- SupplierPayment Methods ---

func (r *purchaseRepository) CreateSupplierPayment(executor SQLExecutor, payment *models.SupplierPayment) (int64, error) {
	query := `INSERT INTO supplier_payments (purchase_id, amount_cents, method, note, paid_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now()
	}

	err := executor.QueryRow(query,
		payment.PurchaseID, payment.AmountCents, payment.Method, payment.Note, payment.PaidAt,
	).Scan(&payment.ID)

	if err != nil {
		if isForeignKeyViolation(err, "supplier_payments_purchase_id_fkey") {
			return 0, fmt.Errorf("%w: purchase ID %d referenced by new supplier payment", ErrForeignKeyViolation, payment.PurchaseID)
		}
		return 0, fmt.Errorf("%w: creating supplier payment: %v", ErrDatabaseError, err)
	}
	return payment.ID, nil
}

func (r *purchaseRepository) GetSupplierPaymentsByPurchaseID(purchaseID int64) ([]models.SupplierPayment, error) {
	payments := []models.SupplierPayment{}
	query := `SELECT id, purchase_id, amount_cents, method, note, paid_at
	          FROM supplier_payments
	          WHERE purchase_id = $1
	          ORDER BY paid_at ASC, id ASC`

	rows, err := r.db.Query(query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying supplier payments for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.SupplierPayment
		if err := rows.Scan(&p.ID, &p.PurchaseID, &p.AmountCents, &p.Method, &p.Note, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("%w: scanning supplier payment for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating supplier payment rows for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	return payments, nil
}

// SumSupplierPaymentsByPurchaseID totals the payments recorded against a
// purchase. Callers hold the purchase row lock when the sum feeds a balance
// decision.
func (r *purchaseRepository) SumSupplierPaymentsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM supplier_payments WHERE purchase_id = $1`
	err := executor.QueryRow(query, purchaseID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: summing supplier payments for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	return total, nil
}

func (r *purchaseRepository) DeleteSupplierPaymentsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error) {
	query := `DELETE FROM supplier_payments WHERE purchase_id = $1`
	result, err := executor.Exec(query, purchaseID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting supplier payments for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting supplier payments purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	return rowsAffected, nil
}
