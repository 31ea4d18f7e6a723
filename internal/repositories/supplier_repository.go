package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"
)

// SupplierRepository defines the interface for supplier database operations.
type SupplierRepository interface {
	CreateSupplier(executor SQLExecutor, supplier *models.Supplier) (int64, error)
	GetSupplierByID(id int64) (*models.Supplier, error)
	GetSuppliers(page, pageSize int, searchTerm *string) ([]models.Supplier, int, error) // Suppliers, total count, error
	GetSupplierOutstanding(supplierID int64) (totalPurchased int64, totalPaid int64, err error)
}

type supplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository creates a new instance of SupplierRepository.
func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

// CreateSupplier inserts a new supplier into the database.
func (r *supplierRepository) CreateSupplier(executor SQLExecutor, supplier *models.Supplier) (int64, error) {
	query := `INSERT INTO suppliers (name, phone, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	currentTime := time.Now()
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = currentTime
	}
	if supplier.UpdatedAt.IsZero() {
		supplier.UpdatedAt = currentTime
	}

	err := executor.QueryRow(query,
		supplier.Name, supplier.Phone, supplier.Notes, supplier.CreatedAt, supplier.UpdatedAt,
	).Scan(&supplier.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating supplier: %v", ErrDatabaseError, err)
	}
	return supplier.ID, nil
}

// GetSupplierByID retrieves a supplier by their ID.
func (r *supplierRepository) GetSupplierByID(id int64) (*models.Supplier, error) {
	supplier := &models.Supplier{}
	query := `SELECT id, name, phone, notes, created_at, updated_at
	          FROM suppliers WHERE id = $1`

	err := r.db.QueryRow(query, id).Scan(
		&supplier.ID, &supplier.Name, &supplier.Phone, &supplier.Notes,
		&supplier.CreatedAt, &supplier.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting supplier by ID %d: %v", ErrDatabaseError, id, err)
	}
	return supplier, nil
}

// GetSuppliers retrieves a list of suppliers with pagination and optional search.
func (r *supplierRepository) GetSuppliers(page, pageSize int, searchTerm *string) ([]models.Supplier, int, error) {
	suppliers := []models.Supplier{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, name, phone, notes, created_at, updated_at, COUNT(*) OVER() as total_count
	                          FROM suppliers`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if searchTerm != nil && *searchTerm != "" {
		searchPattern := "%" + *searchTerm + "%"
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", argCount, argCount))
		args = append(args, searchPattern)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY name ASC")

	if pageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, pageSize)
		argCount++
		if page > 0 {
			offset := (page - 1) * pageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying suppliers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &s.Notes, &s.CreatedAt, &s.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning supplier: %v", ErrDatabaseError, err)
		}
		suppliers = append(suppliers, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating supplier rows: %v", ErrDatabaseError, err)
	}
	return suppliers, totalCount, nil
}

// GetSupplierOutstanding sums all purchase totals and all payments recorded
// against a supplier's purchases. Balance is the difference.
func (r *supplierRepository) GetSupplierOutstanding(supplierID int64) (int64, int64, error) {
	var totalPurchased, totalPaid int64
	query := `SELECT
	            COALESCE((SELECT SUM(p.total_amount_cents) FROM purchases p WHERE p.supplier_id = $1), 0),
	            COALESCE((SELECT SUM(sp.amount_cents)
	                      FROM supplier_payments sp
	                      JOIN purchases p ON sp.purchase_id = p.id
	                      WHERE p.supplier_id = $1), 0)`

	err := r.db.QueryRow(query, supplierID).Scan(&totalPurchased, &totalPaid)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: summing balance for supplier ID %d: %v", ErrDatabaseError, supplierID, err)
	}
	return totalPurchased, totalPaid, nil
}
