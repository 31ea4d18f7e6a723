package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"
)

// SaleRepository defines the interface for sale-related database operations.
type SaleRepository interface {
	// Sale methods
	CreateSale(executor SQLExecutor, sale *models.Sale) (int64, error)
	GetSaleByID(saleID int64) (*models.Sale, error) // Basic sale details
	GetSaleByIDForUpdate(executor SQLExecutor, saleID int64) (*models.Sale, error)
	GetSales(filters models.SaleFilters) ([]models.Sale, int, error) // sales, total count, error
	MarkSalePaid(executor SQLExecutor, saleID int64, paidAt time.Time) error
	SumPaidSalesBetween(executor SQLExecutor, from, to time.Time) (int64, error)
	CountSalesWithBalanceByGuest(executor SQLExecutor, guestID int64) (int, error)

	// SaleItem methods
	CreateSaleItem(executor SQLExecutor, item *models.SaleItem) (int64, error)
	GetSaleItemsBySaleID(saleID int64) ([]models.SaleItem, error)
	GetSaleItemsBySaleIDForUpdate(executor SQLExecutor, saleID int64) ([]models.SaleItem, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository.
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// --- Sale Methods ---

func (r *saleRepository) CreateSale(executor SQLExecutor, sale *models.Sale) (int64, error) {
	query := `INSERT INTO sales (guest_id, total_amount_cents, paid, paid_at, note, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		sale.GuestID, sale.TotalAmountCents, sale.Paid, sale.PaidAt, sale.Note, sale.CreatedAt,
	).Scan(&sale.ID)

	if err != nil {
		if isForeignKeyViolation(err, "sales_guest_id_fkey") {
			return 0, fmt.Errorf("%w: guest %v referenced by new sale", ErrForeignKeyViolation, sale.GuestID)
		}
		return 0, fmt.Errorf("%w: creating sale: %v", ErrDatabaseError, err)
	}
	return sale.ID, nil
}

const saleSelectQuery = `SELECT id, guest_id, total_amount_cents, paid, paid_at, note, created_at
          FROM sales`

func (r *saleRepository) GetSaleByID(saleID int64) (*models.Sale, error) {
	return scanSaleRow(r.db.QueryRow(saleSelectQuery+` WHERE id = $1`, saleID), saleID)
}

// GetSaleByIDForUpdate retrieves a sale and locks the row until the surrounding
// transaction ends. Concurrent payments against one sale serialize here.
func (r *saleRepository) GetSaleByIDForUpdate(executor SQLExecutor, saleID int64) (*models.Sale, error) {
	return scanSaleRow(executor.QueryRow(saleSelectQuery+` WHERE id = $1 FOR UPDATE`, saleID), saleID)
}

func scanSaleRow(row scanner, saleID int64) (*models.Sale, error) {
	sale := &models.Sale{}
	err := row.Scan(
		&sale.ID, &sale.GuestID, &sale.TotalAmountCents, &sale.Paid, &sale.PaidAt,
		&sale.Note, &sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting sale by ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return sale, nil
}

func (r *saleRepository) GetSales(filters models.SaleFilters) ([]models.Sale, int, error) {
	sales := []models.Sale{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            s.id, s.guest_id, s.total_amount_cents, s.paid, s.paid_at, s.note, s.created_at,
            g.full_name as guest_name,
            COUNT(*) OVER() as total_count
        FROM sales s
        LEFT JOIN guests g ON s.guest_id = g.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.GuestID != nil {
		conditions = append(conditions, fmt.Sprintf("s.guest_id = $%d", argCounter))
		args = append(args, *filters.GuestID)
		argCounter++
	}
	if filters.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("s.paid = $%d", argCounter))
		args = append(args, *filters.Paid)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err == nil {
			startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
			endOfDay := startOfDay.AddDate(0, 0, 1).Add(-time.Nanosecond)
			conditions = append(conditions, fmt.Sprintf("s.created_at BETWEEN $%d AND $%d", argCounter, argCounter+1))
			args = append(args, startOfDay, endOfDay)
			argCounter += 2
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY s.created_at DESC")

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
		return nil, 0, fmt.Errorf("%w: querying sales: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Sale
		var guestName sql.NullString

		err := rows.Scan(
			&s.ID, &s.GuestID, &s.TotalAmountCents, &s.Paid, &s.PaidAt, &s.Note, &s.CreatedAt,
			&guestName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning sale: %v", ErrDatabaseError, err)
		}

		if s.GuestID != nil {
			guest := models.Guest{ID: *s.GuestID}
			if guestName.Valid {
				guest.FullName = guestName.String
			}
			s.Guest = &guest
		}
		sales = append(sales, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating sale rows: %v", ErrDatabaseError, err)
	}
	return sales, totalCount, nil
}

// MarkSalePaid flips the paid flag and stamps paid_at. The paid = FALSE guard
// makes paid_at write-once at the statement level.
func (r *saleRepository) MarkSalePaid(executor SQLExecutor, saleID int64, paidAt time.Time) error {
	query := `UPDATE sales SET paid = TRUE, paid_at = $1 WHERE id = $2 AND paid = FALSE`
	result, err := executor.Exec(query, paidAt, saleID)
	if err != nil {
		return fmt.Errorf("%w: marking sale ID %d paid: %v", ErrDatabaseError, saleID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for marking sale ID %d paid: %v", ErrDatabaseError, saleID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SumPaidSalesBetween totals settled sales whose settlement time falls inside
// the window. Shift close reads through its own transaction.
func (r *saleRepository) SumPaidSalesBetween(executor SQLExecutor, from, to time.Time) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(total_amount_cents), 0)
	          FROM sales
	          WHERE paid = TRUE AND paid_at BETWEEN $1 AND $2`
	err := executor.QueryRow(query, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: summing paid sales: %v", ErrDatabaseError, err)
	}
	return total, nil
}

// CountSalesWithBalanceByGuest counts the guest's sales that still carry an
// outstanding balance.
func (r *saleRepository) CountSalesWithBalanceByGuest(executor SQLExecutor, guestID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*)
	          FROM sales s
	          WHERE s.guest_id = $1
	            AND s.paid = FALSE
	            AND s.total_amount_cents > COALESCE((SELECT SUM(p.amount_cents) FROM payments p WHERE p.sale_id = s.id), 0)`
	err := executor.QueryRow(query, guestID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting unsettled sales for guest ID %d: %v", ErrDatabaseError, guestID, err)
	}
	return count, nil
}

// --- SaleItem Methods ---

func (r *saleRepository) CreateSaleItem(executor SQLExecutor, item *models.SaleItem) (int64, error) {
	query := `INSERT INTO sale_items (sale_id, catalog_item_id, name, unit_price_cents, quantity, line_total_cents, note)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`

	err := executor.QueryRow(query,
		item.SaleID, item.CatalogItemID, item.Name, item.UnitPriceCents,
		item.Quantity, item.LineTotalCents, item.Note,
	).Scan(&item.ID)

	if err != nil {
		if isForeignKeyViolation(err, "") {
			return 0, fmt.Errorf("%w: creating sale item for sale ID %d", ErrForeignKeyViolation, item.SaleID)
		}
		return 0, fmt.Errorf("%w: creating sale item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

const saleItemSelectQuery = `SELECT id, sale_id, catalog_item_id, name, unit_price_cents, quantity, line_total_cents, note
	FROM sale_items`

func (r *saleRepository) GetSaleItemsBySaleID(saleID int64) ([]models.SaleItem, error) {
	rows, err := r.db.Query(saleItemSelectQuery+` WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying sale items for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return collectSaleItems(rows, saleID)
}

// GetSaleItemsBySaleIDForUpdate retrieves the sale's items and locks them in
// ascending id order until the surrounding transaction ends. Returns processing
// recomputes remaining quantities under these locks.
func (r *saleRepository) GetSaleItemsBySaleIDForUpdate(executor SQLExecutor, saleID int64) ([]models.SaleItem, error) {
	rows, err := executor.Query(saleItemSelectQuery+` WHERE sale_id = $1 ORDER BY id FOR UPDATE`, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: locking sale items for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return collectSaleItems(rows, saleID)
}

func collectSaleItems(rows *sql.Rows, saleID int64) ([]models.SaleItem, error) {
	defer rows.Close()

	items := []models.SaleItem{}
	for rows.Next() {
		var item models.SaleItem
		err := rows.Scan(
			&item.ID, &item.SaleID, &item.CatalogItemID, &item.Name, &item.UnitPriceCents,
			&item.Quantity, &item.LineTotalCents, &item.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning sale item for sale ID %d: %v", ErrDatabaseError, saleID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating sale item rows for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return items, nil
}
