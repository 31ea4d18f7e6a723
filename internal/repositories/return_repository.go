package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"time"
)

// ReturnRepository defines the interface for the append-only returns ledger.
type ReturnRepository interface {
	CreateReturn(executor SQLExecutor, ret *models.Return) (int64, error)
	CreateReturnItem(executor SQLExecutor, item *models.ReturnItem) (int64, error)
	GetReturnByID(returnID int64) (*models.Return, error)
	GetReturnItemsByReturnID(returnID int64) ([]models.ReturnItem, error)
	SumReturnedQuantityBySaleItem(executor SQLExecutor, saleItemID int64) (int, error)
	GetReturnedQuantitiesBySaleID(saleID int64) (map[int64]int, error)
}

type returnRepository struct {
	db *sql.DB
}

// NewReturnRepository creates a new instance of ReturnRepository.
func NewReturnRepository(db *sql.DB) ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) CreateReturn(executor SQLExecutor, ret *models.Return) (int64, error) {
	query := `INSERT INTO returns (sale_id, return_date, refund_amount_cents, refund_method, note, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		ret.SaleID, ret.ReturnDate, ret.RefundAmountCents, ret.RefundMethod, ret.Note, ret.CreatedAt,
	).Scan(&ret.ID)

	if err != nil {
		if isForeignKeyViolation(err, "returns_sale_id_fkey") {
			return 0, fmt.Errorf("%w: sale ID %d referenced by new return", ErrForeignKeyViolation, ret.SaleID)
		}
		return 0, fmt.Errorf("%w: creating return: %v", ErrDatabaseError, err)
	}
	return ret.ID, nil
}

func (r *returnRepository) CreateReturnItem(executor SQLExecutor, item *models.ReturnItem) (int64, error) {
	query := `INSERT INTO return_items (return_id, sale_item_id, quantity, note)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`

	err := executor.QueryRow(query,
		item.ReturnID, item.SaleItemID, item.Quantity, item.Note,
	).Scan(&item.ID)

	if err != nil {
		if isForeignKeyViolation(err, "") {
			return 0, fmt.Errorf("%w: creating return item for return ID %d", ErrForeignKeyViolation, item.ReturnID)
		}
		return 0, fmt.Errorf("%w: creating return item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *returnRepository) GetReturnByID(returnID int64) (*models.Return, error) {
	ret := &models.Return{}
	query := `SELECT id, sale_id, return_date, refund_amount_cents, refund_method, note, created_at
	          FROM returns
	          WHERE id = $1`
	err := r.db.QueryRow(query, returnID).Scan(
		&ret.ID, &ret.SaleID, &ret.ReturnDate, &ret.RefundAmountCents,
		&ret.RefundMethod, &ret.Note, &ret.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting return by ID %d: %v", ErrDatabaseError, returnID, err)
	}
	return ret, nil
}

func (r *returnRepository) GetReturnItemsByReturnID(returnID int64) ([]models.ReturnItem, error) {
	items := []models.ReturnItem{}
	query := `SELECT id, return_id, sale_item_id, quantity, note
	          FROM return_items
	          WHERE return_id = $1
	          ORDER BY id`

	rows, err := r.db.Query(query, returnID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying return items for return ID %d: %v", ErrDatabaseError, returnID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.ReturnItem
		if err := rows.Scan(&item.ID, &item.ReturnID, &item.SaleItemID, &item.Quantity, &item.Note); err != nil {
			return nil, fmt.Errorf("%w: scanning return item for return ID %d: %v", ErrDatabaseError, returnID, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating return item rows for return ID %d: %v", ErrDatabaseError, returnID, err)
	}
	return items, nil
}

// SumReturnedQuantityBySaleItem totals the quantity already returned against
// one sold line. Runs through the caller's transaction so the sum reflects
// committed rows while the sale item lock is held.
func (r *returnRepository) SumReturnedQuantityBySaleItem(executor SQLExecutor, saleItemID int64) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(quantity), 0) FROM return_items WHERE sale_item_id = $1`
	err := executor.QueryRow(query, saleItemID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: summing returned quantity for sale item ID %d: %v", ErrDatabaseError, saleItemID, err)
	}
	return total, nil
}

// GetReturnedQuantitiesBySaleID maps each sale item of the sale to its
// cumulative returned quantity. Lines with no returns are absent from the map.
func (r *returnRepository) GetReturnedQuantitiesBySaleID(saleID int64) (map[int64]int, error) {
	quantities := map[int64]int{}
	query := `SELECT ri.sale_item_id, SUM(ri.quantity)
	          FROM return_items ri
	          JOIN sale_items si ON ri.sale_item_id = si.id
	          WHERE si.sale_id = $1
	          GROUP BY ri.sale_item_id`

	rows, err := r.db.Query(query, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying returned quantities for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var saleItemID int64
		var quantity int
		if err := rows.Scan(&saleItemID, &quantity); err != nil {
			return nil, fmt.Errorf("%w: scanning returned quantity for sale ID %d: %v", ErrDatabaseError, saleID, err)
		}
		quantities[saleItemID] = quantity
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating returned quantity rows for sale ID %d: %v", ErrDatabaseError, saleID, err)
	}
	return quantities, nil
}
