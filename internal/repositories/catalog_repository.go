package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"

	"github.com/lib/pq"
)

// CatalogRepository defines the interface for catalog item database operations.
type CatalogRepository interface {
	CreateItem(executor SQLExecutor, item *models.CatalogItem) (int64, error)
	GetItemByID(id int64) (*models.CatalogItem, error)
	GetItemByIDForUpdate(executor SQLExecutor, id int64) (*models.CatalogItem, error)
	GetItemsByIDsForUpdate(executor SQLExecutor, ids []int64) ([]models.CatalogItem, error)
	GetItems(filters models.CatalogFilters) ([]models.CatalogItem, int, error) // Items, total count, error
	UpdateItem(executor SQLExecutor, item *models.CatalogItem) error
	SetItemActive(executor SQLExecutor, id int64, active bool, updatedAt time.Time) error
	UpdateStock(executor SQLExecutor, itemID int64, stockQuantity int, updatedAt time.Time) error
	GetLowStockItems() ([]models.CatalogItem, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

const catalogItemColumns = `id, name, category, price_cents, tracks_stock, stock_quantity, low_stock_threshold, is_active, created_at, updated_at`

// CreateItem inserts a new catalog item into the database.
func (r *catalogRepository) CreateItem(executor SQLExecutor, item *models.CatalogItem) (int64, error) {
	query := `INSERT INTO catalog_items
	          (name, category, price_cents, tracks_stock, stock_quantity, low_stock_threshold, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`

	currentTime := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = currentTime
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = currentTime
	}

	var lowStockThreshold sql.NullInt64
	if item.TracksStock && item.LowStockThreshold != nil {
		lowStockThreshold = sql.NullInt64{Int64: int64(*item.LowStockThreshold), Valid: true}
	}

	err := executor.QueryRow(query,
		item.Name, item.Category, item.PriceCents, item.TracksStock, item.StockQuantity,
		lowStockThreshold, item.IsActive, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating catalog item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

// GetItemByID retrieves a catalog item by its ID.
func (r *catalogRepository) GetItemByID(id int64) (*models.CatalogItem, error) {
	row := r.db.QueryRow(`SELECT `+catalogItemColumns+` FROM catalog_items WHERE id = $1`, id)
	item, err := scanCatalogItemRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting catalog item by ID %d: %v", ErrDatabaseError, id, err)
	}
	return item, nil
}

// GetItemByIDForUpdate retrieves a catalog item and locks the row until the
// surrounding transaction ends.
func (r *catalogRepository) GetItemByIDForUpdate(executor SQLExecutor, id int64) (*models.CatalogItem, error) {
	row := executor.QueryRow(`SELECT `+catalogItemColumns+` FROM catalog_items WHERE id = $1 FOR UPDATE`, id)
	item, err := scanCatalogItemRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking catalog item ID %d: %v", ErrDatabaseError, id, err)
	}
	return item, nil
}

// GetItemsByIDsForUpdate retrieves and locks a batch of catalog items.
// Rows are locked in ascending id order so concurrent multi-item transactions
// acquire locks in the same sequence.
func (r *catalogRepository) GetItemsByIDsForUpdate(executor SQLExecutor, ids []int64) ([]models.CatalogItem, error) {
	items := []models.CatalogItem{}
	if len(ids) == 0 {
		return items, nil
	}

	query := `SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := executor.Query(query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: locking catalog items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanCatalogItemRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning locked catalog item: %v", ErrDatabaseError, err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating locked catalog items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func scanCatalogItemRow(row scanner) (*models.CatalogItem, error) {
	item := &models.CatalogItem{}
	var lowStockThreshold sql.NullInt64

	err := row.Scan(
		&item.ID, &item.Name, &item.Category, &item.PriceCents, &item.TracksStock,
		&item.StockQuantity, &lowStockThreshold, &item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lowStockThreshold.Valid {
		val := int(lowStockThreshold.Int64)
		item.LowStockThreshold = &val
	}
	return item, nil
}

// GetItems retrieves a list of catalog items with pagination and optional filters.
func (r *catalogRepository) GetItems(filters models.CatalogFilters) ([]models.CatalogItem, int, error) {
	items := []models.CatalogItem{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + catalogItemColumns + `, COUNT(*) OVER() AS total_count FROM catalog_items`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Category != nil && *filters.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCount))
		args = append(args, *filters.Category)
		argCount++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argCount))
		args = append(args, *filters.IsActive)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		searchPattern := "%" + *filters.Search + "%"
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argCount))
		args = append(args, searchPattern)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY name ASC")

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
		return nil, 0, fmt.Errorf("%w: querying catalog items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CatalogItem
		var lowStockThreshold sql.NullInt64

		if err := rows.Scan(
			&item.ID, &item.Name, &item.Category, &item.PriceCents, &item.TracksStock,
			&item.StockQuantity, &lowStockThreshold, &item.IsActive, &item.CreatedAt, &item.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning catalog item: %v", ErrDatabaseError, err)
		}
		if lowStockThreshold.Valid {
			val := int(lowStockThreshold.Int64)
			item.LowStockThreshold = &val
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating catalog item rows: %v", ErrDatabaseError, err)
	}
	return items, totalCount, nil
}

// UpdateItem updates an existing catalog item in the database.
func (r *catalogRepository) UpdateItem(executor SQLExecutor, item *models.CatalogItem) error {
	query := `UPDATE catalog_items SET
	            name = $1, category = $2, price_cents = $3, tracks_stock = $4,
	            stock_quantity = $5, low_stock_threshold = $6, is_active = $7, updated_at = $8
	          WHERE id = $9`

	item.UpdatedAt = time.Now()

	var lowStockThreshold sql.NullInt64
	if item.TracksStock && item.LowStockThreshold != nil {
		lowStockThreshold = sql.NullInt64{Int64: int64(*item.LowStockThreshold), Valid: true}
	}

	result, err := executor.Exec(query,
		item.Name, item.Category, item.PriceCents, item.TracksStock,
		item.StockQuantity, lowStockThreshold, item.IsActive, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating catalog item ID %d: %v", ErrDatabaseError, item.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for updating catalog item ID %d: %v", ErrDatabaseError, item.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetItemActive flips the availability flag of a catalog item.
func (r *catalogRepository) SetItemActive(executor SQLExecutor, id int64, active bool, updatedAt time.Time) error {
	query := `UPDATE catalog_items SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, active, updatedAt, id)
	if err != nil {
		return fmt.Errorf("%w: setting active flag for catalog item ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for active flag update item ID %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStock sets the absolute stock level of a catalog item. Callers hold the
// row lock and compute the new level; the table CHECK rejects negatives as the
// final guard.
func (r *catalogRepository) UpdateStock(executor SQLExecutor, itemID int64, stockQuantity int, updatedAt time.Time) error {
	query := `UPDATE catalog_items SET stock_quantity = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, stockQuantity, updatedAt, itemID)
	if err != nil {
		return fmt.Errorf("%w: updating stock for catalog item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for stock update item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLowStockItems lists tracked items at or below their low stock threshold.
func (r *catalogRepository) GetLowStockItems() ([]models.CatalogItem, error) {
	items := []models.CatalogItem{}
	query := `SELECT ` + catalogItemColumns + `
	          FROM catalog_items
	          WHERE tracks_stock = TRUE AND low_stock_threshold IS NOT NULL AND stock_quantity <= low_stock_threshold
	          ORDER BY stock_quantity ASC, name ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying low stock items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanCatalogItemRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning low stock item: %v", ErrDatabaseError, err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating low stock rows: %v", ErrDatabaseError, err)
	}
	return items, nil
}
