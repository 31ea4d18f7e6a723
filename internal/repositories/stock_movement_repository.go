package repositories

import (
	"database/sql"
	"fmt"
	"lodgepos_backend/internal/models"
	"strings"
	"time"
)

// StockMovementRepository defines the interface for the stock movement journal.
type StockMovementRepository interface {
	CreateMovement(executor SQLExecutor, movement *models.StockMovement) (int64, error)
	GetMovements(filters models.StockMovementFilters) ([]models.StockMovement, int, error)
}

type stockMovementRepository struct {
	db *sql.DB
}

// NewStockMovementRepository creates a new instance of StockMovementRepository.
func NewStockMovementRepository(db *sql.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) CreateMovement(executor SQLExecutor, movement *models.StockMovement) (int64, error) {
	query := `INSERT INTO stock_movements (catalog_item_id, movement_type, quantity_change, reference, moved_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	if movement.MovedAt.IsZero() {
		movement.MovedAt = time.Now()
	}

	err := executor.QueryRow(query,
		movement.CatalogItemID, movement.MovementType, movement.QuantityChange,
		movement.Reference, movement.MovedAt,
	).Scan(&movement.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating stock movement: %v", ErrDatabaseError, err)
	}
	return movement.ID, nil
}

func (r *stockMovementRepository) GetMovements(filters models.StockMovementFilters) ([]models.StockMovement, int, error) {
	movements := []models.StockMovement{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    sm.id, sm.catalog_item_id, sm.movement_type, sm.quantity_change, sm.reference, sm.moved_at,
	    ci.name as item_name, ci.tracks_stock as item_tracks_stock,
	    COUNT(*) OVER() AS total_count
	  FROM stock_movements sm
	  JOIN catalog_items ci ON sm.catalog_item_id = ci.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.CatalogItemID != nil {
		conditions = append(conditions, fmt.Sprintf("sm.catalog_item_id = $%d", argCount))
		args = append(args, *filters.CatalogItemID)
		argCount++
	}
	if filters.MovementType != nil && *filters.MovementType != "" {
		conditions = append(conditions, fmt.Sprintf("sm.movement_type = $%d", argCount))
		args = append(args, *filters.MovementType)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY sm.moved_at DESC, sm.id DESC")

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
		return nil, 0, fmt.Errorf("%w: querying stock movements: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var movement models.StockMovement
		var itemName sql.NullString
		var itemTracksStock sql.NullBool

		if err := rows.Scan(
			&movement.ID, &movement.CatalogItemID, &movement.MovementType, &movement.QuantityChange,
			&movement.Reference, &movement.MovedAt,
			&itemName, &itemTracksStock,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning stock movement: %v", ErrDatabaseError, err)
		}

		item := models.CatalogItem{ID: movement.CatalogItemID}
		if itemName.Valid {
			item.Name = itemName.String
		}
		if itemTracksStock.Valid {
			item.TracksStock = itemTracksStock.Bool
		}
		movement.CatalogItem = &item

		movements = append(movements, movement)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating stock movement rows: %v", ErrDatabaseError, err)
	}
	return movements, totalCount, nil
}
