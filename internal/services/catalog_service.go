package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lodgepos_backend/internal/database"
	"lodgepos_backend/internal/models"
	"lodgepos_backend/internal/repositories"
	"lodgepos_backend/pkg/utils"
)

// --- Custom Service Errors for the Catalog ---
var (
	ErrItemNotFound   = fmt.Errorf("%w: catalog item not found", utils.ErrNotFound)
	ErrItemNotTracked = fmt.Errorf("%w: item does not track stock", utils.ErrConflict)
	ErrStockBelowZero = fmt.Errorf("%w: stock cannot go below zero", utils.ErrConflict)
)

// --- Catalog DTOs ---

// CreateCatalogItemRequest is used for adding a sellable item.
type CreateCatalogItemRequest struct {
	Name              string  `json:"name" validate:"required"`
	Category          *string `json:"category"`
	Price             float64 `json:"price" validate:"gte=0"`
	TracksStock       bool    `json:"tracks_stock"`
	StockQuantity     *int    `json:"stock_quantity" validate:"omitempty,gte=0"`
	LowStockThreshold *int    `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

// UpdateCatalogItemRequest carries optional fields; nil means unchanged.
// Stock itself is never edited here: it only moves through orders, returns,
// purchases and AdjustStock so the movement journal stays complete.
type UpdateCatalogItemRequest struct {
	Name              *string  `json:"name"`
	Category          *string  `json:"category"`
	Price             *float64 `json:"price"`
	TracksStock       *bool    `json:"tracks_stock"`
	LowStockThreshold *int     `json:"low_stock_threshold"`
	IsActive          *bool    `json:"is_active"`
}

// --- CatalogService Interface ---
type CatalogService interface {
	CreateItem(req CreateCatalogItemRequest) (*models.CatalogItem, error)
	UpdateItem(itemID int64, req UpdateCatalogItemRequest) (*models.CatalogItem, error)
	GetItem(itemID int64) (*models.CatalogItem, error)
	ListItems(filters models.CatalogFilters) ([]models.CatalogItem, int, error)
	DeactivateItem(itemID int64) error
	AdjustStock(itemID int64, delta int, reason string) (*models.CatalogItem, error)
	ListLowStock() ([]models.CatalogItem, error)
	ListStockMovements(filters models.StockMovementFilters) ([]models.StockMovement, int, error)
}

// --- catalogService Implementation ---
type catalogService struct {
	catalogRepo  repositories.CatalogRepository
	movementRepo repositories.StockMovementRepository
	db           *sql.DB
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(
	cr repositories.CatalogRepository,
	mr repositories.StockMovementRepository,
	db *sql.DB,
) CatalogService {
	return &catalogService{
		catalogRepo:  cr,
		movementRepo: mr,
		db:           db,
	}
}

func (s *catalogService) CreateItem(req CreateCatalogItemRequest) (*models.CatalogItem, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if utils.IsEmpty(req.Name) {
		return nil, fmt.Errorf("%w: item name cannot be empty", ErrValidation)
	}
	if !req.TracksStock {
		if req.StockQuantity != nil {
			return nil, fmt.Errorf("%w: stock_quantity only applies to items that track stock", ErrValidation)
		}
		if req.LowStockThreshold != nil {
			return nil, fmt.Errorf("%w: low_stock_threshold only applies to items that track stock", ErrValidation)
		}
	}

	initialStock := 0
	if req.TracksStock && req.StockQuantity != nil {
		initialStock = *req.StockQuantity
	}
	item := models.CatalogItem{
		Name:              strings.TrimSpace(req.Name),
		Category:          utils.TrimToNil(req.Category),
		PriceCents:        utils.CentsFromAmount(req.Price),
		TracksStock:       req.TracksStock,
		StockQuantity:     initialStock,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          true,
	}

	var itemID int64
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		id, err := s.catalogRepo.CreateItem(tx, &item)
		if err != nil {
			return fmt.Errorf("failed to create catalog item: %w", err)
		}
		// Opening stock enters the journal like any other change.
		if initialStock > 0 {
			reference := "initial stock"
			movement := models.StockMovement{
				CatalogItemID:  id,
				MovementType:   models.MovementTypeAdjustment,
				QuantityChange: initialStock,
				Reference:      &reference,
				MovedAt:        time.Now(),
			}
			if _, err := s.movementRepo.CreateMovement(tx, &movement); err != nil {
				return fmt.Errorf("failed to record opening stock movement: %w", err)
			}
		}
		itemID = id
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.catalogRepo.GetItemByID(itemID)
}

func (s *catalogService) UpdateItem(itemID int64, req UpdateCatalogItemRequest) (*models.CatalogItem, error) {
	item, err := s.catalogRepo.GetItemByID(itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: catalog item ID %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to get catalog item for update: %w", err)
	}

	if req.Name != nil {
		if utils.IsEmpty(*req.Name) {
			return nil, fmt.Errorf("%w: item name cannot be empty if provided", ErrValidation)
		}
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		item.Category = utils.TrimToNil(req.Category)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
		}
		item.PriceCents = utils.CentsFromAmount(*req.Price)
	}
	if req.TracksStock != nil {
		item.TracksStock = *req.TracksStock
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, fmt.Errorf("%w: low_stock_threshold cannot be negative", ErrValidation)
		}
		if !item.TracksStock {
			return nil, fmt.Errorf("%w: low_stock_threshold only applies to items that track stock", ErrValidation)
		}
		item.LowStockThreshold = req.LowStockThreshold
	}
	if !item.TracksStock {
		item.LowStockThreshold = nil
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if err := s.catalogRepo.UpdateItem(s.db, item); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: catalog item ID %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to update catalog item: %w", err)
	}
	return s.catalogRepo.GetItemByID(itemID)
}

func (s *catalogService) GetItem(itemID int64) (*models.CatalogItem, error) {
	item, err := s.catalogRepo.GetItemByID(itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: catalog item ID %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to get catalog item by ID: %w", err)
	}
	return item, nil
}

func (s *catalogService) ListItems(filters models.CatalogFilters) ([]models.CatalogItem, int, error) {
	items, totalCount, err := s.catalogRepo.GetItems(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get catalog items: %w", err)
	}
	return items, totalCount, nil
}

// DeactivateItem soft-deactivates an item so it drops out of active
// listings. Referenced items are never hard-deleted; sale history keeps its
// snapshots either way.
func (s *catalogService) DeactivateItem(itemID int64) error {
	if _, err := s.catalogRepo.GetItemByID(itemID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: catalog item ID %d", ErrItemNotFound, itemID)
		}
		return fmt.Errorf("failed to get catalog item for deactivation: %w", err)
	}
	if err := s.catalogRepo.SetItemActive(s.db, itemID, false, time.Now()); err != nil {
		return fmt.Errorf("failed to deactivate catalog item %d: %w", itemID, err)
	}
	return nil
}

// AdjustStock applies a signed manual correction under a row lock and
// journals it with the caller's reason.
func (s *catalogService) AdjustStock(itemID int64, delta int, reason string) (*models.CatalogItem, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta cannot be zero", ErrValidation)
	}
	if utils.IsEmpty(reason) {
		return nil, fmt.Errorf("%w: adjustment reason cannot be empty", ErrValidation)
	}
	trimmedReason := strings.TrimSpace(reason)

	var alert *lowStockAlert
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		alert = nil

		item, err := s.catalogRepo.GetItemByIDForUpdate(tx, itemID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: catalog item ID %d", ErrItemNotFound, itemID)
			}
			return fmt.Errorf("failed to lock catalog item %d: %w", itemID, err)
		}
		if !item.TracksStock {
			return fmt.Errorf("%w: %s", ErrItemNotTracked, item.Name)
		}

		newQuantity := item.StockQuantity + delta
		if newQuantity < 0 {
			return fmt.Errorf("%w for %s: on hand %d, delta %d", ErrStockBelowZero, item.Name, item.StockQuantity, delta)
		}

		now := time.Now()
		if err := s.catalogRepo.UpdateStock(tx, itemID, newQuantity, now); err != nil {
			return fmt.Errorf("failed to adjust stock for %s: %w", item.Name, err)
		}
		movement := models.StockMovement{
			CatalogItemID:  itemID,
			MovementType:   models.MovementTypeAdjustment,
			QuantityChange: delta,
			Reference:      &trimmedReason,
			MovedAt:        now,
		}
		if _, err := s.movementRepo.CreateMovement(tx, &movement); err != nil {
			return fmt.Errorf("failed to record adjustment movement for %s: %w", item.Name, err)
		}

		if item.LowStockThreshold != nil && newQuantity <= *item.LowStockThreshold {
			alert = &lowStockAlert{
				itemID:    itemID,
				name:      item.Name,
				remaining: newQuantity,
				threshold: *item.LowStockThreshold,
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if alert != nil {
		utils.LogWarn("catalog item at or below low stock threshold", map[string]interface{}{
			"catalog_item_id": alert.itemID,
			"item":            alert.name,
			"stock_quantity":  alert.remaining,
			"threshold":       alert.threshold,
		})
	}
	return s.catalogRepo.GetItemByID(itemID)
}

func (s *catalogService) ListLowStock() ([]models.CatalogItem, error) {
	items, err := s.catalogRepo.GetLowStockItems()
	if err != nil {
		return nil, fmt.Errorf("failed to get low stock items: %w", err)
	}
	return items, nil
}

func (s *catalogService) ListStockMovements(filters models.StockMovementFilters) ([]models.StockMovement, int, error) {
	movements, totalCount, err := s.movementRepo.GetMovements(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get stock movements: %w", err)
	}
	return movements, totalCount, nil
}
