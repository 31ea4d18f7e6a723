package models

import "time"

// CatalogItem represents a sellable item (bar stock, shop goods, services).
// Items with TracksStock=false are sold without any inventory accounting.
type CatalogItem struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Category          *string   `json:"category,omitempty" db:"category"`
	PriceCents        int64     `json:"price_cents" db:"price_cents"`
	TracksStock       bool      `json:"tracks_stock" db:"tracks_stock"`
	StockQuantity     int       `json:"stock_quantity" db:"stock_quantity"` // Meaningful only when TracksStock
	LowStockThreshold *int      `json:"low_stock_threshold,omitempty" db:"low_stock_threshold"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// CatalogFilters defines the available filters for querying catalog items.
type CatalogFilters struct {
	Category *string
	IsActive *bool
	Search   *string // Matches item name
	Page     int
	PageSize int
}

// Stock movement types. Movements are append-only; a reversal is a new
// movement with the opposite sign, never an edit.
const (
	MovementTypeSale             = "sale"
	MovementTypeReturn           = "return"
	MovementTypePurchase         = "purchase"
	MovementTypePurchaseRollback = "purchase_rollback"
	MovementTypeAdjustment       = "adjustment"
)

// StockMovement represents one signed change of a catalog item's stock level.
type StockMovement struct {
	ID             int64        `json:"id" db:"id"`
	CatalogItemID  int64        `json:"catalog_item_id" db:"catalog_item_id"`
	MovementType   string       `json:"movement_type" db:"movement_type"`
	QuantityChange int          `json:"quantity_change" db:"quantity_change"`
	Reference      *string      `json:"reference,omitempty" db:"reference"`
	MovedAt        time.Time    `json:"moved_at" db:"moved_at"`
	CatalogItem    *CatalogItem `json:"catalog_item,omitempty"`
}

// StockMovementFilters defines the available filters for querying stock movements.
type StockMovementFilters struct {
	CatalogItemID *int64
	MovementType  *string
	Page          int
	PageSize      int
}
