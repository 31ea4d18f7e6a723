package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lodgepos_backend/internal/database"
	"lodgepos_backend/internal/models"
	"lodgepos_backend/internal/repositories"
	"lodgepos_backend/pkg/utils"
)

// --- Custom Service Errors for Orders ---
var (
	ErrSaleNotFound      = fmt.Errorf("%w: sale not found", utils.ErrNotFound)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock for item", utils.ErrConflict)
)

// --- Order DTOs ---

// CreateSaleItemRequest is one requested line. Catalog-bound lines carry a
// catalog_item_id and get name/price from the catalog row; ad-hoc lines carry
// their own name and unit_price instead.
type CreateSaleItemRequest struct {
	CatalogItemID *int64   `json:"catalog_item_id"`
	Name          *string  `json:"name"`
	UnitPrice     *float64 `json:"unit_price"`
	Quantity      int      `json:"quantity" validate:"gt=0"`
	Note          *string  `json:"note"`
}

// CreateSaleRequest is used for placing a new order.
type CreateSaleRequest struct {
	GuestID *int64                  `json:"guest_id"`
	Note    *string                 `json:"note"`
	Items   []CreateSaleItemRequest `json:"items" validate:"min=1,dive"`
}

// SaleLineDetails is one frozen line of a sale for collaborators.
type SaleLineDetails struct {
	ID            int64   `json:"id"`
	CatalogItemID *int64  `json:"catalog_item_id,omitempty"`
	Name          string  `json:"name"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
	LineTotal     float64 `json:"line_total"`
	Note          *string `json:"note,omitempty"`
}

// SaleDetails is the complete plain-data view of a sale.
type SaleDetails struct {
	ID          int64             `json:"id"`
	GuestID     *int64            `json:"guest_id,omitempty"`
	GuestName   *string           `json:"guest_name,omitempty"`
	TotalAmount float64           `json:"total_amount"`
	Paid        bool              `json:"paid"`
	PaidAt      *time.Time        `json:"paid_at,omitempty"`
	Note        *string           `json:"note,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []SaleLineDetails `json:"items"`
}

// --- OrderService Interface ---
type OrderService interface {
	PlaceOrder(req CreateSaleRequest) (*SaleDetails, error)
	GetSale(saleID int64) (*SaleDetails, error)
	ListSales(filters models.SaleFilters) ([]models.Sale, int, error)
}

// --- orderService Implementation ---
type orderService struct {
	saleRepo     repositories.SaleRepository
	catalogRepo  repositories.CatalogRepository
	movementRepo repositories.StockMovementRepository
	guestRepo    repositories.GuestRepository
	db           *sql.DB
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	sr repositories.SaleRepository,
	cr repositories.CatalogRepository,
	mr repositories.StockMovementRepository,
	gr repositories.GuestRepository,
	db *sql.DB,
) OrderService {
	return &orderService{
		saleRepo:     sr,
		catalogRepo:  cr,
		movementRepo: mr,
		guestRepo:    gr,
		db:           db,
	}
}

type lowStockAlert struct {
	itemID    int64
	name      string
	remaining int
	threshold int
}

// PlaceOrder creates a sale with its items, decrements tracked stock and
// journals the movements, all in one transaction. Catalog rows are locked in
// ascending id order so concurrent multi-item orders cannot deadlock on each
// other.
func (s *orderService) PlaceOrder(req CreateSaleRequest) (*SaleDetails, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	for i, line := range req.Items {
		if line.CatalogItemID != nil {
			continue
		}
		if line.Name == nil || strings.TrimSpace(*line.Name) == "" {
			return nil, fmt.Errorf("%w: item %d needs a catalog_item_id or a name", ErrValidation, i+1)
		}
		if line.UnitPrice == nil {
			return nil, fmt.Errorf("%w: ad-hoc item %q needs a unit_price", ErrValidation, *line.Name)
		}
		if *line.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: unit_price for item %q cannot be negative", ErrValidation, *line.Name)
		}
	}

	if req.GuestID != nil {
		if _, err := s.guestRepo.GetGuestByID(*req.GuestID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: guest ID %d", ErrGuestNotFound, *req.GuestID)
			}
			return nil, fmt.Errorf("failed to fetch guest %d: %w", *req.GuestID, err)
		}
	}

	catalogIDs := make([]int64, 0, len(req.Items))
	seen := make(map[int64]bool)
	for _, line := range req.Items {
		if line.CatalogItemID != nil && !seen[*line.CatalogItemID] {
			seen[*line.CatalogItemID] = true
			catalogIDs = append(catalogIDs, *line.CatalogItemID)
		}
	}
	sort.Slice(catalogIDs, func(i, j int) bool { return catalogIDs[i] < catalogIDs[j] })

	var saleID int64
	var alerts []lowStockAlert

	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		alerts = nil

		itemsByID := make(map[int64]*models.CatalogItem, len(catalogIDs))
		if len(catalogIDs) > 0 {
			lockedItems, err := s.catalogRepo.GetItemsByIDsForUpdate(tx, catalogIDs)
			if err != nil {
				return fmt.Errorf("failed to lock catalog items: %w", err)
			}
			for i := range lockedItems {
				itemsByID[lockedItems[i].ID] = &lockedItems[i]
			}
			for _, id := range catalogIDs {
				if _, ok := itemsByID[id]; !ok {
					return fmt.Errorf("%w: catalog item ID %d", ErrItemNotFound, id)
				}
			}
		}

		var totalCents int64
		needed := make(map[int64]int)
		saleItems := make([]models.SaleItem, 0, len(req.Items))

		for _, line := range req.Items {
			item := models.SaleItem{Quantity: line.Quantity, Note: utils.TrimToNil(line.Note)}
			if line.CatalogItemID != nil {
				catalogItem := itemsByID[*line.CatalogItemID]
				item.CatalogItemID = line.CatalogItemID
				item.Name = catalogItem.Name
				item.UnitPriceCents = catalogItem.PriceCents
				if catalogItem.TracksStock {
					needed[catalogItem.ID] += line.Quantity
				}
			} else {
				item.Name = strings.TrimSpace(*line.Name)
				item.UnitPriceCents = utils.CentsFromAmount(*line.UnitPrice)
			}
			item.LineTotalCents = item.UnitPriceCents * int64(item.Quantity)
			totalCents += item.LineTotalCents
			saleItems = append(saleItems, item)
		}

		// All stock checks run before any write so a failing line leaves
		// nothing behind.
		for _, id := range catalogIDs {
			need, ok := needed[id]
			if !ok {
				continue
			}
			item := itemsByID[id]
			if item.StockQuantity < need {
				return fmt.Errorf("%w %s: requested %d, available %d",
					ErrInsufficientStock, item.Name, need, item.StockQuantity)
			}
		}

		now := time.Now()
		sale := models.Sale{
			GuestID:          req.GuestID,
			TotalAmountCents: totalCents,
			Paid:             false,
			Note:             utils.TrimToNil(req.Note),
			CreatedAt:        now,
		}
		createdID, err := s.saleRepo.CreateSale(tx, &sale)
		if err != nil {
			return fmt.Errorf("failed to create sale record: %w", err)
		}

		for i := range saleItems {
			saleItems[i].SaleID = createdID
			if _, err := s.saleRepo.CreateSaleItem(tx, &saleItems[i]); err != nil {
				return fmt.Errorf("failed to create sale item %q: %w", saleItems[i].Name, err)
			}
		}

		reference := fmt.Sprintf("sale #%d", createdID)
		for _, id := range catalogIDs {
			need, ok := needed[id]
			if !ok {
				continue
			}
			item := itemsByID[id]
			remaining := item.StockQuantity - need
			if err := s.catalogRepo.UpdateStock(tx, id, remaining, now); err != nil {
				return fmt.Errorf("failed to decrement stock for %s: %w", item.Name, err)
			}
			movement := models.StockMovement{
				CatalogItemID:  id,
				MovementType:   models.MovementTypeSale,
				QuantityChange: -need,
				Reference:      &reference,
				MovedAt:        now,
			}
			if _, err := s.movementRepo.CreateMovement(tx, &movement); err != nil {
				return fmt.Errorf("failed to record stock movement for %s: %w", item.Name, err)
			}
			if item.LowStockThreshold != nil && remaining <= *item.LowStockThreshold {
				alerts = append(alerts, lowStockAlert{
					itemID:    id,
					name:      item.Name,
					remaining: remaining,
					threshold: *item.LowStockThreshold,
				})
			}
		}

		saleID = createdID
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, a := range alerts {
		utils.LogWarn("catalog item at or below low stock threshold", map[string]interface{}{
			"catalog_item_id": a.itemID,
			"item":            a.name,
			"stock_quantity":  a.remaining,
			"threshold":       a.threshold,
		})
	}
	utils.LogInfo("sale placed", map[string]interface{}{"sale_id": saleID})

	return s.GetSale(saleID)
}

func (s *orderService) GetSale(saleID int64) (*SaleDetails, error) {
	sale, err := s.saleRepo.GetSaleByID(saleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: sale ID %d", ErrSaleNotFound, saleID)
		}
		return nil, fmt.Errorf("failed to get sale by ID: %w", err)
	}
	items, err := s.saleRepo.GetSaleItemsBySaleID(saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale items for sale %d: %w", saleID, err)
	}

	details := &SaleDetails{
		ID:          sale.ID,
		GuestID:     sale.GuestID,
		TotalAmount: utils.AmountFromCents(sale.TotalAmountCents),
		Paid:        sale.Paid,
		PaidAt:      sale.PaidAt,
		Note:        sale.Note,
		CreatedAt:   sale.CreatedAt,
		Items:       make([]SaleLineDetails, 0, len(items)),
	}
	for _, item := range items {
		details.Items = append(details.Items, SaleLineDetails{
			ID:            item.ID,
			CatalogItemID: item.CatalogItemID,
			Name:          item.Name,
			UnitPrice:     utils.AmountFromCents(item.UnitPriceCents),
			Quantity:      item.Quantity,
			LineTotal:     utils.AmountFromCents(item.LineTotalCents),
			Note:          item.Note,
		})
	}
	if sale.GuestID != nil {
		guest, err := s.guestRepo.GetGuestByID(*sale.GuestID)
		if err == nil {
			details.GuestName = &guest.FullName
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to get guest for sale %d: %w", saleID, err)
		}
	}
	return details, nil
}

func (s *orderService) ListSales(filters models.SaleFilters) ([]models.Sale, int, error) {
	sales, totalCount, err := s.saleRepo.GetSales(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get sales: %w", err)
	}
	return sales, totalCount, nil
}
