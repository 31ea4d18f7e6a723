package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"lodgepos_backend/internal/database"
	"lodgepos_backend/internal/models"
	"lodgepos_backend/internal/repositories"
	"lodgepos_backend/pkg/utils"
)

// --- Custom Service Errors for Returns ---
var (
	ErrSaleItemNotFound       = fmt.Errorf("%w: sale item not found on this sale", utils.ErrNotFound)
	ErrReturnExceedsRemaining = fmt.Errorf("%w: return exceeds remaining quantity", utils.ErrConflict)
	ErrRefundExceedsTotal     = fmt.Errorf("%w: refund exceeds the returned line total", utils.ErrConflict)
)

// --- Return DTOs ---

// ReturnableItem describes how much of one sale line can still come back.
type ReturnableItem struct {
	SaleItemID   int64   `json:"sale_item_id"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	SoldQty      int     `json:"sold_qty"`
	ReturnedQty  int     `json:"returned_qty"`
	RemainingQty int     `json:"remaining_qty"`
}

// ReturnLineRequest is one requested return line.
type ReturnLineRequest struct {
	SaleItemID int64   `json:"sale_item_id" validate:"gt=0"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	Note       *string `json:"note"`
}

// ProcessReturnRequest is used for processing a return against a sale.
type ProcessReturnRequest struct {
	SaleID       int64               `json:"sale_id" validate:"gt=0"`
	ReturnDate   string              `json:"return_date"` // YYYY-MM-DD, defaults to today
	RefundMethod *string             `json:"refund_method"`
	RefundAmount *float64            `json:"refund_amount"` // Defaults to the computed line total
	Note         *string             `json:"note"`
	Items        []ReturnLineRequest `json:"items" validate:"min=1,dive"`
}

// ReturnLineDetails is one processed return line.
type ReturnLineDetails struct {
	SaleItemID int64   `json:"sale_item_id"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	LineTotal  float64 `json:"line_total"`
}

// ReturnDetails is the plain-data view of a processed return.
type ReturnDetails struct {
	ID           int64               `json:"id"`
	SaleID       int64               `json:"sale_id"`
	ReturnDate   time.Time           `json:"return_date"`
	RefundAmount float64             `json:"refund_amount"`
	RefundMethod *string             `json:"refund_method,omitempty"`
	Note         *string             `json:"note,omitempty"`
	Items        []ReturnLineDetails `json:"items"`
}

// --- ReturnsService Interface ---
type ReturnsService interface {
	GetReturnableItems(saleID int64) ([]ReturnableItem, error)
	ProcessReturn(req ProcessReturnRequest) (*ReturnDetails, error)
}

// --- returnsService Implementation ---
type returnsService struct {
	saleRepo     repositories.SaleRepository
	returnRepo   repositories.ReturnRepository
	catalogRepo  repositories.CatalogRepository
	movementRepo repositories.StockMovementRepository
	db           *sql.DB
}

// NewReturnsService creates a new instance of ReturnsService.
func NewReturnsService(
	sr repositories.SaleRepository,
	rr repositories.ReturnRepository,
	cr repositories.CatalogRepository,
	mr repositories.StockMovementRepository,
	db *sql.DB,
) ReturnsService {
	return &returnsService{
		saleRepo:     sr,
		returnRepo:   rr,
		catalogRepo:  cr,
		movementRepo: mr,
		db:           db,
	}
}

func (s *returnsService) GetReturnableItems(saleID int64) ([]ReturnableItem, error) {
	if _, err := s.saleRepo.GetSaleByID(saleID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: sale ID %d", ErrSaleNotFound, saleID)
		}
		return nil, fmt.Errorf("failed to get sale by ID: %w", err)
	}
	items, err := s.saleRepo.GetSaleItemsBySaleID(saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale items for sale %d: %w", saleID, err)
	}
	returned, err := s.returnRepo.GetReturnedQuantitiesBySaleID(saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get returned quantities for sale %d: %w", saleID, err)
	}

	returnable := make([]ReturnableItem, 0, len(items))
	for _, item := range items {
		remaining := item.Quantity - returned[item.ID]
		if remaining < 0 {
			remaining = 0
		}
		returnable = append(returnable, ReturnableItem{
			SaleItemID:   item.ID,
			Name:         item.Name,
			UnitPrice:    utils.AmountFromCents(item.UnitPriceCents),
			SoldQty:      item.Quantity,
			ReturnedQty:  returned[item.ID],
			RemainingQty: remaining,
		})
	}
	return returnable, nil
}

// ProcessReturn records a return against a sale and restocks tracked catalog
// items. Sale item rows are locked FOR UPDATE and the remaining quantity is
// recomputed from committed return rows inside the transaction, so concurrent
// returns cannot overdraw a line. The payment ledger is never touched; refund
// amount and method are bookkeeping only.
func (s *returnsService) ProcessReturn(req ProcessReturnRequest) (*ReturnDetails, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	returnDate, err := parseDateOr(req.ReturnDate, time.Now())
	if err != nil {
		return nil, err
	}
	var requestedRefund *int64
	if req.RefundAmount != nil {
		cents := utils.CentsFromAmount(*req.RefundAmount)
		if cents < 0 {
			return nil, fmt.Errorf("%w: refund_amount cannot be negative", ErrValidation)
		}
		requestedRefund = &cents
	}

	var details *ReturnDetails
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		details = nil

		if _, err := s.saleRepo.GetSaleByID(req.SaleID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: sale ID %d", ErrSaleNotFound, req.SaleID)
			}
			return fmt.Errorf("failed to get sale by ID: %w", err)
		}

		saleItems, err := s.saleRepo.GetSaleItemsBySaleIDForUpdate(tx, req.SaleID)
		if err != nil {
			return fmt.Errorf("failed to lock sale items for sale %d: %w", req.SaleID, err)
		}
		itemsByID := make(map[int64]*models.SaleItem, len(saleItems))
		for i := range saleItems {
			itemsByID[saleItems[i].ID] = &saleItems[i]
		}

		// Accumulate requested quantities per sale item; a line may appear
		// more than once in the request.
		requested := make(map[int64]int)
		orderedIDs := make([]int64, 0, len(req.Items))
		for _, line := range req.Items {
			saleItem, ok := itemsByID[line.SaleItemID]
			if !ok {
				return fmt.Errorf("%w: sale item ID %d on sale %d", ErrSaleItemNotFound, line.SaleItemID, req.SaleID)
			}
			if _, dup := requested[saleItem.ID]; !dup {
				orderedIDs = append(orderedIDs, saleItem.ID)
			}
			requested[saleItem.ID] += line.Quantity
		}

		var computedTotal int64
		for _, saleItemID := range orderedIDs {
			saleItem := itemsByID[saleItemID]
			returnedSoFar, err := s.returnRepo.SumReturnedQuantityBySaleItem(tx, saleItemID)
			if err != nil {
				return fmt.Errorf("failed to sum returned quantity for sale item %d: %w", saleItemID, err)
			}
			remaining := saleItem.Quantity - returnedSoFar
			if remaining < 0 {
				remaining = 0
			}
			if requested[saleItemID] > remaining {
				return fmt.Errorf("%w for %s: requested %d, remaining %d",
					ErrReturnExceedsRemaining, saleItem.Name, requested[saleItemID], remaining)
			}
			computedTotal += saleItem.UnitPriceCents * int64(requested[saleItemID])
		}

		refundCents := computedTotal
		if requestedRefund != nil {
			if *requestedRefund > computedTotal {
				return fmt.Errorf("%w: refund %.2f exceeds returned total %.2f",
					ErrRefundExceedsTotal, utils.AmountFromCents(*requestedRefund), utils.AmountFromCents(computedTotal))
			}
			refundCents = *requestedRefund
		}

		now := time.Now()
		ret := models.Return{
			SaleID:            req.SaleID,
			ReturnDate:        returnDate,
			RefundAmountCents: refundCents,
			RefundMethod:      utils.TrimToNil(req.RefundMethod),
			Note:              utils.TrimToNil(req.Note),
			CreatedAt:         now,
		}
		returnID, err := s.returnRepo.CreateReturn(tx, &ret)
		if err != nil {
			return fmt.Errorf("failed to create return record: %w", err)
		}
		for _, line := range req.Items {
			item := models.ReturnItem{
				ReturnID:   returnID,
				SaleItemID: line.SaleItemID,
				Quantity:   line.Quantity,
				Note:       utils.TrimToNil(line.Note),
			}
			if _, err := s.returnRepo.CreateReturnItem(tx, &item); err != nil {
				return fmt.Errorf("failed to create return item for sale item %d: %w", line.SaleItemID, err)
			}
		}

		// Restock tracked catalog entries, locking catalog rows in ascending
		// id order like order placement does.
		restock := make(map[int64]int)
		for _, saleItemID := range orderedIDs {
			saleItem := itemsByID[saleItemID]
			if saleItem.CatalogItemID != nil {
				restock[*saleItem.CatalogItemID] += requested[saleItemID]
			}
		}
		if len(restock) > 0 {
			catalogIDs := make([]int64, 0, len(restock))
			for id := range restock {
				catalogIDs = append(catalogIDs, id)
			}
			sort.Slice(catalogIDs, func(i, j int) bool { return catalogIDs[i] < catalogIDs[j] })

			lockedItems, err := s.catalogRepo.GetItemsByIDsForUpdate(tx, catalogIDs)
			if err != nil {
				return fmt.Errorf("failed to lock catalog items for restock: %w", err)
			}
			reference := fmt.Sprintf("return #%d", returnID)
			for i := range lockedItems {
				catalogItem := &lockedItems[i]
				if !catalogItem.TracksStock {
					continue
				}
				qty := restock[catalogItem.ID]
				if err := s.catalogRepo.UpdateStock(tx, catalogItem.ID, catalogItem.StockQuantity+qty, now); err != nil {
					return fmt.Errorf("failed to restock %s: %w", catalogItem.Name, err)
				}
				movement := models.StockMovement{
					CatalogItemID:  catalogItem.ID,
					MovementType:   models.MovementTypeReturn,
					QuantityChange: qty,
					Reference:      &reference,
					MovedAt:        now,
				}
				if _, err := s.movementRepo.CreateMovement(tx, &movement); err != nil {
					return fmt.Errorf("failed to record restock movement for %s: %w", catalogItem.Name, err)
				}
			}
		}

		lines := make([]ReturnLineDetails, 0, len(orderedIDs))
		for _, saleItemID := range orderedIDs {
			saleItem := itemsByID[saleItemID]
			qty := requested[saleItemID]
			lines = append(lines, ReturnLineDetails{
				SaleItemID: saleItemID,
				Name:       saleItem.Name,
				UnitPrice:  utils.AmountFromCents(saleItem.UnitPriceCents),
				Quantity:   qty,
				LineTotal:  utils.AmountFromCents(saleItem.UnitPriceCents * int64(qty)),
			})
		}
		details = &ReturnDetails{
			ID:           returnID,
			SaleID:       req.SaleID,
			ReturnDate:   returnDate,
			RefundAmount: utils.AmountFromCents(refundCents),
			RefundMethod: ret.RefundMethod,
			Note:         ret.Note,
			Items:        lines,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("return processed", map[string]interface{}{
		"return_id":     details.ID,
		"sale_id":       details.SaleID,
		"refund_amount": details.RefundAmount,
	})
	return details, nil
}
