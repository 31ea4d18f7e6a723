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

// --- Custom Service Errors for Procurement ---
var (
	ErrPurchaseNotFound              = fmt.Errorf("%w: purchase not found", utils.ErrNotFound)
	ErrSupplierNotFound              = fmt.Errorf("%w: supplier not found", utils.ErrNotFound)
	ErrStockRollbackNegative         = fmt.Errorf("%w: stock rollback would go below zero", utils.ErrConflict)
	ErrSupplierPaymentExceedsBalance = fmt.Errorf("%w: supplier payment exceeds purchase balance", utils.ErrConflict)
)

// --- Purchase DTOs ---

// CreatePurchaseItemRequest is one received line. Catalog-bound lines carry a
// catalog_item_id and get their name from the catalog row; the unit cost is
// always caller-supplied since procurement cost is not the sale price.
type CreatePurchaseItemRequest struct {
	CatalogItemID *int64  `json:"catalog_item_id"`
	Name          *string `json:"name"`
	Quantity      int     `json:"quantity" validate:"gt=0"`
	UnitCost      float64 `json:"unit_cost" validate:"gte=0"`
}

// CreatePurchaseRequest is used for entering a supplier delivery.
type CreatePurchaseRequest struct {
	SupplierID    *int64                      `json:"supplier_id"`
	PurchaseDate  string                      `json:"purchase_date"` // YYYY-MM-DD, defaults to today
	PaymentMode   string                      `json:"payment_mode" validate:"required"`
	PaymentAmount *float64                    `json:"payment_amount"` // Only for pay_partial
	PaymentMethod *string                     `json:"payment_method"`
	Note          *string                     `json:"note"`
	Items         []CreatePurchaseItemRequest `json:"items" validate:"min=1,dive"`
}

// RecordSupplierPaymentRequest is used for paying down an open purchase.
type RecordSupplierPaymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Method *string `json:"method"`
	Note   *string `json:"note"`
}

// CreateSupplierRequest is used for registering a supplier.
type CreateSupplierRequest struct {
	Name  string  `json:"name" validate:"required"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

// PurchaseLineDetails is one received line of a purchase.
type PurchaseLineDetails struct {
	ID            int64   `json:"id"`
	CatalogItemID *int64  `json:"catalog_item_id,omitempty"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	UnitCost      float64 `json:"unit_cost"`
	LineTotal     float64 `json:"line_total"`
}

// SupplierPaymentDetails is one procurement ledger entry.
type SupplierPaymentDetails struct {
	ID     int64     `json:"id"`
	Amount float64   `json:"amount"`
	Method *string   `json:"method,omitempty"`
	Note   *string   `json:"note,omitempty"`
	PaidAt time.Time `json:"paid_at"`
}

// PurchaseDetails is the complete plain-data view of a purchase.
type PurchaseDetails struct {
	ID           int64                    `json:"id"`
	SupplierID   *int64                   `json:"supplier_id,omitempty"`
	SupplierName *string                  `json:"supplier_name,omitempty"`
	PurchaseDate time.Time                `json:"purchase_date"`
	TotalAmount  float64                  `json:"total_amount"`
	AmountPaid   float64                  `json:"amount_paid"`
	BalanceDue   float64                  `json:"balance_due"`
	Note         *string                  `json:"note,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	Items        []PurchaseLineDetails    `json:"items"`
	Payments     []SupplierPaymentDetails `json:"payments"`
}

// SupplierBalance is the outstanding position against one supplier.
type SupplierBalance struct {
	SupplierID     int64   `json:"supplier_id"`
	Name           string  `json:"name"`
	TotalPurchased float64 `json:"total_purchased"`
	TotalPaid      float64 `json:"total_paid"`
	BalanceDue     float64 `json:"balance_due"`
}

// --- PurchaseService Interface ---
type PurchaseService interface {
	AddPurchase(req CreatePurchaseRequest) (*PurchaseDetails, error)
	GetPurchase(purchaseID int64) (*PurchaseDetails, error)
	ListPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error)
	DeletePurchase(purchaseID int64, rollbackStock bool) error
	RecordSupplierPayment(purchaseID int64, req RecordSupplierPaymentRequest) (*PurchaseDetails, error)

	CreateSupplier(req CreateSupplierRequest) (*models.Supplier, error)
	GetSupplier(supplierID int64) (*models.Supplier, error)
	ListSuppliers(page, pageSize int, searchTerm *string) ([]models.Supplier, int, error)
	GetSupplierBalance(supplierID int64) (*SupplierBalance, error)
}

// --- purchaseService Implementation ---
type purchaseService struct {
	purchaseRepo repositories.PurchaseRepository
	supplierRepo repositories.SupplierRepository
	catalogRepo  repositories.CatalogRepository
	movementRepo repositories.StockMovementRepository
	db           *sql.DB
}

// NewPurchaseService creates a new instance of PurchaseService.
func NewPurchaseService(
	pr repositories.PurchaseRepository,
	sr repositories.SupplierRepository,
	cr repositories.CatalogRepository,
	mr repositories.StockMovementRepository,
	db *sql.DB,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: pr,
		supplierRepo: sr,
		catalogRepo:  cr,
		movementRepo: mr,
		db:           db,
	}
}

// AddPurchase records a supplier delivery: header, received lines, stock
// increments for tracked catalog items and, depending on the payment mode,
// an immediate supplier payment. Everything happens in one transaction.
func (s *purchaseService) AddPurchase(req CreatePurchaseRequest) (*PurchaseDetails, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !models.IsValidPaymentMode(req.PaymentMode) {
		return nil, fmt.Errorf("%w: payment_mode must be one of pay_now, pay_later, pay_partial", ErrValidation)
	}
	mode := models.PaymentMode(req.PaymentMode)

	var partialCents int64
	if mode == models.PaymentModePayPartial {
		if req.PaymentAmount == nil {
			return nil, fmt.Errorf("%w: payment_amount is required for pay_partial", ErrValidation)
		}
		partialCents = utils.CentsFromAmount(*req.PaymentAmount)
		if partialCents < 0 {
			return nil, fmt.Errorf("%w: payment_amount cannot be negative", ErrValidation)
		}
	} else if req.PaymentAmount != nil {
		return nil, fmt.Errorf("%w: payment_amount only applies to pay_partial", ErrValidation)
	}

	purchaseDate, err := parseDateOr(req.PurchaseDate, time.Now())
	if err != nil {
		return nil, err
	}
	for i, line := range req.Items {
		if line.CatalogItemID == nil && (line.Name == nil || strings.TrimSpace(*line.Name) == "") {
			return nil, fmt.Errorf("%w: item %d needs a catalog_item_id or a name", ErrValidation, i+1)
		}
	}

	if req.SupplierID != nil {
		if _, err := s.supplierRepo.GetSupplierByID(*req.SupplierID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: supplier ID %d", ErrSupplierNotFound, *req.SupplierID)
			}
			return nil, fmt.Errorf("failed to fetch supplier %d: %w", *req.SupplierID, err)
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

	var purchaseID int64
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
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
		received := make(map[int64]int)
		purchaseItems := make([]models.PurchaseItem, 0, len(req.Items))
		for _, line := range req.Items {
			item := models.PurchaseItem{
				Quantity:      line.Quantity,
				UnitCostCents: utils.CentsFromAmount(line.UnitCost),
			}
			if line.CatalogItemID != nil {
				catalogItem := itemsByID[*line.CatalogItemID]
				item.CatalogItemID = line.CatalogItemID
				item.Name = catalogItem.Name
				if catalogItem.TracksStock {
					received[catalogItem.ID] += line.Quantity
				}
			} else {
				item.Name = strings.TrimSpace(*line.Name)
			}
			item.LineTotalCents = item.UnitCostCents * int64(item.Quantity)
			totalCents += item.LineTotalCents
			purchaseItems = append(purchaseItems, item)
		}

		if mode == models.PaymentModePayPartial && partialCents > totalCents {
			return fmt.Errorf("%w: payment %.2f exceeds purchase total %.2f",
				ErrSupplierPaymentExceedsBalance, utils.AmountFromCents(partialCents), utils.AmountFromCents(totalCents))
		}

		now := time.Now()
		purchase := models.Purchase{
			SupplierID:       req.SupplierID,
			PurchaseDate:     purchaseDate,
			TotalAmountCents: totalCents,
			Note:             utils.TrimToNil(req.Note),
			CreatedAt:        now,
		}
		createdID, err := s.purchaseRepo.CreatePurchase(tx, &purchase)
		if err != nil {
			return fmt.Errorf("failed to create purchase record: %w", err)
		}

		for i := range purchaseItems {
			purchaseItems[i].PurchaseID = createdID
			if _, err := s.purchaseRepo.CreatePurchaseItem(tx, &purchaseItems[i]); err != nil {
				return fmt.Errorf("failed to create purchase item %q: %w", purchaseItems[i].Name, err)
			}
		}

		reference := fmt.Sprintf("purchase #%d", createdID)
		for _, id := range catalogIDs {
			qty, ok := received[id]
			if !ok {
				continue
			}
			item := itemsByID[id]
			if err := s.catalogRepo.UpdateStock(tx, id, item.StockQuantity+qty, now); err != nil {
				return fmt.Errorf("failed to increment stock for %s: %w", item.Name, err)
			}
			movement := models.StockMovement{
				CatalogItemID:  id,
				MovementType:   models.MovementTypePurchase,
				QuantityChange: qty,
				Reference:      &reference,
				MovedAt:        now,
			}
			if _, err := s.movementRepo.CreateMovement(tx, &movement); err != nil {
				return fmt.Errorf("failed to record stock movement for %s: %w", item.Name, err)
			}
		}

		var immediateCents int64
		switch mode {
		case models.PaymentModePayNow:
			immediateCents = totalCents
		case models.PaymentModePayPartial:
			immediateCents = partialCents
		}
		if immediateCents > 0 {
			payment := models.SupplierPayment{
				PurchaseID:  createdID,
				AmountCents: immediateCents,
				Method:      utils.TrimToNil(req.PaymentMethod),
				PaidAt:      now,
			}
			if _, err := s.purchaseRepo.CreateSupplierPayment(tx, &payment); err != nil {
				return fmt.Errorf("failed to create supplier payment: %w", err)
			}
		}

		purchaseID = createdID
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("purchase recorded", map[string]interface{}{
		"purchase_id":  purchaseID,
		"payment_mode": string(mode),
	})
	return s.GetPurchase(purchaseID)
}

func (s *purchaseService) GetPurchase(purchaseID int64) (*PurchaseDetails, error) {
	purchase, err := s.purchaseRepo.GetPurchaseByID(purchaseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: purchase ID %d", ErrPurchaseNotFound, purchaseID)
		}
		return nil, fmt.Errorf("failed to get purchase by ID: %w", err)
	}
	items, err := s.purchaseRepo.GetPurchaseItemsByPurchaseID(purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase items for purchase %d: %w", purchaseID, err)
	}
	payments, err := s.purchaseRepo.GetSupplierPaymentsByPurchaseID(purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier payments for purchase %d: %w", purchaseID, err)
	}

	var paidCents int64
	paymentDetails := make([]SupplierPaymentDetails, 0, len(payments))
	for _, p := range payments {
		paidCents += p.AmountCents
		paymentDetails = append(paymentDetails, SupplierPaymentDetails{
			ID:     p.ID,
			Amount: utils.AmountFromCents(p.AmountCents),
			Method: p.Method,
			Note:   p.Note,
			PaidAt: p.PaidAt,
		})
	}
	balance := purchase.TotalAmountCents - paidCents
	if balance < 0 {
		balance = 0
	}

	details := &PurchaseDetails{
		ID:           purchase.ID,
		SupplierID:   purchase.SupplierID,
		PurchaseDate: purchase.PurchaseDate,
		TotalAmount:  utils.AmountFromCents(purchase.TotalAmountCents),
		AmountPaid:   utils.AmountFromCents(paidCents),
		BalanceDue:   utils.AmountFromCents(balance),
		Note:         purchase.Note,
		CreatedAt:    purchase.CreatedAt,
		Items:        make([]PurchaseLineDetails, 0, len(items)),
		Payments:     paymentDetails,
	}
	for _, item := range items {
		details.Items = append(details.Items, PurchaseLineDetails{
			ID:            item.ID,
			CatalogItemID: item.CatalogItemID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitCost:      utils.AmountFromCents(item.UnitCostCents),
			LineTotal:     utils.AmountFromCents(item.LineTotalCents),
		})
	}
	if purchase.SupplierID != nil {
		supplier, err := s.supplierRepo.GetSupplierByID(*purchase.SupplierID)
		if err == nil {
			details.SupplierName = &supplier.Name
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to get supplier for purchase %d: %w", purchaseID, err)
		}
	}
	return details, nil
}

func (s *purchaseService) ListPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error) {
	purchases, totalCount, err := s.purchaseRepo.GetPurchases(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get purchases: %w", err)
	}
	return purchases, totalCount, nil
}

// DeletePurchase removes a purchase with its items and supplier payments.
// With rollbackStock, the previously added stock is taken back out; if
// intervening sales already consumed it, the whole deletion is refused
// before anything is written.
func (s *purchaseService) DeletePurchase(purchaseID int64, rollbackStock bool) error {
	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		if _, err := s.purchaseRepo.GetPurchaseByIDForUpdate(tx, purchaseID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: purchase ID %d", ErrPurchaseNotFound, purchaseID)
			}
			return fmt.Errorf("failed to lock purchase %d: %w", purchaseID, err)
		}
		items, err := s.purchaseRepo.GetPurchaseItemsByPurchaseID(purchaseID)
		if err != nil {
			return fmt.Errorf("failed to get purchase items for purchase %d: %w", purchaseID, err)
		}

		if rollbackStock {
			rollback := make(map[int64]int)
			catalogIDs := make([]int64, 0, len(items))
			for _, item := range items {
				if item.CatalogItemID == nil {
					continue
				}
				if _, ok := rollback[*item.CatalogItemID]; !ok {
					catalogIDs = append(catalogIDs, *item.CatalogItemID)
				}
				rollback[*item.CatalogItemID] += item.Quantity
			}
			sort.Slice(catalogIDs, func(i, j int) bool { return catalogIDs[i] < catalogIDs[j] })

			if len(catalogIDs) > 0 {
				lockedItems, err := s.catalogRepo.GetItemsByIDsForUpdate(tx, catalogIDs)
				if err != nil {
					return fmt.Errorf("failed to lock catalog items for rollback: %w", err)
				}
				// Check every line before writing anything so a refusal
				// leaves both stock and the purchase untouched.
				for i := range lockedItems {
					catalogItem := &lockedItems[i]
					if !catalogItem.TracksStock {
						continue
					}
					if catalogItem.StockQuantity-rollback[catalogItem.ID] < 0 {
						return fmt.Errorf("%w for %s: on hand %d, rolling back %d",
							ErrStockRollbackNegative, catalogItem.Name, catalogItem.StockQuantity, rollback[catalogItem.ID])
					}
				}
				now := time.Now()
				reference := fmt.Sprintf("purchase #%d rollback", purchaseID)
				for i := range lockedItems {
					catalogItem := &lockedItems[i]
					if !catalogItem.TracksStock {
						continue
					}
					qty := rollback[catalogItem.ID]
					if err := s.catalogRepo.UpdateStock(tx, catalogItem.ID, catalogItem.StockQuantity-qty, now); err != nil {
						return fmt.Errorf("failed to roll back stock for %s: %w", catalogItem.Name, err)
					}
					movement := models.StockMovement{
						CatalogItemID:  catalogItem.ID,
						MovementType:   models.MovementTypePurchaseRollback,
						QuantityChange: -qty,
						Reference:      &reference,
						MovedAt:        now,
					}
					if _, err := s.movementRepo.CreateMovement(tx, &movement); err != nil {
						return fmt.Errorf("failed to record rollback movement for %s: %w", catalogItem.Name, err)
					}
				}
			}
		}

		if _, err := s.purchaseRepo.DeleteSupplierPaymentsByPurchaseID(tx, purchaseID); err != nil {
			return fmt.Errorf("failed to delete supplier payments for purchase %d: %w", purchaseID, err)
		}
		if _, err := s.purchaseRepo.DeletePurchaseItemsByPurchaseID(tx, purchaseID); err != nil {
			return fmt.Errorf("failed to delete purchase items for purchase %d: %w", purchaseID, err)
		}
		if _, err := s.purchaseRepo.DeletePurchase(tx, purchaseID); err != nil {
			return fmt.Errorf("failed to delete purchase %d: %w", purchaseID, err)
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	utils.LogInfo("purchase deleted", map[string]interface{}{
		"purchase_id":       purchaseID,
		"stock_rolled_back": rollbackStock,
	})
	return nil
}

// RecordSupplierPayment pays down an open purchase. The purchase row is
// locked so concurrent payments serialize against the same balance.
func (s *purchaseService) RecordSupplierPayment(purchaseID int64, req RecordSupplierPaymentRequest) (*PurchaseDetails, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	amountCents := utils.CentsFromAmount(req.Amount)
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}

	txErr := database.RunInTx(s.db, func(tx *sql.Tx) error {
		purchase, err := s.purchaseRepo.GetPurchaseByIDForUpdate(tx, purchaseID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: purchase ID %d", ErrPurchaseNotFound, purchaseID)
			}
			return fmt.Errorf("failed to lock purchase %d: %w", purchaseID, err)
		}

		paidSoFar, err := s.purchaseRepo.SumSupplierPaymentsByPurchaseID(tx, purchaseID)
		if err != nil {
			return fmt.Errorf("failed to sum supplier payments for purchase %d: %w", purchaseID, err)
		}
		balance := purchase.TotalAmountCents - paidSoFar
		if balance < 0 {
			balance = 0
		}
		if amountCents > balance {
			return fmt.Errorf("%w: payment %.2f exceeds purchase balance %.2f",
				ErrSupplierPaymentExceedsBalance, utils.AmountFromCents(amountCents), utils.AmountFromCents(balance))
		}

		payment := models.SupplierPayment{
			PurchaseID:  purchaseID,
			AmountCents: amountCents,
			Method:      utils.TrimToNil(req.Method),
			Note:        utils.TrimToNil(req.Note),
			PaidAt:      time.Now(),
		}
		if _, err := s.purchaseRepo.CreateSupplierPayment(tx, &payment); err != nil {
			return fmt.Errorf("failed to create supplier payment: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	utils.LogInfo("supplier payment recorded", map[string]interface{}{
		"purchase_id": purchaseID,
		"amount":      utils.AmountFromCents(amountCents),
	})
	return s.GetPurchase(purchaseID)
}

// --- Supplier Method Implementations ---

func (s *purchaseService) CreateSupplier(req CreateSupplierRequest) (*models.Supplier, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if utils.IsEmpty(req.Name) {
		return nil, fmt.Errorf("%w: supplier name cannot be empty", ErrValidation)
	}
	supplier := models.Supplier{
		Name:  strings.TrimSpace(req.Name),
		Phone: utils.TrimToNil(req.Phone),
		Notes: utils.TrimToNil(req.Notes),
	}
	id, err := s.supplierRepo.CreateSupplier(s.db, &supplier)
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return s.supplierRepo.GetSupplierByID(id)
}

func (s *purchaseService) GetSupplier(supplierID int64) (*models.Supplier, error) {
	supplier, err := s.supplierRepo.GetSupplierByID(supplierID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: supplier ID %d", ErrSupplierNotFound, supplierID)
		}
		return nil, fmt.Errorf("failed to get supplier by ID: %w", err)
	}
	return supplier, nil
}

func (s *purchaseService) ListSuppliers(page, pageSize int, searchTerm *string) ([]models.Supplier, int, error) {
	suppliers, totalCount, err := s.supplierRepo.GetSuppliers(page, pageSize, searchTerm)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get suppliers: %w", err)
	}
	return suppliers, totalCount, nil
}

func (s *purchaseService) GetSupplierBalance(supplierID int64) (*SupplierBalance, error) {
	supplier, err := s.GetSupplier(supplierID)
	if err != nil {
		return nil, err
	}
	totalPurchased, totalPaid, err := s.supplierRepo.GetSupplierOutstanding(supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outstanding totals for supplier %d: %w", supplierID, err)
	}
	return &SupplierBalance{
		SupplierID:     supplier.ID,
		Name:           supplier.Name,
		TotalPurchased: utils.AmountFromCents(totalPurchased),
		TotalPaid:      utils.AmountFromCents(totalPaid),
		BalanceDue:     utils.AmountFromCents(totalPurchased - totalPaid),
	}, nil
}
