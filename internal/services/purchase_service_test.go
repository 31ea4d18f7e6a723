package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lodgepos_backend/internal/models"
)

func TestAddPurchasePayNow(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	purchaseRepo := newStubPurchaseRepo()
	supplierRepo := newStubSupplierRepo(&models.Supplier{ID: 1, Name: "Acme Wholesale"})
	catalogRepo := newStubCatalogRepo(trackedItem(3, "Towel Set", 1200, 4))
	movementRepo := &stubMovementRepo{}
	svc := NewPurchaseService(purchaseRepo, supplierRepo, catalogRepo, movementRepo, db)

	details, err := svc.AddPurchase(CreatePurchaseRequest{
		SupplierID:  ptrInt64(1),
		PaymentMode: "pay_now",
		Items: []CreatePurchaseItemRequest{
			{CatalogItemID: ptrInt64(3), Quantity: 10, UnitCost: 7.50},
			{Name: ptrStr("Packing tape"), Quantity: 2, UnitCost: 1.25},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 77.50, details.TotalAmount)
	assert.Equal(t, 77.50, details.AmountPaid)
	assert.Equal(t, 0.00, details.BalanceDue)
	require.NotNil(t, details.SupplierName)
	assert.Equal(t, "Acme Wholesale", *details.SupplierName)
	require.Len(t, details.Items, 2)
	assert.Equal(t, "Towel Set", details.Items[0].Name)
	require.Len(t, details.Payments, 1)

	assert.Equal(t, 14, catalogRepo.stockOf(t, 3))
	require.Len(t, movementRepo.movements, 1)
	assert.Equal(t, models.MovementTypePurchase, movementRepo.movements[0].MovementType)
	assert.Equal(t, 10, movementRepo.movements[0].QuantityChange)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPurchasePayLater(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	purchaseRepo := newStubPurchaseRepo()
	svc := NewPurchaseService(purchaseRepo, newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	details, err := svc.AddPurchase(CreatePurchaseRequest{
		PaymentMode: "pay_later",
		Items:       []CreatePurchaseItemRequest{{Name: ptrStr("Firewood"), Quantity: 5, UnitCost: 4.00}},
	})
	require.NoError(t, err)
	assert.Equal(t, 20.00, details.TotalAmount)
	assert.Equal(t, 0.00, details.AmountPaid)
	assert.Equal(t, 20.00, details.BalanceDue)
	assert.Empty(t, details.Payments)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPurchasePayPartial(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	purchaseRepo := newStubPurchaseRepo()
	svc := NewPurchaseService(purchaseRepo, newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	details, err := svc.AddPurchase(CreatePurchaseRequest{
		PaymentMode:   "pay_partial",
		PaymentAmount: ptrFloat(12.00),
		PaymentMethod: ptrStr("bank"),
		Items:         []CreatePurchaseItemRequest{{Name: ptrStr("Firewood"), Quantity: 5, UnitCost: 4.00}},
	})
	require.NoError(t, err)
	assert.Equal(t, 12.00, details.AmountPaid)
	assert.Equal(t, 8.00, details.BalanceDue)
	require.Len(t, details.Payments, 1)
	require.NotNil(t, details.Payments[0].Method)
	assert.Equal(t, "bank", *details.Payments[0].Method)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPurchasePartialExceedingTotalRefused(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	purchaseRepo := newStubPurchaseRepo()
	svc := NewPurchaseService(purchaseRepo, newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	_, err := svc.AddPurchase(CreatePurchaseRequest{
		PaymentMode:   "pay_partial",
		PaymentAmount: ptrFloat(20.01),
		Items:         []CreatePurchaseItemRequest{{Name: ptrStr("Firewood"), Quantity: 5, UnitCost: 4.00}},
	})
	require.ErrorIs(t, err, ErrSupplierPaymentExceedsBalance)
	assert.Empty(t, purchaseRepo.purchases)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPurchaseUnknownSupplier(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewPurchaseService(newStubPurchaseRepo(), newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	_, err := svc.AddPurchase(CreatePurchaseRequest{
		SupplierID:  ptrInt64(8),
		PaymentMode: "pay_later",
		Items:       []CreatePurchaseItemRequest{{Name: ptrStr("Firewood"), Quantity: 1, UnitCost: 1}},
	})
	require.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestAddPurchaseValidation(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewPurchaseService(newStubPurchaseRepo(), newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	line := CreatePurchaseItemRequest{Name: ptrStr("Firewood"), Quantity: 1, UnitCost: 1}
	tests := []struct {
		name string
		req  CreatePurchaseRequest
	}{
		{name: "no items", req: CreatePurchaseRequest{PaymentMode: "pay_later"}},
		{name: "unknown mode", req: CreatePurchaseRequest{PaymentMode: "on_credit", Items: []CreatePurchaseItemRequest{line}}},
		{name: "partial without amount", req: CreatePurchaseRequest{PaymentMode: "pay_partial", Items: []CreatePurchaseItemRequest{line}}},
		{name: "amount outside partial", req: CreatePurchaseRequest{PaymentMode: "pay_now", PaymentAmount: ptrFloat(5), Items: []CreatePurchaseItemRequest{line}}},
		{name: "negative partial amount", req: CreatePurchaseRequest{PaymentMode: "pay_partial", PaymentAmount: ptrFloat(-5), Items: []CreatePurchaseItemRequest{line}}},
		{name: "line without name or catalog id", req: CreatePurchaseRequest{PaymentMode: "pay_later", Items: []CreatePurchaseItemRequest{{Quantity: 1, UnitCost: 1}}}},
		{name: "zero quantity", req: CreatePurchaseRequest{PaymentMode: "pay_later", Items: []CreatePurchaseItemRequest{{Name: ptrStr("x"), Quantity: 0, UnitCost: 1}}}},
		{name: "negative unit cost", req: CreatePurchaseRequest{PaymentMode: "pay_later", Items: []CreatePurchaseItemRequest{{Name: ptrStr("x"), Quantity: 1, UnitCost: -1}}}},
		{name: "bad date", req: CreatePurchaseRequest{PaymentMode: "pay_later", PurchaseDate: "12/31/2024", Items: []CreatePurchaseItemRequest{line}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPurchase(tt.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestDeletePurchaseWithRollback(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	purchaseRepo := newStubPurchaseRepo()
	catalogRepo := newStubCatalogRepo(trackedItem(3, "Towel Set", 1200, 4))
	movementRepo := &stubMovementRepo{}
	svc := NewPurchaseService(purchaseRepo, newStubSupplierRepo(), catalogRepo, movementRepo, db)

	details, err := svc.AddPurchase(CreatePurchaseRequest{
		PaymentMode: "pay_now",
		Items:       []CreatePurchaseItemRequest{{CatalogItemID: ptrInt64(3), Quantity: 10, UnitCost: 7.50}},
	})
	require.NoError(t, err)
	require.Equal(t, 14, catalogRepo.stockOf(t, 3))

	err = svc.DeletePurchase(details.ID, true)
	require.NoError(t, err)

	assert.Empty(t, purchaseRepo.purchases)
	assert.Empty(t, purchaseRepo.purchaseItems)
	assert.Empty(t, purchaseRepo.supplierPayments)
	assert.Equal(t, 4, catalogRepo.stockOf(t, 3))

	// One increment at entry, one decrement at rollback.
	require.Len(t, movementRepo.movements, 2)
	assert.Equal(t, models.MovementTypePurchaseRollback, movementRepo.movements[1].MovementType)
	assert.Equal(t, -10, movementRepo.movements[1].QuantityChange)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePurchaseRollbackRefusedWhenStockConsumed(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	purchaseRepo := newStubPurchaseRepo()
	catalogRepo := newStubCatalogRepo(trackedItem(3, "Towel Set", 1200, 0))
	movementRepo := &stubMovementRepo{}
	svc := NewPurchaseService(purchaseRepo, newStubSupplierRepo(), catalogRepo, movementRepo, db)

	details, err := svc.AddPurchase(CreatePurchaseRequest{
		PaymentMode: "pay_later",
		Items:       []CreatePurchaseItemRequest{{CatalogItemID: ptrInt64(3), Quantity: 10, UnitCost: 7.50}},
	})
	require.NoError(t, err)

	// Sales have since consumed most of the delivery.
	catalogRepo.items[3].StockQuantity = 6

	err = svc.DeletePurchase(details.ID, true)
	require.ErrorIs(t, err, ErrStockRollbackNegative)
	assert.Contains(t, err.Error(), "on hand 6, rolling back 10")

	// Refusal leaves the purchase and its children in place.
	assert.Len(t, purchaseRepo.purchases, 1)
	assert.Len(t, purchaseRepo.purchaseItems[details.ID], 1)
	assert.Equal(t, 6, catalogRepo.stockOf(t, 3))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePurchaseWithoutRollbackKeepsStock(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	purchaseRepo := newStubPurchaseRepo()
	catalogRepo := newStubCatalogRepo(trackedItem(3, "Towel Set", 1200, 4))
	svc := NewPurchaseService(purchaseRepo, newStubSupplierRepo(), catalogRepo, &stubMovementRepo{}, db)

	details, err := svc.AddPurchase(CreatePurchaseRequest{
		PaymentMode: "pay_later",
		Items:       []CreatePurchaseItemRequest{{CatalogItemID: ptrInt64(3), Quantity: 10, UnitCost: 7.50}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePurchase(details.ID, false))
	assert.Empty(t, purchaseRepo.purchases)
	assert.Equal(t, 14, catalogRepo.stockOf(t, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePurchaseNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewPurchaseService(newStubPurchaseRepo(), newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	err := svc.DeletePurchase(404, false)
	require.ErrorIs(t, err, ErrPurchaseNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSupplierPaymentCapsAtBalance(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	purchaseRepo := newStubPurchaseRepo()
	svc := NewPurchaseService(purchaseRepo, newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	details, err := svc.AddPurchase(CreatePurchaseRequest{
		PaymentMode:   "pay_partial",
		PaymentAmount: ptrFloat(80.00),
		Items:         []CreatePurchaseItemRequest{{Name: ptrStr("Linen"), Quantity: 10, UnitCost: 20.00}},
	})
	require.NoError(t, err)
	require.Equal(t, 120.00, details.BalanceDue)

	_, err = svc.RecordSupplierPayment(details.ID, RecordSupplierPaymentRequest{Amount: 120.01})
	require.ErrorIs(t, err, ErrSupplierPaymentExceedsBalance)

	settled, err := svc.RecordSupplierPayment(details.ID, RecordSupplierPaymentRequest{Amount: 120.00})
	require.NoError(t, err)
	assert.Equal(t, 200.00, settled.AmountPaid)
	assert.Equal(t, 0.00, settled.BalanceDue)
	require.Len(t, settled.Payments, 2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupplierLifecycleAndBalance(t *testing.T) {
	db, _ := newMockDB(t)
	supplierRepo := newStubSupplierRepo()
	supplierRepo.totalPurchased = 20000
	supplierRepo.totalPaid = 8000
	svc := NewPurchaseService(newStubPurchaseRepo(), supplierRepo, newStubCatalogRepo(), &stubMovementRepo{}, db)

	created, err := svc.CreateSupplier(CreateSupplierRequest{Name: "  Acme Wholesale  ", Phone: ptrStr("555-0101")})
	require.NoError(t, err)
	assert.Equal(t, "Acme Wholesale", created.Name)

	balance, err := svc.GetSupplierBalance(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.00, balance.TotalPurchased)
	assert.Equal(t, 80.00, balance.TotalPaid)
	assert.Equal(t, 120.00, balance.BalanceDue)

	_, err = svc.GetSupplierBalance(99)
	require.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestCreateSupplierValidation(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewPurchaseService(newStubPurchaseRepo(), newStubSupplierRepo(), newStubCatalogRepo(), &stubMovementRepo{}, db)

	_, err := svc.CreateSupplier(CreateSupplierRequest{Name: "   "})
	require.ErrorIs(t, err, ErrValidation)
}
