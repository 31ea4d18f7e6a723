package models

import "time"

// PaymentMode defines how a purchase is settled with the supplier at entry time.
type PaymentMode string

const (
	PaymentModePayNow     PaymentMode = "pay_now"
	PaymentModePayLater   PaymentMode = "pay_later"
	PaymentModePayPartial PaymentMode = "pay_partial"
)

// IsValidPaymentMode checks if the provided mode string is a valid PaymentMode.
func IsValidPaymentMode(mode string) bool {
	switch PaymentMode(mode) {
	case PaymentModePayNow, PaymentModePayLater, PaymentModePayPartial:
		return true
	default:
		return false
	}
}

// Supplier represents a vendor that stock is purchased from.
type Supplier struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Purchase is the header of one incoming stock delivery.
type Purchase struct {
	ID               int64             `json:"id" db:"id"`
	SupplierID       *int64            `json:"supplier_id,omitempty" db:"supplier_id"`
	PurchaseDate     time.Time         `json:"purchase_date" db:"purchase_date"`
	TotalAmountCents int64             `json:"total_amount_cents" db:"total_amount_cents"`
	Note             *string           `json:"note,omitempty" db:"note"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	Items            []PurchaseItem    `json:"items,omitempty"`
	Payments         []SupplierPayment `json:"payments,omitempty"`
	Supplier         *Supplier         `json:"supplier,omitempty"` // For joining with the supplier
}

// PurchaseItem is one received line of a purchase. Name and UnitCostCents are
// snapshots like sale items; CatalogItemID is nil for goods bought outside the
// catalog (consumables, one-offs).
type PurchaseItem struct {
	ID             int64  `json:"id" db:"id"`
	PurchaseID     int64  `json:"purchase_id" db:"purchase_id"`
	CatalogItemID  *int64 `json:"catalog_item_id,omitempty" db:"catalog_item_id"`
	Name           string `json:"name" db:"name"`
	Quantity       int    `json:"quantity" db:"quantity"`
	UnitCostCents  int64  `json:"unit_cost_cents" db:"unit_cost_cents"`
	LineTotalCents int64  `json:"line_total_cents" db:"line_total_cents"`
}

// SupplierPayment is one append-only entry of the procurement ledger, recorded
// against the purchase it pays down.
type SupplierPayment struct {
	ID          int64     `json:"id" db:"id"`
	PurchaseID  int64     `json:"purchase_id" db:"purchase_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Method      *string   `json:"method,omitempty" db:"method"`
	Note        *string   `json:"note,omitempty" db:"note"`
	PaidAt      time.Time `json:"paid_at" db:"paid_at"`
}

// PurchaseFilters defines the available filters for querying purchases.
type PurchaseFilters struct {
	SupplierID *int64
	DateFrom   *string // Expected format YYYY-MM-DD
	DateTo     *string // Expected format YYYY-MM-DD
	Page       int
	PageSize   int
}
