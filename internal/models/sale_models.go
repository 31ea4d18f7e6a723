package models

import "time"

// Sale represents one commerce transaction. TotalAmountCents is immutable once
// the line items are attached; Paid/PaidAt are derived by the payment ledger and
// never set directly by callers.
type Sale struct {
	ID               int64      `json:"id" db:"id"`
	GuestID          *int64     `json:"guest_id,omitempty" db:"guest_id"`
	TotalAmountCents int64      `json:"total_amount_cents" db:"total_amount_cents"`
	Paid             bool       `json:"paid" db:"paid"`
	PaidAt           *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	Note             *string    `json:"note,omitempty" db:"note"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	Items            []SaleItem `json:"items,omitempty"`
	Guest            *Guest     `json:"guest,omitempty"` // For joining with the guest
}

// SaleItem is a frozen line of a sale. Name and UnitPriceCents are snapshots
// taken at sale time; later catalog edits never alter them. CatalogItemID is
// nil for ad-hoc lines that were sold without a catalog entry.
type SaleItem struct {
	ID             int64   `json:"id" db:"id"`
	SaleID         int64   `json:"sale_id" db:"sale_id"`
	CatalogItemID  *int64  `json:"catalog_item_id,omitempty" db:"catalog_item_id"`
	Name           string  `json:"name" db:"name"`
	UnitPriceCents int64   `json:"unit_price_cents" db:"unit_price_cents"`
	Quantity       int     `json:"quantity" db:"quantity"`
	LineTotalCents int64   `json:"line_total_cents" db:"line_total_cents"`
	Note           *string `json:"note,omitempty" db:"note"`
}

// Payment is one append-only entry of the payment ledger for a sale.
type Payment struct {
	ID          int64     `json:"id" db:"id"`
	SaleID      int64     `json:"sale_id" db:"sale_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Method      string    `json:"method" db:"method"`
	Note        *string   `json:"note,omitempty" db:"note"`
	PaidAt      time.Time `json:"paid_at" db:"paid_at"`
}

// SaleFilters defines the available filters for querying sales.
type SaleFilters struct {
	GuestID  *int64
	Paid     *bool
	Date     *string // Expected format YYYY-MM-DD
	Page     int
	PageSize int
}
