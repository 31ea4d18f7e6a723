package models

import "time"

// Return is the header of one processed return against a sale. RefundAmountCents
// and RefundMethod are metadata for the cash drawer; the payment ledger of the
// original sale is never adjusted by a return.
type Return struct {
	ID                int64        `json:"id" db:"id"`
	SaleID            int64        `json:"sale_id" db:"sale_id"`
	ReturnDate        time.Time    `json:"return_date" db:"return_date"`
	RefundAmountCents int64        `json:"refund_amount_cents" db:"refund_amount_cents"`
	RefundMethod      *string      `json:"refund_method,omitempty" db:"refund_method"`
	Note              *string      `json:"note,omitempty" db:"note"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	Items             []ReturnItem `json:"items,omitempty"`
}

// ReturnItem references the sold line it reverses. The quantity may never push
// the line's cumulative returned quantity past its sold quantity.
type ReturnItem struct {
	ID         int64   `json:"id" db:"id"`
	ReturnID   int64   `json:"return_id" db:"return_id"`
	SaleItemID int64   `json:"sale_item_id" db:"sale_item_id"`
	Quantity   int     `json:"quantity" db:"quantity"`
	Note       *string `json:"note,omitempty" db:"note"`
}
