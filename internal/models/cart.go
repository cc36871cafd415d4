package models

import "github.com/shopspring/decimal"

// CartItem is one line of the locally persisted cart.
// Field names match the keys the backend and the stored JSON blob use.
type CartItem struct {
	CartID       FlexString      `json:"cart_id"`
	ProductCode  FlexString      `json:"productcode" validate:"required"`
	ProductName  string          `json:"productname" validate:"required"`
	ProductImage string          `json:"productimage"`
	ProductPrice decimal.Decimal `json:"productprice"`
	MRP          decimal.Decimal `json:"mrp"`
	Quantity     int             `json:"quantity" validate:"gte=0"`
	CGST         string          `json:"cgst"`
	SGST         string          `json:"sgst"`
	BCode        FlexString      `json:"bcode" validate:"required"`
	ProdID       FlexString      `json:"prod_id"`
	CartType     string          `json:"carttype"`
}

// CartTotals is the client-side view of the cart amounts.
// The backend recomputes the authoritative total at checkout.
type CartTotals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	Savings           decimal.Decimal `json:"savings"`
	Shipping          decimal.Decimal `json:"shipping"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	GrandTotalRounded decimal.Decimal `json:"grand_total_rounded"`
	ItemCount         int             `json:"item_count"`
}

// BadgeEvent is published whenever the persisted cart changes.
type BadgeEvent struct {
	Count int `json:"count"`
}
