// Package pricing holds the client-side cart arithmetic. The backend
// recomputes the authoritative amounts at checkout.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"vskmarket/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ParsePercent parses tax rates as the backend sends them: "2.5%", "2.5",
// " 2.5 % " or "". An empty rate is zero.
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	return d, nil
}

// LineTotal is price × (1 + (cgst+sgst)/100) × quantity, unrounded.
func LineTotal(item models.CartItem) (decimal.Decimal, error) {
	cgst, err := ParsePercent(item.CGST)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cgst of %s: %w", item.BCode, err)
	}
	sgst, err := ParsePercent(item.SGST)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sgst of %s: %w", item.BCode, err)
	}
	factor := decimal.NewFromInt(1).Add(cgst.Add(sgst).Div(hundred))
	return item.ProductPrice.Mul(factor).Mul(decimal.NewFromInt(int64(item.Quantity))), nil
}

// CartTotal sums the line totals and rounds to two places.
func CartTotal(items []models.CartItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		line, err := LineTotal(item)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(line)
	}
	return total.Round(2), nil
}

// Savings is Σ (mrp − price) × quantity over lines sold below MRP.
func Savings(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		diff := item.MRP.Sub(item.ProductPrice)
		if diff.IsPositive() {
			total = total.Add(diff.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return total.Round(2)
}

// Grand is the amount due, shown unrounded next to the figure charged.
type Grand struct {
	Unrounded decimal.Decimal
	Rounded   decimal.Decimal
}

// GrandTotal adds shipping and rounds to whole currency units.
func GrandTotal(subtotal, shipping decimal.Decimal) Grand {
	u := subtotal.Add(shipping)
	return Grand{Unrounded: u, Rounded: u.Round(0)}
}

// ToMinorUnits converts rupees to paise.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// Totals computes everything the cart and summary screens display.
func Totals(items []models.CartItem, shipping decimal.Decimal) (models.CartTotals, error) {
	subtotal, err := CartTotal(items)
	if err != nil {
		return models.CartTotals{}, err
	}
	if len(items) == 0 {
		shipping = decimal.Zero
	}
	grand := GrandTotal(subtotal, shipping)
	return models.CartTotals{
		Subtotal:          subtotal,
		Savings:           Savings(items),
		Shipping:          shipping,
		GrandTotal:        grand.Unrounded,
		GrandTotalRounded: grand.Rounded,
		ItemCount:         len(items),
	}, nil
}
