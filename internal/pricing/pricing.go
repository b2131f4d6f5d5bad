// Package pricing computes sale totals. Every surface that shows money
// (sell preview, dashboard, invoice PDF, public verification) goes through
// Compute so the figures are identical everywhere.
//
// The sale-level discount is a flat currency amount applied once to the net
// subtotal. Arithmetic is unrounded; values are fixed to two decimals only
// when formatted for presentation.
package pricing

import (
	"fmt"

	"maaztelecom/internal/model"

	"github.com/shopspring/decimal"
)

// Line is the pricing-relevant part of a sale line.
type Line struct {
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
}

// LinePrice is the priced result for one line, in input order.
type LinePrice struct {
	Price      decimal.Decimal
	Display    decimal.Decimal
	Discounted bool
}

// Totals is the full pricing output for a sale.
type Totals struct {
	RawSubtotal          decimal.Decimal
	NetSubtotal          decimal.Decimal
	PerLineDiscountTotal decimal.Decimal
	Discount             decimal.Decimal
	FinalTotal           decimal.Decimal
	TotalDiscount        decimal.Decimal
	Lines                []LinePrice

	// AppliedDiscount is the part of Discount that reduced the total. It is
	// smaller than Discount only when Discount exceeds NetSubtotal.
	AppliedDiscount decimal.Decimal
}

// InvalidLineError reports a line whose discount price is negative or above its price.
type InvalidLineError struct {
	Index         int // 1-based
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("item %d: discount price %s must be between 0 and %s",
		e.Index, e.DiscountPrice.StringFixed(2), e.Price.StringFixed(2))
}

// InvalidDiscountError reports a negative sale-level discount.
type InvalidDiscountError struct {
	Discount decimal.Decimal
}

func (e *InvalidDiscountError) Error() string {
	return fmt.Sprintf("discount %s cannot be negative", e.Discount.StringFixed(2))
}

// LineDisplayPrice returns the price a line is charged at: its discount price
// when present, otherwise its face price.
func LineDisplayPrice(l Line) (decimal.Decimal, error) {
	if l.DiscountPrice == nil {
		return l.Price, nil
	}
	dp := *l.DiscountPrice
	if dp.IsNegative() || dp.GreaterThan(l.Price) {
		return decimal.Zero, &InvalidLineError{Price: l.Price, DiscountPrice: dp}
	}
	return dp, nil
}

// Compute prices lines with a flat sale-level discount.
// The final total never goes below zero.
func Compute(lines []Line, discount decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, &InvalidDiscountError{Discount: discount}
	}

	t := Totals{
		RawSubtotal: decimal.Zero,
		NetSubtotal: decimal.Zero,
		Discount:    discount,
		Lines:       make([]LinePrice, 0, len(lines)),
	}
	for i, l := range lines {
		display, err := LineDisplayPrice(l)
		if err != nil {
			lineErr := err.(*InvalidLineError)
			lineErr.Index = i + 1
			return Totals{}, lineErr
		}
		t.RawSubtotal = t.RawSubtotal.Add(l.Price)
		t.NetSubtotal = t.NetSubtotal.Add(display)
		t.Lines = append(t.Lines, LinePrice{
			Price:      l.Price,
			Display:    display,
			Discounted: l.DiscountPrice != nil && display.LessThan(l.Price),
		})
	}

	t.PerLineDiscountTotal = t.RawSubtotal.Sub(t.NetSubtotal)
	t.FinalTotal = t.NetSubtotal.Sub(discount)
	if t.FinalTotal.IsNegative() {
		t.FinalTotal = decimal.Zero
	}
	t.AppliedDiscount = t.NetSubtotal.Sub(t.FinalTotal)
	t.TotalDiscount = t.RawSubtotal.Sub(t.FinalTotal)
	return t, nil
}

// ComputeSale prices a stored or draft sale.
func ComputeSale(s *model.Sale) (Totals, error) {
	return Compute(LinesOf(s.Products), s.Discount)
}

// LinesOf projects sale lines onto pricing lines.
func LinesOf(items []model.SaleLineItem) []Line {
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{Price: it.Price, DiscountPrice: it.DiscountPrice}
	}
	return lines
}
