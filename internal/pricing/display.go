package pricing

import "fmt"

// Display is Totals formatted to two decimals.
type Display struct {
	RawSubtotal          string `json:"raw_subtotal"`
	NetSubtotal          string `json:"net_subtotal"`
	PerLineDiscountTotal string `json:"per_line_discount_total"`
	Discount             string `json:"discount"`
	FinalTotal           string `json:"final_total"`
	TotalDiscount        string `json:"total_discount"`
	AppliedDiscount      string `json:"applied_discount"`
}

func (t Totals) Display() Display {
	return Display{
		RawSubtotal:          t.RawSubtotal.StringFixed(2),
		NetSubtotal:          t.NetSubtotal.StringFixed(2),
		PerLineDiscountTotal: t.PerLineDiscountTotal.StringFixed(2),
		Discount:             t.Discount.StringFixed(2),
		FinalTotal:           t.FinalTotal.StringFixed(2),
		TotalDiscount:        t.TotalDiscount.StringFixed(2),
		AppliedDiscount:      t.AppliedDiscount.StringFixed(2),
	}
}

// DiscountCapped reports whether part of the sale discount was dropped
// because the per-line prices already brought the total below it.
func (t Totals) DiscountCapped() bool {
	return t.AppliedDiscount.LessThan(t.Discount)
}

// HasDiscount reports whether the invoice should print a discount row.
func (t Totals) HasDiscount() bool {
	return !t.TotalDiscount.IsZero()
}

// Label renders a dashboard line: "name - 250.00", or "name - 180.00 (Discounted)"
// when a discount price applies. An empty name falls back to "Product".
func (lp LinePrice) Label(name string) string {
	if name == "" {
		name = "Product"
	}
	if lp.Discounted {
		return fmt.Sprintf("%s - %s (Discounted)", name, lp.Display.StringFixed(2))
	}
	return fmt.Sprintf("%s - %s", name, lp.Display.StringFixed(2))
}
