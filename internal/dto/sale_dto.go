package dto

import (
	"maaztelecom/internal/pricing"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────
// Sale fields carry no validate tags besides the optional email: the checkout
// gate reports the first failing rule with a counter-friendly message.

type SaleLineRequest struct {
	ProductID     string           `json:"product_id"`
	ProductName   string           `json:"product_name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
}

type RecordSaleRequest struct {
	Username      string            `json:"username"`
	PhoneNumber   string            `json:"phone_number"`
	CustomerEmail *string           `json:"customer_email" validate:"omitempty,email,max=254"`
	PaymentMethod string            `json:"payment_method"`
	Discount      decimal.Decimal   `json:"discount"`
	Products      []SaleLineRequest `json:"products"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleLineResponse struct {
	Position       int     `json:"position"`
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	Price          string  `json:"price"`
	DiscountPrice  *string `json:"discount_price"`
	DisplayPrice   string  `json:"display_price"`
	Discounted     bool    `json:"discounted"`
	Label          string  `json:"label"`
	HasWarranty    bool    `json:"has_warranty"`
	WarrantyMonths int     `json:"warranty_months,omitempty"`
}

// PreviewResponse is the live total shown while the sale is being entered.
type PreviewResponse struct {
	Lines       []PreviewLine   `json:"lines"`
	Totals      pricing.Display `json:"totals"`
	HasDiscount bool            `json:"has_discount"`

	// DiscountCapped warns the cashier that the sale discount is larger than
	// the net subtotal and only part of it applies.
	DiscountCapped bool `json:"discount_capped"`
}

type PreviewLine struct {
	DisplayPrice string `json:"display_price"`
	Discounted   bool   `json:"discounted"`
	Label        string `json:"label"`
}

type SaleResponse struct {
	ID                   string             `json:"id"`
	Username             string             `json:"username"`
	PhoneNumber          string             `json:"phone_number"`
	CustomerEmail        *string            `json:"customer_email,omitempty"`
	PaymentMethod        string             `json:"payment_method"`
	Timestamp            string             `json:"timestamp"`
	Products             []SaleLineResponse `json:"products"`
	Totals               pricing.Display    `json:"totals"`
	HasDiscount          bool               `json:"has_discount"`
	InvoiceURL           *string            `json:"invoice_url"`
	InvoiceStatus        string             `json:"invoice_status"`
	InvoiceError         *string            `json:"invoice_error,omitempty"`
	InvoiceAttempts      int                `json:"invoice_attempts"`
	NotificationStatus   string             `json:"notification_status"`
	NotificationError    *string            `json:"notification_error,omitempty"`
	NotificationAttempts int                `json:"notification_attempts"`
	// PricingError is set instead of Totals when a stored line no longer
	// passes the pricing rules; the row stays listable.
	PricingError string `json:"pricing_error,omitempty"`
}

type SaleListResponse struct {
	Data       []SaleResponse `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// VerifyResponse is the public, read-only view of a recorded sale.
type VerifyResponse struct {
	ID            string             `json:"id"`
	Username      string             `json:"username"`
	PhoneNumber   string             `json:"phone_number"`
	PaymentMethod string             `json:"payment_method"`
	Date          string             `json:"date"`
	Products      []SaleLineResponse `json:"products"`
	Totals        pricing.Display    `json:"totals"`
	HasDiscount   bool               `json:"has_discount"`
	Verified      bool               `json:"verified"`
	Message       string             `json:"message"`
}

type RetryResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
