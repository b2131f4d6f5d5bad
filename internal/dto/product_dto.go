package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name           string          `json:"name"            validate:"required,max=120"`
	Price          decimal.Decimal `json:"price"           validate:"gt=0"`
	HasWarranty    bool            `json:"has_warranty"`
	WarrantyMonths int             `json:"warranty_months" validate:"min=0,max=120"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Price          string `json:"price"`
	HasWarranty    bool   `json:"has_warranty"`
	WarrantyMonths int    `json:"warranty_months,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
