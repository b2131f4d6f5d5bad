package service

import (
	"time"

	"maaztelecom/internal/dto"
	"maaztelecom/internal/model"
	"maaztelecom/internal/pricing"
)

func toProductResponse(p *model.Product, loc *time.Location) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.StringFixed(2),
		HasWarranty: p.Warranty.HasWarranty,
		CreatedAt:   p.CreatedAt.In(loc).Format(time.RFC3339),
	}
	if p.Warranty.HasWarranty {
		resp.WarrantyMonths = p.Warranty.Months
	}
	return resp
}

// toSaleResponse prices the sale for display. A sale whose stored lines fail
// the pricing rules is still returned, with PricingError set and no totals.
func toSaleResponse(s *model.Sale, loc *time.Location) dto.SaleResponse {
	resp := dto.SaleResponse{
		ID:                   s.ID,
		Username:             s.Username,
		PhoneNumber:          s.PhoneNumber,
		CustomerEmail:        s.CustomerEmail,
		PaymentMethod:        string(s.PaymentMethod),
		Timestamp:            s.Timestamp.In(loc).Format(time.RFC3339),
		InvoiceURL:           s.InvoiceURL,
		InvoiceStatus:        string(s.InvoiceStatus),
		InvoiceError:         s.InvoiceError,
		InvoiceAttempts:      s.InvoiceAttempts,
		NotificationStatus:   string(s.NotificationStatus),
		NotificationError:    s.NotificationError,
		NotificationAttempts: s.NotificationAttempts,
	}
	totals, err := pricing.ComputeSale(s)
	if err != nil {
		resp.PricingError = err.Error()
		resp.Products = lineResponses(s.Products, nil)
		return resp
	}
	resp.Totals = totals.Display()
	resp.HasDiscount = totals.HasDiscount()
	resp.Products = lineResponses(s.Products, totals.Lines)
	return resp
}

func lineResponses(items []model.SaleLineItem, prices []pricing.LinePrice) []dto.SaleLineResponse {
	out := make([]dto.SaleLineResponse, len(items))
	for i, it := range items {
		line := dto.SaleLineResponse{
			Position:    it.Position,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price.StringFixed(2),
			HasWarranty: it.Warranty.HasWarranty,
		}
		if it.Warranty.HasWarranty {
			line.WarrantyMonths = it.Warranty.Months
		}
		if it.DiscountPrice != nil {
			dp := it.DiscountPrice.StringFixed(2)
			line.DiscountPrice = &dp
		}
		if prices != nil {
			lp := prices[i]
			line.DisplayPrice = lp.Display.StringFixed(2)
			line.Discounted = lp.Discounted
			line.Label = lp.Label(it.ProductName)
		}
		out[i] = line
	}
	return out
}
