package repository

import (
	"context"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"

	"gorm.io/gorm"
)

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func orderedLines(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

// Create writes the sale and its lines in one transaction.
func (r *saleRepo) Create(ctx context.Context, s *model.Sale) error {
	return wrap("create sale", "sale", r.db.WithContext(ctx).Create(s).Error)
}

func (r *saleRepo) FindByID(ctx context.Context, id string) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Products", orderedLines).Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, wrap("find sale", "sale", err)
	}
	return &s, nil
}

// List matches Search against the customer name (case-insensitive), the phone
// number (substring) or any line's product name.
func (r *saleRepo) List(ctx context.Context, lq ListQuery) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{})
	if lq.Search != "" {
		like := "%" + lq.Search + "%"
		q = q.Where(
			"username ILIKE ? OR phone_number LIKE ? OR id IN (SELECT sale_id FROM sale_line_items WHERE product_name ILIKE ?)",
			like, like, like,
		)
	}
	if !lq.From.IsZero() {
		q = q.Where("sold_at >= ?", lq.From)
	}
	if !lq.To.IsZero() {
		q = q.Where("sold_at < ?", lq.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap("count sales", "sale", err)
	}

	err := q.Preload("Products", orderedLines).
		Order("sold_at DESC").
		Offset(lq.Offset).Limit(lq.Limit).
		Find(&sales).Error
	return sales, total, wrap("list sales", "sale", err)
}

func (r *saleRepo) Delete(ctx context.Context, id string) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", id).Delete(&model.SaleLineItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Sale{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return wrap("delete sale", "sale", err)
	}
	if affected == 0 {
		return apierror.NotFound("sale")
	}
	return nil
}

func (r *saleRepo) UpdateInvoice(ctx context.Context, id string, u InvoiceUpdate) error {
	updates := map[string]interface{}{"invoice_status": u.Status}
	if u.URL != nil {
		updates["invoice_url"] = *u.URL
	}
	if u.Error != nil {
		updates["invoice_error"] = *u.Error
	} else if u.Status == model.InvoiceUploaded {
		updates["invoice_error"] = nil
	}
	if u.IncrementAttempt {
		updates["invoice_attempts"] = gorm.Expr("invoice_attempts + 1")
	}
	if u.Status != model.InvoicePending {
		updates["invoice_claimed_until"] = nil
	}
	return r.updateStatus(ctx, id, updates)
}

func (r *saleRepo) UpdateNotification(ctx context.Context, id string, u NotificationUpdate) error {
	updates := map[string]interface{}{"notification_status": u.Status}
	if u.Error != nil {
		updates["notification_error"] = *u.Error
	} else if u.Status == model.NotificationSent {
		updates["notification_error"] = nil
	}
	if u.IncrementAttempt {
		updates["notification_attempts"] = gorm.Expr("notification_attempts + 1")
	}
	if u.Status != model.NotificationPending {
		updates["notification_claimed_until"] = nil
	}
	return r.updateStatus(ctx, id, updates)
}

// ClaimInvoice is a single conditional UPDATE; RowsAffected tells the winner.
func (r *saleRepo) ClaimInvoice(ctx context.Context, id string, c InvoiceClaim) (bool, error) {
	return r.claim(ctx, id, "invoice_status", c.From, "invoice_claimed_until", c.Now, c.Lease)
}

func (r *saleRepo) ClaimNotification(ctx context.Context, id string, c NotificationClaim) (bool, error) {
	return r.claim(ctx, id, "notification_status", c.From, "notification_claimed_until", c.Now, c.Lease)
}

func (r *saleRepo) claim(ctx context.Context, id, statusCol string, from interface{}, leaseCol string, now time.Time, lease time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("id = ? AND "+statusCol+" = ?", id, from).
		Where("("+leaseCol+" IS NULL OR "+leaseCol+" < ?)", now).
		Updates(map[string]interface{}{leaseCol: now.Add(lease)})
	if res.Error != nil {
		return false, wrap("claim sale", "sale", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *saleRepo) Touch(ctx context.Context, id string) error {
	return r.updateStatus(ctx, id, map[string]interface{}{"updated_at": time.Now().UTC()})
}

func (r *saleRepo) updateStatus(ctx context.Context, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Sale{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrap("update sale status", "sale", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("sale")
	}
	return nil
}

func (r *saleRepo) ListRetryable(ctx context.Context, rq RetryQuery) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Products", orderedLines).
		Where(`(invoice_status = ? AND invoice_attempts < ?)
			OR (invoice_status = ? AND updated_at < ?)
			OR (invoice_status = ? AND notification_status = ? AND notification_attempts < ?)
			OR (invoice_status = ? AND notification_status = ? AND updated_at < ?)`,
			model.InvoiceFailed, rq.MaxAttempts,
			model.InvoicePending, rq.StaleBefore,
			model.InvoiceUploaded, model.NotificationFailed, rq.MaxAttempts,
			model.InvoiceUploaded, model.NotificationPending, rq.StaleBefore,
		).
		Order("updated_at ASC").
		Limit(rq.Limit).
		Find(&sales).Error
	return sales, wrap("list retryable sales", "sale", err)
}
