package repository

import (
	"context"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"

	"gorm.io/gorm"
)

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return wrap("create product", "product", r.db.WithContext(ctx).Create(p).Error)
}

func (r *productRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, wrap("find product", "product", err)
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, lq ListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})
	if lq.Search != "" {
		q = q.Where("name ILIKE ?", "%"+lq.Search+"%")
	}
	if !lq.From.IsZero() {
		q = q.Where("created_at >= ?", lq.From)
	}
	if !lq.To.IsZero() {
		q = q.Where("created_at < ?", lq.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap("count products", "product", err)
	}

	err := q.Order("created_at DESC").Offset(lq.Offset).Limit(lq.Limit).Find(&products).Error
	return products, total, wrap("list products", "product", err)
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Product{})
	if res.Error != nil {
		return wrap("delete product", "product", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("product")
	}
	return nil
}
