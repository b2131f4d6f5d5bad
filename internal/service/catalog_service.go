package service

import (
	"context"
	"strings"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/dto"
	"maaztelecom/internal/events"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CatalogService defines the business logic contract for catalog products.
type CatalogService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id string) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ListFilter) (*dto.ProductListResponse, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context) (*changefeed.Subscription, error)
}

type catalogService struct {
	repo repository.ProductRepository
	feed changefeed.Feed
	pub  events.Publisher
	loc  *time.Location
	now  func() time.Time
}

func NewCatalogService(repo repository.ProductRepository, feed changefeed.Feed, pub events.Publisher, loc *time.Location) CatalogService {
	if loc == nil {
		loc = time.UTC
	}
	return &catalogService{repo: repo, feed: feed, pub: pub, loc: loc, now: time.Now}
}

func (s *catalogService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierror.Validation("product name is required")
	}
	if !req.Price.IsPositive() {
		return nil, apierror.Validation("price must be greater than zero")
	}
	warranty := model.Warranty{HasWarranty: req.HasWarranty}
	if req.HasWarranty {
		if req.WarrantyMonths <= 0 {
			return nil, apierror.Validation("warranty months must be greater than zero")
		}
		warranty.Months = req.WarrantyMonths
	}

	p := &model.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     req.Price,
		Warranty:  warranty,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("product created")

	events.Emit(ctx, s.pub, events.ProductCreated, p.ID, events.ProductPayload{
		ProductID: p.ID, Name: p.Name, Price: p.Price.StringFixed(2),
	})
	s.notify(ctx, changefeed.ActionCreated, p.ID)

	resp := toProductResponse(p, s.loc)
	return &resp, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toProductResponse(p, s.loc)
	return &resp, nil
}

func (s *catalogService) List(ctx context.Context, filter dto.ListFilter) (*dto.ProductListResponse, error) {
	q, filter, err := listQuery(filter, s.loc)
	if err != nil {
		return nil, err
	}
	products, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductResponse, len(products))
	for i := range products {
		data[i] = toProductResponse(&products[i], s.loc)
	}
	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: dto.TotalPages(total, filter.Limit),
	}, nil
}

// Delete removes the catalog entry. Recorded sales keep their line snapshots.
func (s *catalogService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("product_id", id).Msg("product deleted")
	events.Emit(ctx, s.pub, events.ProductDeleted, id, events.ProductPayload{ProductID: id})
	s.notify(ctx, changefeed.ActionDeleted, id)
	return nil
}

func (s *catalogService) Subscribe(ctx context.Context) (*changefeed.Subscription, error) {
	return s.feed.Subscribe(ctx, changefeed.TopicProducts)
}

func (s *catalogService) notify(ctx context.Context, action changefeed.Action, id string) {
	if s.feed == nil {
		return
	}
	err := s.feed.Notify(ctx, changefeed.ChangeEvent{
		Topic: changefeed.TopicProducts, Action: action, ID: id, At: s.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("product_id", id).Msg("catalog: change notify failed")
	}
}
