package service

import (
	"context"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/checkout"
	"maaztelecom/internal/dto"
	"maaztelecom/internal/events"
	"maaztelecom/internal/metrics"
	"maaztelecom/internal/model"
	"maaztelecom/internal/pricing"
	"maaztelecom/internal/repository"
	"maaztelecom/internal/worker"

	"github.com/rs/zerolog/log"
)

const verifiedMessage = "This sale has been verified successfully!"

// SaleService defines the business logic contract for sales.
type SaleService interface {
	Preview(ctx context.Context, req dto.RecordSaleRequest) (*dto.PreviewResponse, error)
	Record(ctx context.Context, req dto.RecordSaleRequest) (*dto.SaleResponse, error)
	Get(ctx context.Context, id string) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.ListFilter) (*dto.SaleListResponse, error)
	Delete(ctx context.Context, id string) error
	Verify(ctx context.Context, id string) (*dto.VerifyResponse, error)
	RetryInvoice(ctx context.Context, id string) (*dto.RetryResponse, error)
	RetryNotification(ctx context.Context, id string) (*dto.RetryResponse, error)
	Subscribe(ctx context.Context) (*changefeed.Subscription, error)
}

type SaleServiceConfig struct {
	Sales     repository.SaleRepository
	Products  repository.ProductRepository
	Enqueuer  worker.Enqueuer
	Feed      changefeed.Feed
	Publisher events.Publisher
	Cache     VerifyCache // optional
	Metrics   *metrics.Metrics
	Location  *time.Location
}

type saleService struct {
	cfg SaleServiceConfig
	loc *time.Location
	now func() time.Time
}

func NewSaleService(cfg SaleServiceConfig) SaleService {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &saleService{cfg: cfg, loc: loc, now: time.Now}
}

func draftFrom(req dto.RecordSaleRequest) *checkout.Draft {
	d := checkout.NewDraft()
	// Mutators only fail on an accepted draft; this one is fresh.
	_ = d.SetCustomer(req.Username, req.PhoneNumber)
	if req.CustomerEmail != nil {
		_ = d.SetEmail(*req.CustomerEmail)
	}
	_ = d.SetPaymentMethod(model.PaymentMethod(req.PaymentMethod))
	_ = d.SetDiscount(req.Discount)
	for _, l := range req.Products {
		_ = d.AddLine(checkout.LineInput{
			ProductID:     l.ProductID,
			ProductName:   l.ProductName,
			Price:         l.Price,
			DiscountPrice: l.DiscountPrice,
		})
	}
	return d
}

// Preview prices the form as entered, without the checkout rules.
func (s *saleService) Preview(_ context.Context, req dto.RecordSaleRequest) (*dto.PreviewResponse, error) {
	totals, err := draftFrom(req).Preview()
	if err != nil {
		return nil, apierror.Validation(err.Error())
	}
	lines := make([]dto.PreviewLine, len(totals.Lines))
	for i, lp := range totals.Lines {
		lines[i] = dto.PreviewLine{
			DisplayPrice: lp.Display.StringFixed(2),
			Discounted:   lp.Discounted,
			Label:        lp.Label(req.Products[i].ProductName),
		}
	}
	return &dto.PreviewResponse{
		Lines:          lines,
		Totals:         totals.Display(),
		HasDiscount:    totals.HasDiscount(),
		DiscountCapped: totals.DiscountCapped(),
	}, nil
}

// Record validates and persists a sale, then queues its invoice. Only
// validation and persistence can fail the call; a queueing failure leaves the
// invoice pending for the retry scheduler.
func (s *saleService) Record(ctx context.Context, req dto.RecordSaleRequest) (*dto.SaleResponse, error) {
	draft := draftFrom(req)
	sale, err := draft.Submit(ctx, s.cfg.Products, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cfg.Sales.Create(ctx, sale); err != nil {
		log.Error().Err(err).Str("sale_id", sale.ID).Msg("sale: persist failed")
		return nil, err
	}
	s.cfg.Metrics.SaleRecorded()

	resp := toSaleResponse(sale, s.loc)
	log.Info().
		Str("sale_id", sale.ID).
		Str("payment_method", string(sale.PaymentMethod)).
		Str("final_total", resp.Totals.FinalTotal).
		Int("lines", len(sale.Products)).
		Msg("sale recorded")

	events.Emit(ctx, s.cfg.Publisher, events.SaleRecorded, sale.ID, events.SalePayload{
		SaleID:        sale.ID,
		Username:      sale.Username,
		PhoneNumber:   sale.PhoneNumber,
		PaymentMethod: string(sale.PaymentMethod),
		FinalTotal:    resp.Totals.FinalTotal,
		Lines:         len(sale.Products),
	})
	s.notify(ctx, changefeed.ActionCreated, sale.ID)

	if err := s.cfg.Enqueuer.EnqueueInvoice(ctx, sale.ID); err != nil {
		log.Error().Err(err).Str("sale_id", sale.ID).Msg("sale: enqueue invoice failed, left for retry")
	}
	return &resp, nil
}

func (s *saleService) Get(ctx context.Context, id string) (*dto.SaleResponse, error) {
	sale, err := s.cfg.Sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toSaleResponse(sale, s.loc)
	return &resp, nil
}

func (s *saleService) List(ctx context.Context, filter dto.ListFilter) (*dto.SaleListResponse, error) {
	q, filter, err := listQuery(filter, s.loc)
	if err != nil {
		return nil, err
	}
	sales, total, err := s.cfg.Sales.List(ctx, q)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, len(sales))
	for i := range sales {
		data[i] = toSaleResponse(&sales[i], s.loc)
	}
	return &dto.SaleListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: dto.TotalPages(total, filter.Limit),
	}, nil
}

func (s *saleService) Delete(ctx context.Context, id string) error {
	if err := s.cfg.Sales.Delete(ctx, id); err != nil {
		return err
	}
	if s.cfg.Cache != nil {
		s.cfg.Cache.Invalidate(ctx, id)
	}
	log.Info().Str("sale_id", id).Msg("sale deleted")
	events.Emit(ctx, s.cfg.Publisher, events.SaleDeleted, id, events.SalePayload{SaleID: id})
	s.notify(ctx, changefeed.ActionDeleted, id)
	return nil
}

// Verify is the public read-only view of a sale, priced by the same engine
// as every other surface.
func (s *saleService) Verify(ctx context.Context, id string) (*dto.VerifyResponse, error) {
	if s.cfg.Cache != nil {
		if cached, ok := s.cfg.Cache.Get(ctx, id); ok {
			return cached, nil
		}
	}

	sale, err := s.cfg.Sales.FindByID(ctx, id)
	if apierror.Is(err, apierror.KindNotFound) {
		return nil, &apierror.Error{Kind: apierror.KindNotFound, Msg: "No sale found with the provided key."}
	}
	if err != nil {
		return nil, err
	}
	totals, err := pricing.ComputeSale(sale)
	if err != nil {
		return nil, apierror.Validation(err.Error())
	}

	resp := &dto.VerifyResponse{
		ID:            sale.ID,
		Username:      sale.Username,
		PhoneNumber:   sale.PhoneNumber,
		PaymentMethod: string(sale.PaymentMethod),
		Date:          sale.Timestamp.In(s.loc).Format("2006-01-02"),
		Products:      lineResponses(sale.Products, totals.Lines),
		Totals:        totals.Display(),
		HasDiscount:   totals.HasDiscount(),
		Verified:      true,
		Message:       verifiedMessage,
	}
	if s.cfg.Cache != nil {
		s.cfg.Cache.Set(ctx, id, resp)
	}
	return resp, nil
}

// RetryInvoice resets a failed invoice to pending and queues it again.
func (s *saleService) RetryInvoice(ctx context.Context, id string) (*dto.RetryResponse, error) {
	sale, err := s.cfg.Sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sale.InvoiceStatus {
	case model.InvoiceUploaded:
		return nil, apierror.Validation("invoice already uploaded")
	case model.InvoiceFailed:
		if err := s.cfg.Sales.UpdateInvoice(ctx, id, repository.InvoiceUpdate{Status: model.InvoicePending}); err != nil {
			return nil, err
		}
	}
	if err := s.cfg.Enqueuer.EnqueueInvoice(ctx, id); err != nil {
		return nil, apierror.Dispatch("could not queue invoice", err)
	}
	log.Info().Str("sale_id", id).Msg("invoice retry queued")
	s.notify(ctx, changefeed.ActionUpdated, id)
	return &dto.RetryResponse{ID: id, Status: string(model.InvoicePending)}, nil
}

// RetryNotification resets a failed or skipped notification to pending and
// queues it again. The invoice must already be uploaded.
func (s *saleService) RetryNotification(ctx context.Context, id string) (*dto.RetryResponse, error) {
	sale, err := s.cfg.Sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale.InvoiceStatus != model.InvoiceUploaded {
		return nil, apierror.Validation("invoice has not been uploaded yet")
	}
	switch sale.NotificationStatus {
	case model.NotificationSent:
		return nil, apierror.Validation("notification already sent")
	case model.NotificationFailed, model.NotificationSkipped:
		if err := s.cfg.Sales.UpdateNotification(ctx, id, repository.NotificationUpdate{Status: model.NotificationPending}); err != nil {
			return nil, err
		}
	}
	if err := s.cfg.Enqueuer.EnqueueNotification(ctx, id); err != nil {
		return nil, apierror.Dispatch("could not queue notification", err)
	}
	log.Info().Str("sale_id", id).Msg("notification retry queued")
	s.notify(ctx, changefeed.ActionUpdated, id)
	return &dto.RetryResponse{ID: id, Status: string(model.NotificationPending)}, nil
}

func (s *saleService) Subscribe(ctx context.Context) (*changefeed.Subscription, error) {
	return s.cfg.Feed.Subscribe(ctx, changefeed.TopicSales)
}

func (s *saleService) notify(ctx context.Context, action changefeed.Action, id string) {
	if s.cfg.Feed == nil {
		return
	}
	err := s.cfg.Feed.Notify(ctx, changefeed.ChangeEvent{
		Topic: changefeed.TopicSales, Action: action, ID: id, At: s.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("sale_id", id).Msg("sale: change notify failed")
	}
}
