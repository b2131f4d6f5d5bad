// Package repository defines the catalog and sale store contracts and their
// GORM/Postgres implementation. Every implementation reports a missing record
// as apierror.KindNotFound and a failed read or write as
// apierror.KindPersistence, so services never inspect driver errors.
package repository

import (
	"context"
	"errors"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"

	"gorm.io/gorm"
)

// ListQuery narrows a dashboard listing. From/To form a half-open window
// [From, To); a zero value leaves that side unbounded.
type ListQuery struct {
	Search string
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}

// InvoiceUpdate changes the invoice side of a sale. Nil fields are left as-is
// except Error, which is cleared when Status is uploaded. Any status other
// than pending also releases the invoice claim.
type InvoiceUpdate struct {
	Status           model.InvoiceStatus
	URL              *string
	Error            *string
	IncrementAttempt bool
}

type NotificationUpdate struct {
	Status           model.NotificationStatus
	Error            *string
	IncrementAttempt bool
}

// Claim reserves a sale's invoice or notification for one worker. It succeeds
// only while the status still equals the one the worker read and no other
// claim is live at Now; the winner holds it until Now+Lease or until its
// outcome is written.
type InvoiceClaim struct {
	From  model.InvoiceStatus
	Now   time.Time
	Lease time.Duration
}

type NotificationClaim struct {
	From  model.NotificationStatus
	Now   time.Time
	Lease time.Duration
}

// RetryQuery selects sales whose side effects should be attempted again.
// Failed statuses qualify while attempts < MaxAttempts; pending statuses
// qualify once the sale was last touched before StaleBefore.
type RetryQuery struct {
	MaxAttempts int
	StaleBefore time.Time
	Limit       int
}

// ProductRepository is the catalog store.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, q ListQuery) ([]model.Product, int64, error)
	Delete(ctx context.Context, id string) error
}

// SaleRepository is the sale store. Priced content is written once by Create;
// afterwards only the status fields change.
type SaleRepository interface {
	Create(ctx context.Context, s *model.Sale) error
	FindByID(ctx context.Context, id string) (*model.Sale, error)
	List(ctx context.Context, q ListQuery) ([]model.Sale, int64, error)
	Delete(ctx context.Context, id string) error
	UpdateInvoice(ctx context.Context, id string, u InvoiceUpdate) error
	UpdateNotification(ctx context.Context, id string, u NotificationUpdate) error
	// ClaimInvoice and ClaimNotification report false, without error, when
	// the sale is gone or another worker got there first.
	ClaimInvoice(ctx context.Context, id string, c InvoiceClaim) (bool, error)
	ClaimNotification(ctx context.Context, id string, c NotificationClaim) (bool, error)
	// Touch bumps UpdatedAt so a re-enqueued pending sale is not stale again
	// until another retry interval has passed.
	Touch(ctx context.Context, id string) error
	ListRetryable(ctx context.Context, q RetryQuery) ([]model.Sale, error)
}

func wrap(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(resource)
	}
	return apierror.Persistence(op, err)
}
