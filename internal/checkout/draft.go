// Package checkout gates a sale before it is persisted.
//
// A Draft moves Editing -> Validating -> Rejected | Accepted. Validation
// short-circuits on the first failure and never mutates the draft. A rejected
// draft goes back to Editing on the next edit; an accepted draft is frozen and
// yields the model.Sale handed to persistence.
//
// A Draft is not safe for concurrent use.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"
	"maaztelecom/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type State int

const (
	Editing State = iota
	Validating
	Rejected
	Accepted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	}
	return "unknown"
}

// ErrFrozen is returned by every mutator once the draft has been accepted.
var ErrFrozen = errors.New("checkout: draft already accepted")

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// Catalog resolves the product a line was picked from.
// Missing products must be reported as apierror.KindNotFound.
type Catalog interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
}

// LineInput is one sale line as entered at the counter. ProductName and Price
// start from the catalog entry but may be edited before submission.
type LineInput struct {
	ProductID     string
	ProductName   string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
}

type Draft struct {
	state    State
	username string
	phone    string
	email    *string
	method   model.PaymentMethod
	lines    []LineInput
	discount decimal.Decimal
	lastErr  error
	sale     *model.Sale
}

func NewDraft() *Draft {
	return &Draft{discount: decimal.Zero}
}

func (d *Draft) State() State { return d.state }

// Err returns the reason of the last rejection, if the draft is Rejected.
func (d *Draft) Err() error {
	if d.state != Rejected {
		return nil
	}
	return d.lastErr
}

// Sale returns the frozen sale once accepted, nil otherwise.
func (d *Draft) Sale() *model.Sale { return d.sale }

func (d *Draft) edit(fn func()) error {
	if d.state == Accepted {
		return ErrFrozen
	}
	fn()
	d.state = Editing
	d.lastErr = nil
	return nil
}

func (d *Draft) SetCustomer(username, phone string) error {
	return d.edit(func() {
		d.username = strings.TrimSpace(username)
		d.phone = strings.TrimSpace(phone)
	})
}

func (d *Draft) SetEmail(email string) error {
	return d.edit(func() {
		email = strings.TrimSpace(email)
		if email == "" {
			d.email = nil
			return
		}
		d.email = &email
	})
}

func (d *Draft) SetPaymentMethod(m model.PaymentMethod) error {
	return d.edit(func() { d.method = m })
}

func (d *Draft) SetDiscount(v decimal.Decimal) error {
	return d.edit(func() { d.discount = v })
}

func (d *Draft) AddLine(l LineInput) error {
	return d.edit(func() { d.lines = append(d.lines, l) })
}

func (d *Draft) UpdateLine(i int, l LineInput) error {
	if i < 0 || i >= len(d.lines) {
		return fmt.Errorf("checkout: line %d out of range", i)
	}
	return d.edit(func() { d.lines[i] = l })
}

func (d *Draft) RemoveLine(i int) error {
	if i < 0 || i >= len(d.lines) {
		return fmt.Errorf("checkout: line %d out of range", i)
	}
	return d.edit(func() { d.lines = append(d.lines[:i], d.lines[i+1:]...) })
}

// Preview prices the draft as it stands, for the live totals on the sell form.
func (d *Draft) Preview() (pricing.Totals, error) {
	return pricing.Compute(d.pricingLines(), d.discount)
}

func (d *Draft) pricingLines() []pricing.Line {
	lines := make([]pricing.Line, len(d.lines))
	for i, l := range d.lines {
		lines[i] = pricing.Line{Price: l.Price, DiscountPrice: l.DiscountPrice}
	}
	return lines
}

// Submit validates the draft. On success the draft is frozen and the sale,
// with fresh id, timestamp and pending statuses, is returned. Validation
// failures are apierror.KindValidation; catalog lookup failures are returned
// as-is and leave the draft in Editing.
func (d *Draft) Submit(ctx context.Context, catalog Catalog, now time.Time) (*model.Sale, error) {
	if d.state == Accepted {
		return d.sale, nil
	}
	d.state = Validating

	snapshots, err := d.validate(ctx, catalog)
	if err != nil {
		if apierror.Is(err, apierror.KindValidation) {
			d.state = Rejected
			d.lastErr = err
		} else {
			d.state = Editing
		}
		return nil, err
	}

	sale := &model.Sale{
		ID:                 uuid.NewString(),
		Username:           d.username,
		PhoneNumber:        d.phone,
		CustomerEmail:      d.email,
		PaymentMethod:      d.method,
		Discount:           d.discount,
		Timestamp:          now.UTC(),
		InvoiceStatus:      model.InvoicePending,
		NotificationStatus: model.NotificationPending,
		Products:           make([]model.SaleLineItem, len(d.lines)),
	}
	for i, l := range d.lines {
		sale.Products[i] = model.SaleLineItem{
			SaleID:        sale.ID,
			Position:      i + 1,
			ProductID:     l.ProductID,
			ProductName:   strings.TrimSpace(l.ProductName),
			Price:         l.Price,
			DiscountPrice: l.DiscountPrice,
			Warranty:      snapshots[i].Warranty,
		}
	}

	d.sale = sale
	d.state = Accepted
	return sale, nil
}

func (d *Draft) validate(ctx context.Context, catalog Catalog) ([]*model.Product, error) {
	if d.username == "" {
		return nil, apierror.Validation("username is required")
	}
	if d.phone == "" {
		return nil, apierror.Validation("phone number is required")
	}
	if !phonePattern.MatchString(d.phone) {
		return nil, apierror.Validation("please enter a valid phone number")
	}
	if !d.method.Valid() {
		return nil, apierror.Validation("payment method is required")
	}
	if len(d.lines) == 0 {
		return nil, apierror.Validation("at least one product is required")
	}

	snapshots := make([]*model.Product, len(d.lines))
	rawSubtotal := decimal.Zero
	for i, l := range d.lines {
		n := i + 1
		if strings.TrimSpace(l.ProductName) == "" {
			return nil, apierror.Validationf("product name is required for item %d", n)
		}
		if l.ProductID == "" {
			return nil, apierror.Validationf("please select a valid product for item %d", n)
		}
		p, err := catalog.FindByID(ctx, l.ProductID)
		if err != nil {
			if apierror.Is(err, apierror.KindNotFound) {
				return nil, apierror.Validationf("please select a valid product for item %d", n)
			}
			return nil, fmt.Errorf("resolve product for item %d: %w", n, err)
		}
		if !l.Price.IsPositive() {
			return nil, apierror.Validationf("price must be greater than zero for item %d", n)
		}
		if _, err := pricing.LineDisplayPrice(pricing.Line{Price: l.Price, DiscountPrice: l.DiscountPrice}); err != nil {
			return nil, apierror.Validationf("discount price must be between 0 and the price for item %d", n)
		}
		snapshots[i] = p
		rawSubtotal = rawSubtotal.Add(l.Price)
	}

	if d.discount.IsNegative() {
		return nil, apierror.Validation("discount cannot be negative")
	}
	if d.discount.GreaterThan(rawSubtotal) {
		return nil, apierror.Validation("discount exceeds subtotal")
	}
	return snapshots, nil
}
