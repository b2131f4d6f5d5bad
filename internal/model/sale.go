package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentOnline PaymentMethod = "Online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentOnline
}

// SaleLineItem is a snapshot of a catalog product taken when the sale was recorded.
// ProductID may dangle once the product is deleted; ProductName keeps the line readable.
type SaleLineItem struct {
	ID          uint            `gorm:"primaryKey" bson:"-"`
	SaleID      string          `gorm:"type:varchar(36);index;not null" bson:"-"`
	Position    int             `gorm:"not null" bson:"position"`
	ProductID   string          `gorm:"type:varchar(36);index" bson:"productId"`
	ProductName string          `gorm:"not null" bson:"productName"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" bson:"price"`

	// DiscountPrice, when set, replaces Price for display and net totals. 0 <= DiscountPrice <= Price.
	DiscountPrice *decimal.Decimal `gorm:"type:decimal(12,2)" bson:"discountPrice,omitempty"`
	Warranty      Warranty         `gorm:"embedded;embeddedPrefix:warranty_" bson:"warranty"`
}

// Sale is created once. Afterwards only the invoice and notification status
// fields change; the priced content is frozen. Deletion removes the whole record.
type Sale struct {
	ID            string        `gorm:"type:varchar(36);primaryKey" bson:"_id"`
	Username      string        `gorm:"index;not null" bson:"username"`
	PhoneNumber   string        `gorm:"type:varchar(15);index;not null" bson:"phoneNumber"`
	CustomerEmail *string       `bson:"customerEmail,omitempty"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(10);not null" bson:"paymentMethod"`
	Timestamp     time.Time     `gorm:"column:sold_at;index;not null" bson:"timestamp"`

	// Discount is a flat currency amount applied after per-line discount prices.
	Discount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" bson:"discount"`

	InvoiceURL      *string       `bson:"invoiceUrl,omitempty"`
	InvoiceStatus   InvoiceStatus `gorm:"type:varchar(20);not null;default:'pending';index" bson:"invoiceStatus"`
	InvoiceError    *string       `bson:"invoiceError,omitempty"`
	InvoiceAttempts int           `gorm:"not null;default:0" bson:"invoiceAttempts"`

	// InvoiceClaimedUntil is the lease of the worker currently rendering the invoice.
	InvoiceClaimedUntil *time.Time `bson:"invoiceClaimedUntil,omitempty" json:"-"`

	NotificationStatus       NotificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" bson:"notificationStatus"`
	NotificationError        *string            `bson:"notificationError,omitempty"`
	NotificationAttempts     int                `gorm:"not null;default:0" bson:"notificationAttempts"`
	NotificationClaimedUntil *time.Time         `bson:"notificationClaimedUntil,omitempty" json:"-"`

	UpdatedAt time.Time `bson:"updatedAt"`

	Products []SaleLineItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" bson:"products"`
}
