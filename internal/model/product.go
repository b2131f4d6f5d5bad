package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warranty is snapshotted onto each sale line at sale time.
// A zero Warranty is equivalent to "no warranty".
type Warranty struct {
	HasWarranty bool `gorm:"not null;default:false" bson:"hasWarranty" json:"has_warranty"`
	Months      int  `gorm:"not null;default:0" bson:"months,omitempty" json:"months,omitempty"`
}

// Product is a catalog entry. The pricing engine reads it, never mutates it.
type Product struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" bson:"_id"`
	Name      string          `gorm:"index;not null" bson:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" bson:"price"`
	Warranty  Warranty        `gorm:"embedded;embeddedPrefix:warranty_" bson:"warranty"`
	CreatedAt time.Time       `gorm:"index" bson:"createdAt"`
}
