package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to InvoiceStatus
		want     bool
	}{
		{InvoicePending, InvoiceUploaded, true},
		{InvoicePending, InvoiceFailed, true},
		{InvoiceFailed, InvoicePending, true},
		{InvoiceFailed, InvoiceUploaded, true},
		{InvoiceUploaded, InvoiceFailed, false},
		{InvoiceUploaded, InvoicePending, false},
		{InvoiceUploaded, InvoiceUploaded, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNotificationStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to NotificationStatus
		want     bool
	}{
		{NotificationPending, NotificationSent, true},
		{NotificationPending, NotificationSkipped, true},
		{NotificationSkipped, NotificationSent, true},
		{NotificationSkipped, NotificationPending, true},
		{NotificationFailed, NotificationSent, true},
		{NotificationSent, NotificationFailed, false},
		{NotificationSent, NotificationPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, PaymentCash.Valid())
	assert.True(t, PaymentOnline.Valid())
	assert.False(t, PaymentMethod("Card").Valid())
	assert.False(t, PaymentMethod("").Valid())
}
