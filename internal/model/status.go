package model

// InvoiceStatus tracks the render+upload side effect of a sale.
type InvoiceStatus string

const (
	InvoicePending  InvoiceStatus = "pending"
	InvoiceUploaded InvoiceStatus = "uploaded"
	InvoiceFailed   InvoiceStatus = "failed"
)

// NotificationStatus tracks the WhatsApp dispatch of the uploaded invoice.
// Skipped means there was no invoice URL to send.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationSkipped NotificationStatus = "skipped"
)

var invoiceNext = map[InvoiceStatus]map[InvoiceStatus]bool{
	InvoicePending:  {InvoiceUploaded: true, InvoiceFailed: true},
	InvoiceFailed:   {InvoicePending: true, InvoiceUploaded: true, InvoiceFailed: true},
	InvoiceUploaded: {},
}

var notificationNext = map[NotificationStatus]map[NotificationStatus]bool{
	NotificationPending: {NotificationSent: true, NotificationFailed: true, NotificationSkipped: true},
	NotificationFailed:  {NotificationPending: true, NotificationSent: true, NotificationFailed: true},
	NotificationSkipped: {NotificationPending: true, NotificationSent: true, NotificationFailed: true, NotificationSkipped: true},
	NotificationSent:    {},
}

func (s InvoiceStatus) CanTransition(to InvoiceStatus) bool {
	return invoiceNext[s][to]
}

func (s NotificationStatus) CanTransition(to NotificationStatus) bool {
	return notificationNext[s][to]
}
