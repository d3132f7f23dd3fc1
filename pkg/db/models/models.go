package models

// All returns every persisted model; used by sqlite-backed tests and the dev bootstrap.
func All() []any {
	return []any{
		&LicenseKey{},
		&PremiumSubscription{},
		&PremiumSubscriptionKey{},
		&ReceiptScanUsage{},
		&PortalInvoice{},
		&PortalPayment{},
		&DownloadEvent{},
	}
}
