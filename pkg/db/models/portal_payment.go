package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/enums"
)

// PortalPayment records one provider event against an invoice. Refunds are
// separate rows with a negative amount.
type PortalPayment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID             string              `gorm:"column:company_id;not null;index:idx_portal_payments_invoice"`
	InvoiceID             string              `gorm:"column:invoice_id;not null;index:idx_portal_payments_invoice"`
	CustomerName          string              `gorm:"column:customer_name"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency              string              `gorm:"column:currency;not null;default:'USD'"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	ProviderPaymentID     string              `gorm:"column:provider_payment_id;not null;uniqueIndex"`
	ProviderTransactionID *string             `gorm:"column:provider_transaction_id"`
	ReferenceNumber       *string             `gorm:"column:reference_number"`
	Status                enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'completed'"`
	PaymentDate           time.Time           `gorm:"column:payment_date;not null"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PortalPayment) TableName() string { return "portal_payments" }

func (p *PortalPayment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
