package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/enums"
)

// PortalInvoice is a customer-portal invoice settled through a payment provider.
type PortalInvoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID     string              `gorm:"column:company_id;not null;uniqueIndex:idx_portal_invoices_company_invoice"`
	InvoiceID     string              `gorm:"column:invoice_id;not null;uniqueIndex:idx_portal_invoices_company_invoice"`
	InvoiceNumber string              `gorm:"column:invoice_number"`
	CustomerName  string              `gorm:"column:customer_name"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	BalanceDue    decimal.Decimal     `gorm:"column:balance_due;type:numeric(12,2);not null"`
	Currency      string              `gorm:"column:currency;not null;default:'USD'"`
	Status        enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'sent'"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PortalInvoice) TableName() string { return "portal_invoices" }

func (i *PortalInvoice) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
