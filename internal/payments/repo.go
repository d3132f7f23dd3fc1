package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
)

// Repository handles invoice and payment persistence. Finders return
// (nil, nil) when nothing matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockInvoice(ctx context.Context, companyID, invoiceID string) (*models.PortalInvoice, error)
	SaveInvoice(ctx context.Context, invoice *models.PortalInvoice) error
	FindPaymentByProviderID(ctx context.Context, providerPaymentID string) (*models.PortalPayment, error)
	LockCompletedPayment(ctx context.Context, providerPaymentID string) (*models.PortalPayment, error)
	CreatePayment(ctx context.Context, payment *models.PortalPayment) error
	MarkPaymentRefunded(ctx context.Context, payment *models.PortalPayment) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockInvoice(ctx context.Context, companyID, invoiceID string) (*models.PortalInvoice, error) {
	var invoice models.PortalInvoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND invoice_id = ?", companyID, invoiceID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) SaveInvoice(ctx context.Context, invoice *models.PortalInvoice) error {
	return r.db.WithContext(ctx).
		Model(invoice).
		Select("balance_due", "status", "paid_at", "updated_at").
		Updates(invoice).Error
}

func (r *repository) FindPaymentByProviderID(ctx context.Context, providerPaymentID string) (*models.PortalPayment, error) {
	var payment models.PortalPayment
	err := r.db.WithContext(ctx).
		Where("provider_payment_id = ?", providerPaymentID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LockCompletedPayment(ctx context.Context, providerPaymentID string) (*models.PortalPayment, error) {
	var payment models.PortalPayment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_payment_id = ? AND status = ?", providerPaymentID, enums.PaymentStatusCompleted).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.PortalPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) MarkPaymentRefunded(ctx context.Context, payment *models.PortalPayment) error {
	return r.db.WithContext(ctx).
		Model(payment).
		Update("status", enums.PaymentStatusRefunded).Error
}
