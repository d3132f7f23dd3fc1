package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/db"
	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/money"
)

// RefundKeyPrefix prefixes the provider_payment_id of refund rows.
const RefundKeyPrefix = "refund_"

// Outcome describes what a record call did.
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

var errDuplicatePayment = errors.New("payment already recorded")

// PaymentInput is a completed provider payment. Amounts are minor units.
type PaymentInput struct {
	CompanyID             string
	InvoiceID             string
	CustomerName          string
	AmountCents           int64
	Currency              string
	Method                enums.PaymentMethod
	ProviderPaymentID     string
	ProviderTransactionID string
	ReferenceNumber       string
	PaidAt                time.Time
}

func (in PaymentInput) validate() error {
	switch {
	case strings.TrimSpace(in.ProviderPaymentID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	case strings.TrimSpace(in.CompanyID) == "" || strings.TrimSpace(in.InvoiceID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "company and invoice ids required")
	case in.AmountCents <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	case !in.Method.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	return nil
}

type RecorderParams struct {
	Repo     Repository
	TxRunner db.TxRunner
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Recorder applies provider payments and refunds to portal invoices. Each
// call runs the payment write and the invoice update in one transaction.
type Recorder struct {
	repo  Repository
	tx    db.TxRunner
	logg  *logger.Logger
	clock func() time.Time
}

func NewRecorder(params RecorderParams) (*Recorder, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repository required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{repo: params.Repo, tx: params.TxRunner, logg: params.Logger, clock: clock}, nil
}

// RecordPayment stores the payment once per provider payment id and moves
// the invoice balance toward zero.
func (r *Recorder) RecordPayment(ctx context.Context, in PaymentInput) (Outcome, error) {
	if err := in.validate(); err != nil {
		return "", err
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"provider_payment_id": in.ProviderPaymentID,
		"company_id":          in.CompanyID,
		"invoice_id":          in.InvoiceID,
	})

	outcome := OutcomeRecorded
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)

		existing, err := repo.FindPaymentByProviderID(ctx, in.ProviderPaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lookup payment")
		}
		if existing != nil {
			return errDuplicatePayment
		}

		invoice, err := repo.LockInvoice(ctx, in.CompanyID, in.InvoiceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock invoice")
		}
		if invoice == nil {
			outcome = OutcomeIgnored
			return nil
		}

		now := r.clock().UTC()
		amount := money.FromCents(in.AmountCents)
		payment := &models.PortalPayment{
			CompanyID:             in.CompanyID,
			InvoiceID:             in.InvoiceID,
			CustomerName:          firstNonEmpty(in.CustomerName, invoice.CustomerName),
			Amount:                amount,
			Currency:              currencyOrDefault(in.Currency, invoice.Currency),
			PaymentMethod:         in.Method,
			ProviderPaymentID:     in.ProviderPaymentID,
			ProviderTransactionID: optional(in.ProviderTransactionID),
			ReferenceNumber:       optional(in.ReferenceNumber),
			Status:                enums.PaymentStatusCompleted,
			PaymentDate:           paidAtOr(in.PaidAt, now),
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errDuplicatePayment
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "insert payment")
		}

		if !invoice.Status.IsSettleable() {
			r.logg.Warn(r.logg.WithField(ctx, "invoice_status", string(invoice.Status)), "payment recorded against unsettleable invoice")
			return nil
		}
		applyPayment(invoice, amount, now)
		if err := repo.SaveInvoice(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update invoice")
		}
		return nil
	})

	switch {
	case errors.Is(err, errDuplicatePayment):
		r.logg.Info(ctx, "duplicate payment delivery ignored")
		return OutcomeDuplicate, nil
	case err != nil:
		r.logg.Error(ctx, "record payment failed", err)
		return "", err
	case outcome == OutcomeIgnored:
		r.logg.Warn(ctx, "payment references unknown invoice; not recorded")
	default:
		r.logg.Info(ctx, "payment recorded")
	}
	return outcome, nil
}

// RecordRefund reverses a completed payment. A non-positive or oversized
// amount refunds the full original. Unknown or already refunded payments are
// a no-op.
func (r *Recorder) RecordRefund(ctx context.Context, providerPaymentID string, amountCents int64) (Outcome, error) {
	providerPaymentID = strings.TrimSpace(providerPaymentID)
	if providerPaymentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	}
	ctx = r.logg.WithField(ctx, "provider_payment_id", providerPaymentID)

	outcome := OutcomeRecorded
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)

		original, err := repo.LockCompletedPayment(ctx, providerPaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock payment")
		}
		if original == nil {
			outcome = OutcomeIgnored
			return nil
		}

		refund := original.Amount
		if requested := money.FromCents(amountCents); requested.IsPositive() && requested.LessThan(refund) {
			refund = requested
		}

		now := r.clock().UTC()
		row := &models.PortalPayment{
			CompanyID:             original.CompanyID,
			InvoiceID:             original.InvoiceID,
			CustomerName:          original.CustomerName,
			Amount:                refund.Neg(),
			Currency:              original.Currency,
			PaymentMethod:         original.PaymentMethod,
			ProviderPaymentID:     RefundKeyPrefix + providerPaymentID,
			ProviderTransactionID: original.ProviderTransactionID,
			ReferenceNumber:       original.ReferenceNumber,
			Status:                enums.PaymentStatusRefunded,
			PaymentDate:           now,
		}
		if err := repo.CreatePayment(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errDuplicatePayment
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "insert refund")
		}
		if err := repo.MarkPaymentRefunded(ctx, original); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "mark payment refunded")
		}
		original.Status = enums.PaymentStatusRefunded

		invoice, err := repo.LockInvoice(ctx, original.CompanyID, original.InvoiceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lock invoice")
		}
		if invoice == nil || !invoice.Status.IsSettleable() {
			return nil
		}
		applyRefund(invoice, refund)
		if err := repo.SaveInvoice(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update invoice")
		}
		return nil
	})

	switch {
	case errors.Is(err, errDuplicatePayment):
		r.logg.Info(ctx, "duplicate refund delivery ignored")
		return OutcomeDuplicate, nil
	case err != nil:
		r.logg.Error(ctx, "record refund failed", err)
		return "", err
	case outcome == OutcomeIgnored:
		r.logg.Info(ctx, "refund for unknown or already refunded payment ignored")
	default:
		r.logg.Info(ctx, "refund recorded")
	}
	return outcome, nil
}

// applyPayment lowers the balance, never below zero.
func applyPayment(invoice *models.PortalInvoice, amount decimal.Decimal, now time.Time) {
	invoice.BalanceDue = money.Clamp(invoice.BalanceDue.Sub(amount), decimal.Zero, invoice.TotalAmount)
	if invoice.BalanceDue.IsZero() {
		invoice.Status = enums.InvoiceStatusPaid
		invoice.PaidAt = &now
		return
	}
	invoice.Status = enums.InvoiceStatusPartial
}

// applyRefund restores the balance, never above the invoice total.
func applyRefund(invoice *models.PortalInvoice, amount decimal.Decimal) {
	invoice.BalanceDue = money.Clamp(invoice.BalanceDue.Add(amount), decimal.Zero, invoice.TotalAmount)
	switch {
	case invoice.BalanceDue.Equal(invoice.TotalAmount):
		invoice.Status = enums.InvoiceStatusSent
		invoice.PaidAt = nil
	case invoice.BalanceDue.IsPositive():
		invoice.Status = enums.InvoiceStatusPartial
		invoice.PaidAt = nil
	default:
		invoice.Status = enums.InvoiceStatusPaid
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func currencyOrDefault(currency, fallback string) string {
	if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
		return c
	}
	if fallback != "" {
		return fallback
	}
	return "USD"
}

func paidAtOr(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.UTC()
}
