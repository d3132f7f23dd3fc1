package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/db"
	"github.com/ledgerdesk/portal-backend/pkg/db/dbtest"
	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

var fixedNow = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestRecorder(t *testing.T) (*Recorder, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	rec, err := NewRecorder(RecorderParams{
		Repo:     NewRepository(conn),
		TxRunner: db.Wrap(conn),
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return rec, conn
}

func seedInvoice(t *testing.T, conn *gorm.DB, total, balance string, status enums.InvoiceStatus) {
	t.Helper()
	require.NoError(t, conn.Create(&models.PortalInvoice{
		CompanyID:    "co_1",
		InvoiceID:    "inv_1",
		CustomerName: "Acme Ltd",
		TotalAmount:  dec(total),
		BalanceDue:   dec(balance),
		Currency:     "USD",
		Status:       status,
	}).Error)
}

func loadInvoice(t *testing.T, conn *gorm.DB) models.PortalInvoice {
	t.Helper()
	var inv models.PortalInvoice
	require.NoError(t, conn.Where("company_id = ? AND invoice_id = ?", "co_1", "inv_1").First(&inv).Error)
	return inv
}

func paymentInput(id string, cents int64) PaymentInput {
	return PaymentInput{
		CompanyID:         "co_1",
		InvoiceID:         "inv_1",
		AmountCents:       cents,
		Currency:          "usd",
		Method:            enums.PaymentMethodStripe,
		ProviderPaymentID: id,
	}
}

func TestRecordPaymentIsIdempotent(t *testing.T) {
	rec, conn := newTestRecorder(t)
	seedInvoice(t, conn, "250.00", "250.00", enums.InvoiceStatusSent)
	ctx := context.Background()

	outcome, err := rec.RecordPayment(ctx, paymentInput("pi_1", 10000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	outcome, err = rec.RecordPayment(ctx, paymentInput("pi_1", 10000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	var count int64
	require.NoError(t, conn.Model(&models.PortalPayment{}).
		Where("provider_payment_id = ? AND status = ?", "pi_1", enums.PaymentStatusCompleted).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	inv := loadInvoice(t, conn)
	assert.True(t, inv.BalanceDue.Equal(dec("150.00")), "balance decremented once, got %s", inv.BalanceDue)
	assert.Equal(t, enums.InvoiceStatusPartial, inv.Status)
	assert.Nil(t, inv.PaidAt)

	var stored models.PortalPayment
	require.NoError(t, conn.Where("provider_payment_id = ?", "pi_1").First(&stored).Error)
	assert.Equal(t, "USD", stored.Currency)
	assert.Equal(t, "Acme Ltd", stored.CustomerName)
	assert.True(t, stored.PaymentDate.Equal(fixedNow))
}

func TestRecordPaymentSettlesAndClampsAtZero(t *testing.T) {
	rec, conn := newTestRecorder(t)
	seedInvoice(t, conn, "100.00", "40.00", enums.InvoiceStatusPartial)

	_, err := rec.RecordPayment(context.Background(), paymentInput("pi_over", 5000))
	require.NoError(t, err)

	inv := loadInvoice(t, conn)
	assert.True(t, inv.BalanceDue.IsZero())
	assert.Equal(t, enums.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidAt)
}

func TestRecordPaymentUnknownInvoiceIgnored(t *testing.T) {
	rec, conn := newTestRecorder(t)

	outcome, err := rec.RecordPayment(context.Background(), paymentInput("pi_orphan", 1000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	var count int64
	require.NoError(t, conn.Model(&models.PortalPayment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordPaymentValidation(t *testing.T) {
	rec, _ := newTestRecorder(t)
	_, err := rec.RecordPayment(context.Background(), paymentInput("", 1000))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = rec.RecordPayment(context.Background(), paymentInput("pi_zero", 0))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in := paymentInput("pi_bad", 100)
	in.Method = "cash"
	_, err = rec.RecordPayment(context.Background(), in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRecordRefundRestoresBalance(t *testing.T) {
	rec, conn := newTestRecorder(t)
	seedInvoice(t, conn, "100.00", "100.00", enums.InvoiceStatusSent)
	ctx := context.Background()

	_, err := rec.RecordPayment(ctx, paymentInput("pi_full", 10000))
	require.NoError(t, err)
	inv := loadInvoice(t, conn)
	require.Equal(t, enums.InvoiceStatusPaid, inv.Status)
	require.True(t, inv.BalanceDue.IsZero())

	outcome, err := rec.RecordRefund(ctx, "pi_full", 10000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	var refund models.PortalPayment
	require.NoError(t, conn.Where("provider_payment_id = ?", "refund_pi_full").First(&refund).Error)
	assert.True(t, refund.Amount.Equal(dec("-100.00")))

	var original models.PortalPayment
	require.NoError(t, conn.Where("provider_payment_id = ?", "pi_full").First(&original).Error)
	assert.Equal(t, enums.PaymentStatusRefunded, original.Status)

	inv = loadInvoice(t, conn)
	assert.True(t, inv.BalanceDue.Equal(dec("100.00")))
	assert.Equal(t, enums.InvoiceStatusSent, inv.Status)
	assert.Nil(t, inv.PaidAt)

	outcome, err = rec.RecordRefund(ctx, "pi_full", 10000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome, "second refund delivery finds no completed payment")
	assert.True(t, loadInvoice(t, conn).BalanceDue.Equal(dec("100.00")))
}

func TestRecordPartialRefundLeavesInvoicePartial(t *testing.T) {
	rec, conn := newTestRecorder(t)
	seedInvoice(t, conn, "100.00", "100.00", enums.InvoiceStatusSent)
	ctx := context.Background()

	_, err := rec.RecordPayment(ctx, paymentInput("pi_part", 10000))
	require.NoError(t, err)
	_, err = rec.RecordRefund(ctx, "pi_part", 2550)
	require.NoError(t, err)

	inv := loadInvoice(t, conn)
	assert.True(t, inv.BalanceDue.Equal(dec("25.50")))
	assert.Equal(t, enums.InvoiceStatusPartial, inv.Status)
}

func TestRecordRefundCapsAtOriginalAndTotal(t *testing.T) {
	rec, conn := newTestRecorder(t)
	seedInvoice(t, conn, "80.00", "80.00", enums.InvoiceStatusSent)
	ctx := context.Background()

	_, err := rec.RecordPayment(ctx, paymentInput("pi_cap", 8000))
	require.NoError(t, err)
	_, err = rec.RecordRefund(ctx, "pi_cap", 999999)
	require.NoError(t, err)

	var refund models.PortalPayment
	require.NoError(t, conn.Where("provider_payment_id = ?", "refund_pi_cap").First(&refund).Error)
	assert.True(t, refund.Amount.Equal(dec("-80.00")))
	assert.True(t, loadInvoice(t, conn).BalanceDue.Equal(dec("80.00")))
}

func TestRecordRefundUnknownPaymentIsNoop(t *testing.T) {
	rec, conn := newTestRecorder(t)
	outcome, err := rec.RecordRefund(context.Background(), "pi_foreign", 500)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	var count int64
	require.NoError(t, conn.Model(&models.PortalPayment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyRefundStatusTransitions(t *testing.T) {
	inv := &models.PortalInvoice{TotalAmount: dec("50"), BalanceDue: dec("0"), Status: enums.InvoiceStatusPaid}
	applyRefund(inv, dec("10"))
	assert.Equal(t, enums.InvoiceStatusPartial, inv.Status)
	applyRefund(inv, dec("100"))
	assert.Equal(t, enums.InvoiceStatusSent, inv.Status)
	assert.True(t, inv.BalanceDue.Equal(dec("50")))
}
