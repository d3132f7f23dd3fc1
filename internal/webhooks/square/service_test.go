package squarewebhook

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/portal-backend/internal/payments"
	"github.com/ledgerdesk/portal-backend/internal/webhooks"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/square"
)

const (
	testKey = "sq-signature-key"
	testURL = "https://portal.example.com/portal/webhooks/square"
)

type stubRecorder struct {
	payments []payments.PaymentInput
	refunds  map[string]int64
}

func (s *stubRecorder) RecordPayment(_ context.Context, in payments.PaymentInput) (payments.Outcome, error) {
	s.payments = append(s.payments, in)
	return payments.OutcomeRecorded, nil
}

func (s *stubRecorder) RecordRefund(_ context.Context, id string, cents int64) (payments.Outcome, error) {
	if s.refunds == nil {
		s.refunds = map[string]int64{}
	}
	s.refunds[id] = cents
	return payments.OutcomeRecorded, nil
}

type stubFetcher struct {
	payment *square.Payment
	err     error
	calls   int
}

func (s *stubFetcher) GetPayment(_ context.Context, _ string) (*square.Payment, error) {
	s.calls++
	return s.payment, s.err
}

func newTestService(t *testing.T, rec *stubRecorder, fetcher paymentFetcher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Recorder: rec,
		Payments: fetcher,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func handle(t *testing.T, svc *Service, body string) payments.Outcome {
	t.Helper()
	evt, err := svc.Parse([]byte(body))
	require.NoError(t, err)
	outcome, err := svc.Handle(context.Background(), evt)
	require.NoError(t, err)
	return outcome
}

const completedPayment = `{
	"merchant_id": "M1",
	"event_id": "evt-1",
	"type": "payment.updated",
	"created_at": "2026-10-16T08:00:00Z",
	"data": {"type": "payment", "id": "sq_pay_1", "object": {"payment": {
		"id": "sq_pay_1",
		"status": "COMPLETED",
		"amount_money": {"amount": 4500, "currency": "USD"},
		"reference_id": "c1:inv-9",
		"receipt_number": "R123",
		"order_id": "ord_1"
	}}}
}`

func TestVerifierAcceptsSignedPayload(t *testing.T) {
	headers := http.Header{}
	headers.Set(SignatureHeader, Sign(testKey, testURL, []byte(completedPayment)))

	got := NewVerifier(testKey, testURL).Verify(context.Background(), []byte(completedPayment), headers)
	assert.Equal(t, webhooks.Authenticated, got.Verdict)
}

func TestVerifierRejectsTamperedPayload(t *testing.T) {
	headers := http.Header{}
	headers.Set(SignatureHeader, Sign(testKey, testURL, []byte(completedPayment)))

	tampered := []byte(completedPayment + " ")
	got := NewVerifier(testKey, testURL).Verify(context.Background(), tampered, headers)
	assert.Equal(t, webhooks.Rejected, got.Verdict)

	headers.Set(SignatureHeader, Sign(testKey, "https://other.example.com/hook", []byte(completedPayment)))
	got = NewVerifier(testKey, testURL).Verify(context.Background(), []byte(completedPayment), headers)
	assert.Equal(t, webhooks.Rejected, got.Verdict)
}

func TestVerifierWithoutKeyIsUnconfigured(t *testing.T) {
	got := NewVerifier("", testURL).Verify(context.Background(), []byte(completedPayment), http.Header{})
	assert.Equal(t, webhooks.Unconfigured, got.Verdict)

	got = NewVerifier(testKey, testURL).Verify(context.Background(), []byte(completedPayment), http.Header{})
	assert.Equal(t, webhooks.Rejected, got.Verdict)
}

func TestHandleCompletedPayment(t *testing.T) {
	rec := &stubRecorder{}
	svc := newTestService(t, rec, nil)

	assert.Equal(t, payments.OutcomeRecorded, handle(t, svc, completedPayment))
	require.Len(t, rec.payments, 1)
	got := rec.payments[0]
	assert.Equal(t, "sq_pay_1", got.ProviderPaymentID)
	assert.Equal(t, "ord_1", got.ProviderTransactionID)
	assert.Equal(t, "R123", got.ReferenceNumber)
	assert.Equal(t, "c1", got.CompanyID)
	assert.Equal(t, "inv-9", got.InvoiceID)
	assert.Equal(t, int64(4500), got.AmountCents)
	assert.Equal(t, enums.PaymentMethodSquare, got.Method)
	assert.False(t, got.PaidAt.IsZero())
}

func TestHandlePendingPaymentIgnored(t *testing.T) {
	rec := &stubRecorder{}
	svc := newTestService(t, rec, nil)

	body := `{"event_id":"evt-2","type":"payment.created","data":{"id":"sq_pay_2","object":{"payment":{"id":"sq_pay_2","status":"APPROVED","reference_id":"c1:inv-9"}}}}`
	assert.Equal(t, payments.OutcomeIgnored, handle(t, svc, body))
	assert.Empty(t, rec.payments)
}

func TestHandlePaymentFetchesWhenObjectMissing(t *testing.T) {
	rec := &stubRecorder{}
	fetcher := &stubFetcher{payment: &square.Payment{
		ID:          "sq_pay_3",
		Status:      StatusCompleted,
		AmountCents: 1000,
		Currency:    "USD",
		ReferenceID: "c2:inv-1",
	}}
	svc := newTestService(t, rec, fetcher)

	body := `{"event_id":"evt-3","type":"payment.updated","data":{"type":"payment","id":"sq_pay_3","object":{}}}`
	assert.Equal(t, payments.OutcomeRecorded, handle(t, svc, body))
	assert.Equal(t, 1, fetcher.calls)
	require.Len(t, rec.payments, 1)
	assert.Equal(t, "c2", rec.payments[0].CompanyID)
}

func TestHandlePaymentFetchNotFoundIgnored(t *testing.T) {
	rec := &stubRecorder{}
	fetcher := &stubFetcher{err: pkgerrors.New(pkgerrors.CodeNotFound, "missing")}
	svc := newTestService(t, rec, fetcher)

	body := `{"event_id":"evt-4","type":"payment.updated","data":{"id":"sq_pay_4","object":{}}}`
	assert.Equal(t, payments.OutcomeIgnored, handle(t, svc, body))
	assert.Empty(t, rec.payments)
}

func TestHandlePaymentFetchFailurePropagates(t *testing.T) {
	fetcher := &stubFetcher{err: pkgerrors.New(pkgerrors.CodeDependency, "square down")}
	svc := newTestService(t, &stubRecorder{}, fetcher)

	evt, err := svc.Parse([]byte(`{"event_id":"evt-5","type":"payment.updated","data":{"id":"sq_pay_5","object":{}}}`))
	require.NoError(t, err)
	_, err = svc.Handle(context.Background(), evt)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestHandleCompletedRefund(t *testing.T) {
	rec := &stubRecorder{}
	svc := newTestService(t, rec, nil)

	body := `{"event_id":"evt-6","type":"refund.updated","data":{"id":"rf_1","object":{"refund":{"id":"rf_1","status":"COMPLETED","payment_id":"sq_pay_1","amount_money":{"amount":4500,"currency":"USD"}}}}}`
	assert.Equal(t, payments.OutcomeRecorded, handle(t, svc, body))
	assert.Equal(t, map[string]int64{"sq_pay_1": 4500}, rec.refunds)

	pending := `{"event_id":"evt-7","type":"refund.created","data":{"id":"rf_2","object":{"refund":{"id":"rf_2","status":"PENDING","payment_id":"sq_pay_1"}}}}`
	assert.Equal(t, payments.OutcomeIgnored, handle(t, svc, pending))
}

func TestParseFallsBackToDataID(t *testing.T) {
	svc := newTestService(t, &stubRecorder{}, nil)

	evt, err := svc.Parse([]byte(`{"type":"payment.updated","data":{"id":"sq_pay_9"}}`))
	require.NoError(t, err)
	assert.Equal(t, "sq_pay_9", evt.ID)

	_, err = svc.Parse([]byte(`{"event_id":"x"}`))
	assert.Error(t, err)
}
