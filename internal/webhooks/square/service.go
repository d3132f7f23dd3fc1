package squarewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ledgerdesk/portal-backend/internal/payments"
	"github.com/ledgerdesk/portal-backend/internal/webhooks"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/square"
)

type recorder interface {
	RecordPayment(ctx context.Context, in payments.PaymentInput) (payments.Outcome, error)
	RecordRefund(ctx context.Context, providerPaymentID string, amountCents int64) (payments.Outcome, error)
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*square.Payment, error)
}

type ServiceParams struct {
	Recorder recorder
	// Payments is optional; without it events lacking an embedded payment
	// are ignored.
	Payments paymentFetcher
	Logger   *logger.Logger
}

// Service maps Square payment and refund events onto the payment recorder.
type Service struct {
	recorder recorder
	payments paymentFetcher
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Recorder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{recorder: params.Recorder, payments: params.Payments, logg: params.Logger}, nil
}

func (s *Service) Parse(body []byte) (webhooks.Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return webhooks.Event{}, err
	}
	event.Type = strings.TrimSpace(event.Type)
	if event.Type == "" {
		return webhooks.Event{}, errors.New("square event type required")
	}
	id := strings.TrimSpace(event.EventID)
	if id == "" {
		id = event.Data.ID
	}
	return webhooks.Event{ID: id, Type: event.Type, Payload: &event}, nil
}

func (s *Service) Handle(ctx context.Context, evt webhooks.Event) (payments.Outcome, error) {
	event, ok := evt.Payload.(*Event)
	if !ok || event == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "square event payload missing")
	}

	switch event.Type {
	case EventPaymentCreated, EventPaymentUpdated:
		payment, err := s.resolvePayment(ctx, event)
		if err != nil || payment == nil {
			return payments.OutcomeIgnored, err
		}
		return s.recordPayment(ctx, payment, event.CreatedAt)
	case EventRefundCreated, EventRefundUpdated:
		refund := event.Data.Object.Refund
		if refund == nil || refund.Status != StatusCompleted {
			return payments.OutcomeIgnored, nil
		}
		var amount int64
		if refund.AmountMoney != nil {
			amount = refund.AmountMoney.Amount
		}
		return s.recorder.RecordRefund(ctx, refund.PaymentID, amount)
	default:
		return payments.OutcomeIgnored, nil
	}
}

// resolvePayment prefers the embedded payment and falls back to the API when
// the event only carries an id.
func (s *Service) resolvePayment(ctx context.Context, event *Event) (*square.Payment, error) {
	if embedded := event.Data.Object.Payment; embedded != nil {
		return embedded.toClientPayment(), nil
	}
	if s.payments == nil || event.Data.ID == "" {
		s.logg.Warn(ctx, "square payment event without payment object; ignored")
		return nil, nil
	}
	payment, err := s.payments.GetPayment(ctx, event.Data.ID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "square payment not found; ignored")
			return nil, nil
		}
		return nil, err
	}
	return payment, nil
}

func (s *Service) recordPayment(ctx context.Context, payment *square.Payment, createdAt string) (payments.Outcome, error) {
	if payment.Status != StatusCompleted {
		return payments.OutcomeIgnored, nil
	}
	companyID, invoiceID, ok := webhooks.ParseInvoiceReference(payment.ReferenceID)
	if !ok {
		s.logg.Info(s.logg.WithField(ctx, "payment_id", payment.ID), "square payment carries no portal invoice reference; ignored")
		return payments.OutcomeIgnored, nil
	}
	paidAt, _ := time.Parse(time.RFC3339, createdAt)

	return s.recorder.RecordPayment(ctx, payments.PaymentInput{
		CompanyID:             companyID,
		InvoiceID:             invoiceID,
		AmountCents:           payment.AmountCents,
		Currency:              payment.Currency,
		Method:                enums.PaymentMethodSquare,
		ProviderPaymentID:     payment.ID,
		ProviderTransactionID: payment.OrderID,
		ReferenceNumber:       payment.ReceiptNumber,
		PaidAt:                paidAt,
	})
}
