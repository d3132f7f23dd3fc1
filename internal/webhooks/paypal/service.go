package paypalwebhook

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
	"github.com/ledgerdesk/portal-backend/pkg/money"
)

type recorder interface {
	RecordPayment(ctx context.Context, in payments.PaymentInput) (payments.Outcome, error)
	RecordRefund(ctx context.Context, providerPaymentID string, amountCents int64) (payments.Outcome, error)
}

type ServiceParams struct {
	Recorder recorder
	Logger   *logger.Logger
}

// Service maps PayPal capture events onto the payment recorder.
type Service struct {
	recorder recorder
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Recorder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{recorder: params.Recorder, logg: params.Logger}, nil
}

func (s *Service) Parse(body []byte) (webhooks.Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return webhooks.Event{}, err
	}
	if strings.TrimSpace(event.EventType) == "" {
		return webhooks.Event{}, errors.New("paypal event_type required")
	}
	return webhooks.Event{ID: event.ID, Type: event.EventType, Payload: &event}, nil
}

func (s *Service) Handle(ctx context.Context, evt webhooks.Event) (payments.Outcome, error) {
	event, ok := evt.Payload.(*Event)
	if !ok || event == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "paypal event payload missing")
	}

	switch event.EventType {
	case EventCaptureCompleted:
		return s.recordCapture(ctx, event)
	case EventCaptureRefunded:
		return s.recordRefund(ctx, event)
	default:
		return payments.OutcomeIgnored, nil
	}
}

func (s *Service) recordCapture(ctx context.Context, event *Event) (payments.Outcome, error) {
	capture := event.Resource
	if capture.Status != "" && capture.Status != statusCompleted {
		return payments.OutcomeIgnored, nil
	}
	companyID, invoiceID, ok := webhooks.ParseInvoiceReference(capture.CustomID)
	if !ok {
		s.logg.Info(s.logg.WithField(ctx, "capture_id", capture.ID), "paypal capture carries no portal invoice reference; ignored")
		return payments.OutcomeIgnored, nil
	}
	cents, err := amountCents(capture.Amount)
	if err != nil {
		return "", err
	}
	paidAt, _ := time.Parse(time.RFC3339, firstNonEmpty(capture.CreateTime, event.CreateTime))

	return s.recorder.RecordPayment(ctx, payments.PaymentInput{
		CompanyID:         companyID,
		InvoiceID:         invoiceID,
		AmountCents:       cents,
		Currency:          capture.Amount.CurrencyCode,
		Method:            enums.PaymentMethodPayPal,
		ProviderPaymentID: capture.ID,
		ReferenceNumber:   capture.InvoiceID,
		PaidAt:            paidAt,
	})
}

func (s *Service) recordRefund(ctx context.Context, event *Event) (payments.Outcome, error) {
	refund := event.Resource
	captureID := refund.CaptureID()
	if captureID == "" {
		s.logg.Warn(s.logg.WithField(ctx, "refund_id", refund.ID), "paypal refund without capture link; ignored")
		return payments.OutcomeIgnored, nil
	}
	cents, err := amountCents(refund.Amount)
	if err != nil {
		return "", err
	}
	return s.recorder.RecordRefund(ctx, captureID, cents)
}

func amountCents(amount Amount) (int64, error) {
	if strings.TrimSpace(amount.Value) == "" {
		return 0, nil
	}
	value, err := money.Parse(amount.Value)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInvalidFormat, err, "invalid paypal amount")
	}
	return money.ToCents(value), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
