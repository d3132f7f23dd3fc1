package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/ledgerdesk/portal-backend/internal/payments"
	"github.com/ledgerdesk/portal-backend/internal/webhooks"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

// Metadata keys set on portal payment intents.
const (
	MetadataCompanyID     = "company_id"
	MetadataInvoiceID     = "invoice_id"
	MetadataInvoiceNumber = "invoice_number"
	MetadataCustomerName  = "customer_name"
)

type recorder interface {
	RecordPayment(ctx context.Context, in payments.PaymentInput) (payments.Outcome, error)
	RecordRefund(ctx context.Context, providerPaymentID string, amountCents int64) (payments.Outcome, error)
}

type ServiceParams struct {
	Recorder recorder
	Logger   *logger.Logger
}

// Service maps Stripe events onto the payment recorder.
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
	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return webhooks.Event{}, err
	}
	if event.ID == "" || event.Type == "" {
		return webhooks.Event{}, errors.New("stripe event id and type required")
	}
	return webhooks.Event{ID: event.ID, Type: string(event.Type), Payload: &event}, nil
}

// Handle records succeeded payment intents and charge refunds. Other event
// types are acknowledged untouched.
func (s *Service) Handle(ctx context.Context, evt webhooks.Event) (payments.Outcome, error) {
	event, ok := evt.Payload.(*stripe.Event)
	if !ok || event == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "stripe event payload missing")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := decodeObject(event, &intent); err != nil {
			return "", err
		}
		return s.recordIntent(ctx, &intent)
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := decodeObject(event, &charge); err != nil {
			return "", err
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			s.logg.Info(ctx, "refunded charge has no payment intent; ignored")
			return payments.OutcomeIgnored, nil
		}
		return s.recorder.RecordRefund(ctx, charge.PaymentIntent.ID, charge.AmountRefunded)
	default:
		return payments.OutcomeIgnored, nil
	}
}

func (s *Service) recordIntent(ctx context.Context, intent *stripe.PaymentIntent) (payments.Outcome, error) {
	companyID := strings.TrimSpace(intent.Metadata[MetadataCompanyID])
	invoiceID := strings.TrimSpace(intent.Metadata[MetadataInvoiceID])
	if companyID == "" || invoiceID == "" {
		s.logg.Info(s.logg.WithField(ctx, "payment_intent", intent.ID), "payment intent carries no portal invoice; ignored")
		return payments.OutcomeIgnored, nil
	}

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}
	var chargeID string
	if intent.LatestCharge != nil {
		chargeID = intent.LatestCharge.ID
	}
	var paidAt time.Time
	if intent.Created > 0 {
		paidAt = time.Unix(intent.Created, 0)
	}

	return s.recorder.RecordPayment(ctx, payments.PaymentInput{
		CompanyID:             companyID,
		InvoiceID:             invoiceID,
		CustomerName:          intent.Metadata[MetadataCustomerName],
		AmountCents:           amount,
		Currency:              string(intent.Currency),
		Method:                enums.PaymentMethodStripe,
		ProviderPaymentID:     intent.ID,
		ProviderTransactionID: chargeID,
		ReferenceNumber:       intent.Metadata[MetadataInvoiceNumber],
		PaidAt:                paidAt,
	})
}

func decodeObject(event *stripe.Event, out any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidFormat, "stripe event data required")
	}
	if err := json.Unmarshal(event.Data.Raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidFormat, err, "decode stripe event object")
	}
	return nil
}
