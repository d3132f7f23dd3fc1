package webhooks

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ledgerdesk/portal-backend/internal/payments"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/metrics"
)

// Result is what happened to one delivery. Values double as metric labels.
type Result string

const (
	ResultProcessed    Result = metrics.OutcomeProcessed
	ResultIgnored      Result = metrics.OutcomeIgnored
	ResultDuplicate    Result = metrics.OutcomeDuplicate
	ResultRejected     Result = metrics.OutcomeRejected
	ResultUnconfigured Result = metrics.OutcomeUnconfigured
	ResultFailed       Result = metrics.OutcomeFailed
)

// UnconfiguredPolicy decides how an Unconfigured verdict is answered.
type UnconfiguredPolicy int

const (
	// FailUnconfigured answers with a misconfiguration error and does nothing.
	FailUnconfigured UnconfiguredPolicy = iota
	// AcknowledgeUnconfigured answers success and does nothing.
	AcknowledgeUnconfigured
	// SkipVerification dispatches the delivery unverified.
	SkipVerification
)

// Event is a provider delivery after authentication and decoding.
type Event struct {
	ID      string
	Type    string
	Payload any
}

// Handler decodes and dispatches one provider's events.
type Handler interface {
	Parse(body []byte) (Event, error)
	Handle(ctx context.Context, event Event) (payments.Outcome, error)
}

type guard interface {
	CheckAndMark(ctx context.Context, eventID string) (Delivery, error)
	Delete(ctx context.Context, eventID string) error
}

type ProcessorParams struct {
	Provider string
	Verifier Verifier
	Handler  Handler
	Guard    guard
	Policy   UnconfiguredPolicy
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

// Processor runs verify, guard, dispatch for one provider.
type Processor struct {
	provider string
	verifier Verifier
	handler  Handler
	guard    guard
	policy   UnconfiguredPolicy
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if strings.TrimSpace(params.Provider) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider name required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "verifier required")
	}
	if params.Handler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event handler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Processor{
		provider: params.Provider,
		verifier: params.Verifier,
		handler:  params.Handler,
		guard:    params.Guard,
		policy:   params.Policy,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (p *Processor) Provider() string {
	return p.provider
}

// Process authenticates body and dispatches it. A nil error means the
// delivery should be acknowledged; the returned error's code carries the
// response status otherwise.
func (p *Processor) Process(ctx context.Context, body []byte, headers http.Header) (Result, error) {
	ctx = p.logg.WithProvider(ctx, p.provider)
	result, err := p.process(ctx, body, headers)
	p.metrics.Observe(p.provider, string(result))
	return result, err
}

func (p *Processor) process(ctx context.Context, body []byte, headers http.Header) (Result, error) {
	verification := p.verifier.Verify(ctx, body, headers)
	switch verification.Verdict {
	case Authenticated:
	case Unconfigured:
		cause := errors.New(verification.Reason)
		switch p.policy {
		case SkipVerification:
			p.logg.Warn(p.logg.WithField(ctx, "reason", verification.Reason), "webhook verification skipped; no signing key configured")
		case AcknowledgeUnconfigured:
			p.logg.Error(ctx, "webhook verification not configured; delivery acknowledged without processing", cause)
			return ResultUnconfigured, nil
		default:
			p.logg.Error(ctx, "webhook verification not configured; delivery refused", cause)
			return ResultUnconfigured, pkgerrors.Wrap(pkgerrors.CodeMisconfigured, cause, "webhook not configured")
		}
	default:
		p.logg.Warn(p.logg.WithField(ctx, "reason", verification.Reason), "webhook authentication failed")
		return ResultRejected, pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook signature")
	}

	event, err := p.handler.Parse(body)
	if err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "webhook payload malformed")
		return ResultRejected, pkgerrors.Wrap(pkgerrors.CodeInvalidFormat, err, "invalid webhook payload")
	}
	ctx = p.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": event.Type})

	marked := false
	if p.guard != nil && event.ID != "" {
		delivery, err := p.guard.CheckAndMark(ctx, event.ID)
		switch {
		case err != nil:
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "idempotency guard unavailable; relying on payment idempotency")
		case delivery.Duplicate:
			dupCtx := ctx
			if !delivery.FirstSeen.IsZero() {
				dupCtx = p.logg.WithField(ctx, "first_seen", delivery.FirstSeen)
			}
			p.logg.Info(dupCtx, "duplicate webhook delivery acknowledged")
			return ResultDuplicate, nil
		default:
			marked = true
		}
	}

	outcome, err := p.handler.Handle(ctx, event)
	if err != nil {
		if marked {
			if delErr := p.guard.Delete(ctx, event.ID); delErr != nil {
				p.logg.Error(ctx, "failed to clear idempotency mark", delErr)
			}
		}
		p.logg.Error(ctx, "webhook dispatch failed", err)
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeInvalidFormat) {
			return ResultRejected, err
		}
		return ResultFailed, err
	}

	switch outcome {
	case payments.OutcomeIgnored:
		return ResultIgnored, nil
	case payments.OutcomeDuplicate:
		return ResultDuplicate, nil
	default:
		p.logg.Info(ctx, "webhook event processed")
		return ResultProcessed, nil
	}
}

// ParseInvoiceReference splits a "<company_id>:<invoice_id>" reference.
func ParseInvoiceReference(ref string) (companyID, invoiceID string, ok bool) {
	companyID, invoiceID, found := strings.Cut(strings.TrimSpace(ref), ":")
	companyID = strings.TrimSpace(companyID)
	invoiceID = strings.TrimSpace(invoiceID)
	if !found || companyID == "" || invoiceID == "" {
		return "", "", false
	}
	return companyID, invoiceID, true
}
