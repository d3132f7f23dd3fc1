package paypalwebhook

import (
	"context"
	"net/http"
	"strings"

	"github.com/ledgerdesk/portal-backend/internal/webhooks"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/paypal"
)

type verifyClient interface {
	WebhookID() string
	VerifyWebhookSignature(ctx context.Context, headers paypal.TransmissionHeaders, body []byte) (string, error)
}

// Verifier asks PayPal to confirm each delivery. Only SUCCESS is trusted;
// token or transport failures reject.
type Verifier struct {
	client verifyClient
}

func NewVerifier(client verifyClient) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, body []byte, headers http.Header) webhooks.Verification {
	if v.client == nil || strings.TrimSpace(v.client.WebhookID()) == "" {
		return webhooks.NotConfigured("paypal webhook id not set")
	}
	transmission := paypal.HeadersFrom(headers)
	if !transmission.Complete() {
		return webhooks.Reject("paypal transmission headers missing")
	}
	status, err := v.client.VerifyWebhookSignature(ctx, transmission, body)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeMisconfigured) {
			return webhooks.NotConfigured(err.Error())
		}
		return webhooks.Reject("paypal verification failed: " + err.Error())
	}
	if status != paypal.VerificationSuccess {
		return webhooks.Reject("paypal verification status " + status)
	}
	return webhooks.Accept()
}
