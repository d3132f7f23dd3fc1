package stripewebhook

import (
	"context"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/ledgerdesk/portal-backend/internal/webhooks"
)

// SignatureHeader carries Stripe's timestamped v1 signature.
const SignatureHeader = "Stripe-Signature"

type signingClient interface {
	SigningSecret() string
}

// Verifier checks Stripe-Signature against the environment's signing secret.
type Verifier struct {
	client signingClient
}

func NewVerifier(client signingClient) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(_ context.Context, body []byte, headers http.Header) webhooks.Verification {
	if v.client == nil {
		return webhooks.NotConfigured("stripe client not configured")
	}
	secret := strings.TrimSpace(v.client.SigningSecret())
	if secret == "" {
		return webhooks.NotConfigured("stripe webhook secret not set")
	}
	sig := headers.Get(SignatureHeader)
	if sig == "" {
		return webhooks.Reject("stripe signature missing")
	}
	_, err := webhook.ConstructEventWithOptions(body, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return webhooks.Reject(err.Error())
	}
	return webhooks.Accept()
}
