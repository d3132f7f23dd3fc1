package squarewebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/ledgerdesk/portal-backend/internal/webhooks"
)

// SignatureHeader carries the base64 HMAC-SHA256 of notification URL + body.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

// Verifier checks Square's HMAC signature. The signed payload is the
// configured notification URL followed by the raw body.
type Verifier struct {
	signatureKey    string
	notificationURL string
}

func NewVerifier(signatureKey, notificationURL string) *Verifier {
	return &Verifier{
		signatureKey:    strings.TrimSpace(signatureKey),
		notificationURL: strings.TrimSpace(notificationURL),
	}
}

func (v *Verifier) Verify(_ context.Context, body []byte, headers http.Header) webhooks.Verification {
	if v.signatureKey == "" {
		return webhooks.NotConfigured("square signature key not set")
	}
	sig := strings.TrimSpace(headers.Get(SignatureHeader))
	if sig == "" {
		return webhooks.Reject("square signature missing")
	}
	expected := Sign(v.signatureKey, v.notificationURL, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return webhooks.Reject("square signature mismatch")
	}
	return webhooks.Accept()
}

// Sign returns the signature Square sends for body delivered to notificationURL.
func Sign(signatureKey, notificationURL string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
