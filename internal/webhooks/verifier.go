package webhooks

import (
	"context"
	"net/http"
)

// Verdict is the result of authenticating an inbound delivery.
type Verdict int

const (
	Authenticated Verdict = iota
	Rejected
	Unconfigured
)

func (v Verdict) String() string {
	switch v {
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	case Unconfigured:
		return "unconfigured"
	default:
		return "unknown"
	}
}

// Verification carries the verdict plus a short reason for logs.
type Verification struct {
	Verdict Verdict
	Reason  string
}

func Accept() Verification {
	return Verification{Verdict: Authenticated}
}

func Reject(reason string) Verification {
	return Verification{Verdict: Rejected, Reason: reason}
}

func NotConfigured(reason string) Verification {
	return Verification{Verdict: Unconfigured, Reason: reason}
}

// Verifier authenticates a raw provider delivery before anything reads it.
type Verifier interface {
	Verify(ctx context.Context, body []byte, headers http.Header) Verification
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, body []byte, headers http.Header) Verification

func (f VerifierFunc) Verify(ctx context.Context, body []byte, headers http.Header) Verification {
	return f(ctx, body, headers)
}
