package licenses

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
)

const (
	StandardPrefix = "STND-"
	PromoPrefix    = "PREM-"

	keyAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyGroups      = 4
	keyGroupLength = 4
)

// KeyKind is what a caller-supplied identifier resolves against. Exactly one
// of Standard, PromoKey or SubscriptionID.
type KeyKind interface {
	Value() string
	kind() string
}

// Standard is a one-time-purchase license key.
type Standard string

// PromoKey is an operator-issued premium key.
type PromoKey string

// SubscriptionID identifies a premium subscription.
type SubscriptionID string

func (k Standard) Value() string       { return string(k) }
func (k PromoKey) Value() string       { return string(k) }
func (k SubscriptionID) Value() string { return string(k) }

func (Standard) kind() string       { return "standard" }
func (PromoKey) kind() string       { return "promo_key" }
func (SubscriptionID) kind() string { return "subscription" }

// KindName names k for responses and logs.
func KindName(k KeyKind) string {
	if k == nil {
		return ""
	}
	return k.kind()
}

// KeyInput carries the three mutually exclusive request fields.
type KeyInput struct {
	SubscriptionID string
	PremiumKey     string
	LicenseKey     string
}

// Parse turns the request fields into a KeyKind. An explicit subscription id
// wins, then an explicit premium key, then a license key dispatched by prefix.
func Parse(in KeyInput) (KeyKind, error) {
	if id := strings.TrimSpace(in.SubscriptionID); id != "" {
		return SubscriptionID(id), nil
	}
	if key := normalizeKey(in.PremiumKey); key != "" {
		return PromoKey(key), nil
	}
	if key := strings.TrimSpace(in.LicenseKey); key != "" {
		return ParseLicenseKey(key)
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "license_key, premium_key or subscription_id is required")
}

// ParseLicenseKey dispatches an undifferentiated key by its prefix.
func ParseLicenseKey(raw string) (KeyKind, error) {
	key := normalizeKey(raw)
	switch {
	case strings.HasPrefix(key, PromoPrefix):
		return PromoKey(key), nil
	case strings.HasPrefix(key, StandardPrefix):
		return Standard(key), nil
	case key == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidFormat, "invalid license key format")
	}
}

func normalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// GenerateKey returns prefix followed by four dash-separated groups of random
// uppercase alphanumerics, e.g. STND-7K2Q-M9XA-0PLD-R4TZ.
func GenerateKey(prefix string) (string, error) {
	if prefix != StandardPrefix && prefix != PromoPrefix {
		return "", fmt.Errorf("unsupported key prefix %q", prefix)
	}
	limit := big.NewInt(int64(len(keyAlphabet)))
	groups := make([]string, keyGroups)
	for g := range groups {
		var sb strings.Builder
		for i := 0; i < keyGroupLength; i++ {
			n, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return "", fmt.Errorf("generate key: %w", err)
			}
			sb.WriteByte(keyAlphabet[n.Int64()])
		}
		groups[g] = sb.String()
	}
	return prefix + strings.Join(groups, "-"), nil
}
