package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerdesk/portal-backend/api/responses"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

const maxInspectedBody = 64 << 10

// RateLimitStore keeps fixed-window counters.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(policy, scope, subject string) string
}

// RateLimitPolicy throttles one traffic surface per client IP and per
// submitted key.
type RateLimitPolicy struct {
	name     string
	window   time.Duration
	ipLimit  int
	keyLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, keyLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:     strings.ToLower(strings.TrimSpace(name)),
		window:   window,
		ipLimit:  ipLimit,
		keyLimit: keyLimit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.keyLimit > 0)
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "default"
	}
	return p.name
}

// RateLimit counts requests in fixed windows. Keys are hashed before they
// reach Redis. A store failure lets the request through.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if policy.ipLimit > 0 {
				if ip := ClientIP(r); ip != "" {
					key := store.RateLimitKey(policy.normalizedName(), "ip", ip)
					if !allow(ctx, store, logg, w, policy, key, "ip", policy.ipLimit) {
						return
					}
				}
			}

			if policy.keyLimit > 0 && r.Body != nil {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxInspectedBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if submitted := extractKey(body); submitted != "" {
					key := store.RateLimitKey(policy.normalizedName(), "key", hashValue(submitted))
					if !allow(ctx, store, logg, w, policy, key, "key", policy.keyLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store RateLimitStore, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, key, scope string, limit int) bool {
	count, err := store.IncrWithTTL(ctx, key, policy.window)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate limiter unavailable; request allowed")
		}
		return true
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", retryAfter(policy.window))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimited, "too many requests"))
	return false
}

// extractKey returns whichever identifier the body carries, case-folded so
// variants of one key share a counter.
func extractKey(payload []byte) string {
	var body struct {
		LicenseKey     string `json:"license_key"`
		PremiumKey     string `json:"premium_key"`
		SubscriptionID string `json:"subscription_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, candidate := range []string{body.SubscriptionID, body.PremiumKey, body.LicenseKey} {
		if v := strings.ToUpper(strings.TrimSpace(candidate)); v != "" {
			return v
		}
	}
	return ""
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
