package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ledgerdesk/portal-backend/api/responses"
	"github.com/ledgerdesk/portal-backend/api/validators"
	"github.com/ledgerdesk/portal-backend/internal/licenses"
	"github.com/ledgerdesk/portal-backend/internal/usage"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

// Receipt usage actions.
const (
	UsageActionCheck     = "check"
	UsageActionIncrement = "increment"
)

// TierResolver maps a raw key to its tier.
type TierResolver interface {
	TierFor(ctx context.Context, rawKey string) (enums.LicenseTier, error)
}

// QuotaTracker reads and consumes the monthly scan quota.
type QuotaTracker interface {
	Check(ctx context.Context, licenseKey string) (*usage.Status, error)
	Increment(ctx context.Context, licenseKey string) (*usage.Status, error)
}

type receiptUsageRequest struct {
	LicenseKey string `json:"license_key" validate:"required,max=64"`
	Action     string `json:"action" validate:"required,oneof=check increment"`
}

type receiptUsageResponse struct {
	Success         bool              `json:"success"`
	Message         string            `json:"message,omitempty"`
	Error           string            `json:"error,omitempty"`
	UpgradeRequired bool              `json:"upgrade_required,omitempty"`
	CanScan         bool              `json:"can_scan"`
	ScanCount       int               `json:"scan_count"`
	MonthlyLimit    int               `json:"monthly_limit"`
	Remaining       int               `json:"remaining"`
	Tier            enums.LicenseTier `json:"tier"`
	UsageMonth      string            `json:"usage_month,omitempty"`
	ResetsAt        *time.Time        `json:"resets_at,omitempty"`
}

// ReceiptUsage checks or consumes the monthly receipt scan quota of a
// premium key.
func ReceiptUsage(tiers TierResolver, tracker QuotaTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if tiers == nil || tracker == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		var req receiptUsageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		key, err := licenses.ParseLicenseKey(req.LicenseKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid license key"))
			return
		}
		if logg != nil {
			ctx = logg.WithLicenseKey(ctx, key.Value())
		}

		tier, err := tiers.TierFor(ctx, key.Value())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if tier != enums.LicenseTierPremium {
			responses.WriteJSON(w, http.StatusForbidden, receiptUsageResponse{
				Success:         false,
				Message:         "Receipt scanning requires a premium subscription",
				Error:           string(pkgerrors.CodeUpgradeRequired),
				UpgradeRequired: true,
				Tier:            tier,
			})
			return
		}

		var status *usage.Status
		switch req.Action {
		case UsageActionIncrement:
			status, err = tracker.Increment(ctx, key.Value())
		default:
			status, err = tracker.Check(ctx, key.Value())
		}
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeQuotaExceeded) && status != nil {
				body := newReceiptUsageResponse(status, tier)
				body.Success = false
				body.Message = "Monthly receipt scan limit reached"
				body.Error = string(pkgerrors.CodeQuotaExceeded)
				responses.WriteJSON(w, http.StatusTooManyRequests, body)
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, newReceiptUsageResponse(status, tier))
	}
}

// Preflight answers a bare OPTIONS request with an empty 200.
func Preflight() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func newReceiptUsageResponse(status *usage.Status, tier enums.LicenseTier) receiptUsageResponse {
	resetsAt := status.ResetsAt.UTC()
	return receiptUsageResponse{
		Success:      true,
		CanScan:      status.CanScan,
		ScanCount:    status.ScanCount,
		MonthlyLimit: status.MonthlyLimit,
		Remaining:    status.Remaining,
		Tier:         tier,
		UsageMonth:   status.UsageMonth.UTC().Format("2006-01-02"),
		ResetsAt:     &resetsAt,
	}
}
