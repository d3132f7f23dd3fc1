package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ledgerdesk/portal-backend/api/middleware"
	"github.com/ledgerdesk/portal-backend/api/responses"
	"github.com/ledgerdesk/portal-backend/api/validators"
	"github.com/ledgerdesk/portal-backend/internal/licenses"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

// LicenseValidator resolves a parsed key.
type LicenseValidator interface {
	Validate(ctx context.Context, key licenses.KeyKind, meta licenses.ActivationMeta) (*licenses.Result, error)
}

type licenseValidateRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"max=255"`
	PremiumKey     string `json:"premium_key" validate:"max=64"`
	LicenseKey     string `json:"license_key" validate:"max=64"`
}

type licenseView struct {
	LicenseKey      string     `json:"license_key"`
	Email           string     `json:"email"`
	Activated       bool       `json:"activated"`
	ActivationDate  *time.Time `json:"activation_date,omitempty"`
	FirstActivation bool       `json:"first_activation"`
}

type subscriptionView struct {
	SubscriptionID string    `json:"subscription_id"`
	BillingCycle   string    `json:"billing_cycle"`
	Status         string    `json:"status"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	DaysRemaining  int       `json:"days_remaining"`
}

type premiumKeyView struct {
	SubscriptionKey string     `json:"subscription_key"`
	DurationMonths  int        `json:"duration_months"`
	Email           *string    `json:"email,omitempty"`
	RedeemedAt      *time.Time `json:"redeemed_at,omitempty"`
	SubscriptionID  *string    `json:"subscription_id,omitempty"`
}

type licenseValidateResponse struct {
	Success      bool              `json:"success"`
	Valid        bool              `json:"valid"`
	Type         string            `json:"type"`
	Status       string            `json:"status"`
	Tier         enums.LicenseTier `json:"tier"`
	Message      string            `json:"message"`
	License      *licenseView      `json:"license,omitempty"`
	Subscription *subscriptionView `json:"subscription,omitempty"`
	PremiumKey   *premiumKeyView   `json:"premium_key,omitempty"`
}

// LicenseValidate resolves a standard key, promo key or subscription id.
func LicenseValidate(svc LicenseValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodPost {
			responses.WriteJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"message": "Invalid request method",
			})
			return
		}
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var req licenseValidateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		key, err := licenses.Parse(licenses.KeyInput{
			SubscriptionID: req.SubscriptionID,
			PremiumKey:     req.PremiumKey,
			LicenseKey:     req.LicenseKey,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Validate(ctx, key, licenses.ActivationMeta{IPAddress: middleware.ClientIP(r)})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, newLicenseValidateResponse(result))
	}
}

func newLicenseValidateResponse(res *licenses.Result) licenseValidateResponse {
	out := licenseValidateResponse{
		Success: true,
		Valid:   res.Valid,
		Type:    res.Kind,
		Status:  res.Status,
		Tier:    res.Tier,
	}

	switch {
	case res.License != nil:
		out.License = &licenseView{
			LicenseKey:      res.License.Key,
			Email:           res.License.Email,
			Activated:       res.License.Activated,
			ActivationDate:  res.License.ActivationDate,
			FirstActivation: res.FirstActivation,
		}
		out.Message = "License is valid"
		if res.FirstActivation {
			out.Message = "License activated"
		}
	case res.Subscription != nil:
		sub := res.Subscription
		out.Subscription = &subscriptionView{
			SubscriptionID: sub.SubscriptionID,
			BillingCycle:   string(sub.BillingCycle),
			Status:         string(sub.Status),
			StartDate:      sub.StartDate.UTC(),
			EndDate:        sub.EndDate.UTC(),
			DaysRemaining:  res.DaysRemaining,
		}
		switch res.Status {
		case licenses.StatusActive:
			out.Message = "Subscription is active"
		case licenses.StatusCancelled:
			out.Message = "Subscription is cancelled but active until " + sub.EndDate.UTC().Format("2006-01-02")
		default:
			out.Message = "Subscription has expired"
		}
	case res.Promo != nil:
		promo := res.Promo
		out.PremiumKey = &premiumKeyView{
			SubscriptionKey: promo.SubscriptionKey,
			DurationMonths:  promo.DurationMonths,
			Email:           promo.Email,
			RedeemedAt:      promo.RedeemedAt,
			SubscriptionID:  promo.SubscriptionID,
		}
		out.Message = "Premium key is valid"
		if res.Status == licenses.StatusRedeemed {
			out.Message = "Premium key has already been redeemed"
		}
	}
	return out
}
