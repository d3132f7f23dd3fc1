package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ledgerdesk/portal-backend/api/responses"
	"github.com/ledgerdesk/portal-backend/api/validators"
	"github.com/ledgerdesk/portal-backend/internal/pricing"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

type pricingResponse struct {
	Success                 bool            `json:"success"`
	StandardPrice           decimal.Decimal `json:"standard_price"`
	PremiumMonthlyPrice     decimal.Decimal `json:"premium_monthly_price"`
	PremiumYearlyPrice      decimal.Decimal `json:"premium_yearly_price"`
	PremiumStandardDiscount decimal.Decimal `json:"premium_standard_discount"`
	ProcessingFeePercent    decimal.Decimal `json:"processing_fee_percent"`
	ProcessingFeeFixed      decimal.Decimal `json:"processing_fee_fixed"`
	Quote                   *pricing.Quote  `json:"quote,omitempty"`
}

// Pricing returns the resolved price table. With ?item= it also quotes that
// item, applying the standard-holder discount when has_standard=true.
func Pricing(prices pricing.Prices, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		out := pricingResponse{
			Success:                 true,
			StandardPrice:           prices.Standard,
			PremiumMonthlyPrice:     prices.PremiumMonthly,
			PremiumYearlyPrice:      prices.PremiumYearly,
			PremiumStandardDiscount: prices.PremiumStandardDiscount,
			ProcessingFeePercent:    prices.FeePercent,
			ProcessingFeeFixed:      prices.FeeFixed,
		}

		if item := validators.QueryString(r, "item", 32); item != "" {
			hasStandard, err := validators.ParseQueryBool(r, "has_standard", false)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			quote, err := prices.Quote(pricing.Item(item), hasStandard)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			out.Quote = &quote
		}
		responses.WriteJSON(w, http.StatusOK, out)
	}
}
