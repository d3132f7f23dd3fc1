package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/portal-backend/internal/pricing"
)

func getPricing(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/pricing"+query, nil)
	rec := httptest.NewRecorder()
	Pricing(pricing.Defaults(), discardLogger()).ServeHTTP(rec, req)
	return rec
}

func TestPricingTable(t *testing.T) {
	rec := getPricing(t, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2.9", body["processing_fee_percent"])
	assert.Equal(t, "0.3", body["processing_fee_fixed"])
	assert.NotContains(t, body, "quote")
}

func TestPricingQuoteWithStandardDiscount(t *testing.T) {
	prices := pricing.Defaults()
	want, err := prices.Quote(pricing.ItemPremiumYearly, true)
	require.NoError(t, err)

	rec := getPricing(t, "?item=premium_yearly&has_standard=true")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decodeBody(t, rec)["quote"].(map[string]any)
	assert.Equal(t, "premium_yearly", quote["item"])
	assert.Equal(t, want.Discount.String(), quote["discount"])
	assert.Equal(t, want.Total.String(), quote["total"])
}

func TestPricingQuoteErrors(t *testing.T) {
	rec := getPricing(t, "?item=lifetime")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["error"])

	rec = getPricing(t, "?item=standard&has_standard=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
