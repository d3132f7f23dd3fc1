package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/portal-backend/internal/licenses"
	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
)

type stubLicenseValidator struct {
	result *licenses.Result
	err    error
	gotKey licenses.KeyKind
	gotIP  string
}

func (s *stubLicenseValidator) Validate(_ context.Context, key licenses.KeyKind, meta licenses.ActivationMeta) (*licenses.Result, error) {
	s.gotKey = key
	s.gotIP = meta.IPAddress
	return s.result, s.err
}

func TestLicenseValidateRejectsNonPost(t *testing.T) {
	handler := LicenseValidate(&stubLicenseValidator{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/license/validate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid request method"}`, rec.Body.String())
}

func TestLicenseValidateFirstActivation(t *testing.T) {
	activated := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	stub := &stubLicenseValidator{result: &licenses.Result{
		Kind:   "standard",
		Valid:  true,
		Status: licenses.StatusValid,
		Tier:   enums.LicenseTierStandard,
		License: &models.LicenseKey{
			Key:            "STND-AAAA-BBBB-CCCC-DDDD",
			Email:          "owner@example.com",
			Activated:      true,
			ActivationDate: &activated,
		},
		FirstActivation: true,
	}}

	req := httptest.NewRequest(http.MethodPost, "/license/validate", stringsReader(`{"license_key":" stnd-aaaa-bbbb-cccc-dddd "}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	LicenseValidate(stub, discardLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, licenses.Standard("STND-AAAA-BBBB-CCCC-DDDD"), stub.gotKey)
	assert.Equal(t, "203.0.113.9", stub.gotIP)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "License activated", body["message"])
	license := body["license"].(map[string]any)
	assert.Equal(t, true, license["first_activation"])
	assert.Equal(t, "owner@example.com", license["email"])
}

func TestLicenseValidateCancelledSubscription(t *testing.T) {
	end := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubLicenseValidator{result: &licenses.Result{
		Kind:          "subscription",
		Valid:         true,
		Status:        licenses.StatusCancelled,
		Tier:          enums.LicenseTierPremium,
		DaysRemaining: 16,
		Subscription: &models.PremiumSubscription{
			SubscriptionID: "sub_123",
			BillingCycle:   enums.BillingCycleMonthly,
			Status:         enums.SubscriptionStatusCancelled,
			StartDate:      end.AddDate(0, -1, 0),
			EndDate:        end,
		},
	}}

	rec := postJSON(t, LicenseValidate(stub, discardLogger()), "/license/validate", `{"subscription_id":"sub_123"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, licenses.SubscriptionID("sub_123"), stub.gotKey)
	body := decodeBody(t, rec)
	assert.Equal(t, "Subscription is cancelled but active until 2026-11-01", body["message"])
	assert.Equal(t, "premium", body["tier"])
	sub := body["subscription"].(map[string]any)
	assert.EqualValues(t, 16, sub["days_remaining"])
}

func TestLicenseValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "missing identifiers", body: `{}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "bad prefix", body: `{"license_key":"ABCD-1234"}`, status: http.StatusBadRequest, code: "INVALID_FORMAT"},
		{name: "malformed json", body: `{"license_key":`, status: http.StatusBadRequest},
		{name: "unknown key", body: `{"license_key":"STND-0000-0000-0000-0000"}`, err: pkgerrors.New(pkgerrors.CodeNotFound, "license key not found"), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "storage failure", body: `{"premium_key":"PREM-0000-0000-0000-0000"}`, err: pkgerrors.New(pkgerrors.CodeStorage, "lookup failed"), status: http.StatusInternalServerError, code: "STORAGE_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, LicenseValidate(&stubLicenseValidator{err: tc.err}, discardLogger()), "/license/validate", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			if tc.code != "" {
				assert.Equal(t, tc.code, body["error"])
			}
		})
	}
}
