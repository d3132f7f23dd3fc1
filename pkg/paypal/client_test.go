package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/portal-backend/pkg/config"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
)

func testConfig() config.PayPalConfig {
	return config.PayPalConfig{
		Env:                 "sandbox",
		SandboxClientID:     "client",
		SandboxClientSecret: "secret",
		SandboxWebhookID:    "WH-123",
		RequestTimeout:      2 * time.Second,
	}
}

func fakePayPal(t *testing.T, status string, verifyCode int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "WH-123", body["webhook_id"])
		assert.Equal(t, "tid", body["transmission_id"])
		assert.NotNil(t, body["webhook_event"])
		w.WriteHeader(verifyCode)
		_, _ = w.Write([]byte(`{"verification_status":"` + status + `"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var headers = TransmissionHeaders{
	AuthAlgo:         "SHA256withRSA",
	CertURL:          "https://api.paypal.com/cert",
	TransmissionID:   "tid",
	TransmissionSig:  "sig",
	TransmissionTime: "2026-10-01T00:00:00Z",
}

func TestVerifyWebhookSignatureSuccess(t *testing.T) {
	srv := fakePayPal(t, VerificationSuccess, http.StatusOK)
	client, err := newClient(context.Background(), srv.URL, sandboxEnv, testConfig(), nil)
	require.NoError(t, err)

	status, err := client.VerifyWebhookSignature(context.Background(), headers, []byte(`{"id":"WH-EVT"}`))
	require.NoError(t, err)
	assert.Equal(t, VerificationSuccess, status)
}

func TestVerifyWebhookSignatureFailureStatus(t *testing.T) {
	srv := fakePayPal(t, "FAILURE", http.StatusOK)
	client, err := newClient(context.Background(), srv.URL, sandboxEnv, testConfig(), nil)
	require.NoError(t, err)

	status, err := client.VerifyWebhookSignature(context.Background(), headers, []byte(`{"id":"WH-EVT"}`))
	require.NoError(t, err)
	assert.Equal(t, "FAILURE", status)
}

func TestVerifyWebhookSignatureUpstreamError(t *testing.T) {
	srv := fakePayPal(t, "", http.StatusInternalServerError)
	client, err := newClient(context.Background(), srv.URL, sandboxEnv, testConfig(), nil)
	require.NoError(t, err)

	_, err = client.VerifyWebhookSignature(context.Background(), headers, []byte(`{}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestVerifyWebhookSignatureBadCredentials(t *testing.T) {
	srv := fakePayPal(t, VerificationSuccess, http.StatusOK)
	cfg := testConfig()
	cfg.SandboxClientSecret = "wrong"
	client, err := newClient(context.Background(), srv.URL, sandboxEnv, cfg, nil)
	require.NoError(t, err)

	_, err = client.VerifyWebhookSignature(context.Background(), headers, []byte(`{}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestVerifyWithoutWebhookID(t *testing.T) {
	cfg := testConfig()
	cfg.SandboxWebhookID = ""
	client, err := newClient(context.Background(), "http://unused", sandboxEnv, cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, client.WebhookID())

	_, err = client.VerifyWebhookSignature(context.Background(), headers, []byte(`{}`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMisconfigured))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(context.Background(), config.PayPalConfig{Env: "sandbox"}, nil)
	require.ErrorIs(t, err, errCredentialsRequired)

	_, err = NewClient(context.Background(), config.PayPalConfig{Env: "live"}, nil)
	require.ErrorIs(t, err, errInvalidPayPalEnv)
}

func TestHeadersFrom(t *testing.T) {
	h := http.Header{}
	h.Set("PAYPAL-AUTH-ALGO", "SHA256withRSA")
	h.Set("PAYPAL-CERT-URL", "https://cert")
	h.Set("PAYPAL-TRANSMISSION-ID", "tid")
	h.Set("PAYPAL-TRANSMISSION-SIG", "sig")
	got := HeadersFrom(h)
	assert.Equal(t, "tid", got.TransmissionID)
	assert.False(t, got.Complete())

	h.Set("PAYPAL-TRANSMISSION-TIME", "now")
	assert.True(t, HeadersFrom(h).Complete())
}
