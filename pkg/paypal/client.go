package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ledgerdesk/portal-backend/pkg/config"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	defaultTimeout = 10 * time.Second

	// VerificationSuccess is the only status PayPal returns for a genuine event.
	VerificationSuccess = "SUCCESS"
)

var (
	errCredentialsRequired = errors.New("paypal client id and secret are required")
	errInvalidPayPalEnv    = fmt.Errorf("paypal environment must be %q or %q", sandboxEnv, productionEnv)
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://api-m.sandbox.paypal.com",
	productionEnv: "https://api-m.paypal.com",
}

// TransmissionHeaders are the PAYPAL-* headers PayPal signs a delivery with.
type TransmissionHeaders struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
}

// Complete reports whether every header needed for verification is present.
func (h TransmissionHeaders) Complete() bool {
	return h.AuthAlgo != "" && h.CertURL != "" && h.TransmissionID != "" &&
		h.TransmissionSig != "" && h.TransmissionTime != ""
}

// HeadersFrom reads the transmission headers from an inbound request.
func HeadersFrom(h http.Header) TransmissionHeaders {
	return TransmissionHeaders{
		AuthAlgo:         h.Get("Paypal-Auth-Algo"),
		CertURL:          h.Get("Paypal-Cert-Url"),
		TransmissionID:   h.Get("Paypal-Transmission-Id"),
		TransmissionSig:  h.Get("Paypal-Transmission-Sig"),
		TransmissionTime: h.Get("Paypal-Transmission-Time"),
	}
}

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// Client calls PayPal's REST API with an OAuth client-credentials token.
type Client struct {
	baseURL     string
	environment string
	webhookID   string
	timeout     time.Duration
	oauth       clientcredentials.Config
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewClient builds the PayPal wrapper for the configured environment.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	env := strings.TrimSpace(strings.ToLower(cfg.Environment()))
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidPayPalEnv
	}
	return newClient(ctx, baseURL, env, cfg, logg)
}

func newClient(ctx context.Context, baseURL, env string, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID())
	secret := strings.TrimSpace(cfg.ClientSecret())
	if clientID == "" || secret == "" {
		return nil, errCredentialsRequired
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		environment: env,
		webhookID:   strings.TrimSpace(cfg.WebhookID()),
		timeout:     timeout,
		oauth: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			TokenURL:     strings.TrimRight(baseURL, "/") + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"paypal_env":            env,
			"webhook_id_configured": c.webhookID != "",
		}), "paypal client initialized")
	}
	return c, nil
}

// WebhookID returns the configured webhook id; empty means unconfigured.
func (c *Client) WebhookID() string {
	if c == nil {
		return ""
	}
	return c.webhookID
}

// Environment reports the normalized PayPal environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// VerifyWebhookSignature asks PayPal whether the delivery is genuine and
// returns the reported verification status.
func (c *Client) VerifyWebhookSignature(ctx context.Context, headers TransmissionHeaders, body []byte) (string, error) {
	if c.webhookID == "" {
		return "", pkgerrors.New(pkgerrors.CodeMisconfigured, "paypal webhook id not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(verifyRequest{
		AuthAlgo:         headers.AuthAlgo,
		CertURL:          headers.CertURL,
		TransmissionID:   headers.TransmissionID,
		TransmissionSig:  headers.TransmissionSig,
		TransmissionTime: headers.TransmissionTime,
		WebhookID:        c.webhookID,
		WebhookEvent:     json.RawMessage(body),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode paypal verification request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal verification request")
	}
	req.Header.Set("Content-Type", "application/json")

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	resp, err := c.oauth.Client(tokenCtx).Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paypal verification call failed")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paypal verification returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out verifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paypal verification response")
	}
	return out.VerificationStatus, nil
}
