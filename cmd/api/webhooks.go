package main

import (
	"context"
	"strings"

	"github.com/ledgerdesk/portal-backend/internal/payments"
	"github.com/ledgerdesk/portal-backend/internal/webhooks"
	paypalwebhook "github.com/ledgerdesk/portal-backend/internal/webhooks/paypal"
	squarewebhook "github.com/ledgerdesk/portal-backend/internal/webhooks/square"
	stripewebhook "github.com/ledgerdesk/portal-backend/internal/webhooks/stripe"
	"github.com/ledgerdesk/portal-backend/pkg/config"
	"github.com/ledgerdesk/portal-backend/pkg/db"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/metrics"
	"github.com/ledgerdesk/portal-backend/pkg/paypal"
	"github.com/ledgerdesk/portal-backend/pkg/redis"
	"github.com/ledgerdesk/portal-backend/pkg/square"
	"github.com/ledgerdesk/portal-backend/pkg/stripe"
)

const squareWebhookPath = "/portal/webhooks/square"

// buildWebhookProcessors wires one processor per provider. A provider whose
// client cannot be built still gets a processor; its verifier reports
// Unconfigured and the provider's policy decides the response.
func buildWebhookProcessors(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, hooks *metrics.WebhookMetrics) ([]*webhooks.Processor, error) {
	recorder, err := payments.NewRecorder(payments.RecorderParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	guard := func(scope string) (*webhooks.IdempotencyGuard, error) {
		return webhooks.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, scope)
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "stripe client unavailable; stripe webhooks will be refused", err)
	}
	stripeService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Recorder: recorder, Logger: logg})
	if err != nil {
		return nil, err
	}
	stripeGuard, err := guard("stripe")
	if err != nil {
		return nil, err
	}
	stripeProc, err := webhooks.NewProcessor(webhooks.ProcessorParams{
		Provider: "stripe",
		Verifier: stripewebhook.NewVerifier(stripeClient),
		Handler:  stripeService,
		Guard:    stripeGuard,
		Policy:   webhooks.FailUnconfigured,
		Metrics:  hooks,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	paypalClient, err := paypal.NewClient(ctx, cfg.PayPal, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "paypal client unavailable; paypal webhooks will be acknowledged without processing")
	}
	paypalService, err := paypalwebhook.NewService(paypalwebhook.ServiceParams{Recorder: recorder, Logger: logg})
	if err != nil {
		return nil, err
	}
	paypalGuard, err := guard("paypal")
	if err != nil {
		return nil, err
	}
	paypalProc, err := webhooks.NewProcessor(webhooks.ProcessorParams{
		Provider: "paypal",
		Verifier: paypalwebhook.NewVerifier(paypalClient),
		Handler:  paypalService,
		Guard:    paypalGuard,
		Policy:   webhooks.AcknowledgeUnconfigured,
		Metrics:  hooks,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	squareParams := squarewebhook.ServiceParams{Recorder: recorder, Logger: logg}
	if squareClient, err := square.NewClient(ctx, cfg.Square, logg); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "square client unavailable; events without an embedded payment will be ignored")
	} else {
		squareParams.Payments = squareClient
	}
	squareService, err := squarewebhook.NewService(squareParams)
	if err != nil {
		return nil, err
	}
	squareGuard, err := guard("square")
	if err != nil {
		return nil, err
	}
	squareProc, err := webhooks.NewProcessor(webhooks.ProcessorParams{
		Provider: "square",
		Verifier: squarewebhook.NewVerifier(cfg.Square.SignatureKey(), squareNotificationURL(cfg)),
		Handler:  squareService,
		Guard:    squareGuard,
		Policy:   webhooks.SkipVerification,
		Metrics:  hooks,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	return []*webhooks.Processor{stripeProc, paypalProc, squareProc}, nil
}

// squareNotificationURL is the URL Square signs; it must match the
// subscription's configured endpoint byte for byte.
func squareNotificationURL(cfg *config.Config) string {
	if u := strings.TrimSpace(cfg.Square.NotificationURL); u != "" {
		return u
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.App.PublicURL), "/"); base != "" {
		return base + squareWebhookPath
	}
	return ""
}
