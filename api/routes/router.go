package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerdesk/portal-backend/api/controllers"
	webhookcontrollers "github.com/ledgerdesk/portal-backend/api/controllers/webhooks"
	"github.com/ledgerdesk/portal-backend/api/middleware"
	"github.com/ledgerdesk/portal-backend/api/responses"
	"github.com/ledgerdesk/portal-backend/internal/pricing"
	"github.com/ledgerdesk/portal-backend/internal/webhooks"
	"github.com/ledgerdesk/portal-backend/pkg/config"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

// Dependencies is everything the HTTP surface needs. Leave an interface
// field nil, not holding a nil pointer, when a service is absent; its routes
// then answer 500.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	Licenses   controllers.LicenseValidator
	Tiers      controllers.TierResolver
	Usage      controllers.QuotaTracker
	Downloads  controllers.InstallerService
	Prices     pricing.Prices
	Webhooks   []*webhooks.Processor
	RateLimits middleware.RateLimitStore
	Readiness  map[string]controllers.Pinger
	Prometheus prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "method not allowed"))
	})

	rl := cfg.RateLimit
	licensePolicy := middleware.NewRateLimitPolicy("license", rl.Window, rl.IPLimit, rl.KeyLimit)
	usagePolicy := middleware.NewRateLimitPolicy("usage", rl.Window, rl.IPLimit, rl.KeyLimit)
	publicPolicy := middleware.NewRateLimitPolicy("public", rl.Window, rl.IPLimit, 0)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler(deps.Prometheus))

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		// Any method reaches the handler so non-POST gets the legacy 200 body.
		r.With(middleware.RateLimit(licensePolicy, deps.RateLimits, logg)).
			HandleFunc("/license/validate", controllers.LicenseValidate(deps.Licenses, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(publicPolicy, deps.RateLimits, logg))
			r.Get("/download/avalonia", controllers.DownloadInstaller(deps.Downloads, logg))
			r.Get("/pricing", controllers.Pricing(deps.Prices, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.OpenCORS())
		r.Options("/receipt/usage", controllers.Preflight())
		r.With(middleware.RateLimit(usagePolicy, deps.RateLimits, logg)).
			Post("/receipt/usage", controllers.ReceiptUsage(deps.Tiers, deps.Usage, logg))
	})

	r.Route("/portal/webhooks", func(r chi.Router) {
		for _, proc := range deps.Webhooks {
			if proc == nil {
				continue
			}
			r.HandleFunc("/"+proc.Provider(), webhookcontrollers.Receive(proc, logg))
		}
	})

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
