package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ledgerdesk/portal-backend/api/responses"
	"github.com/ledgerdesk/portal-backend/pkg/config"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

const envHeader = "X-Portal-Env"

// Pinger is a dependency readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "status": "live"})
	}
}

// HealthReady pings every named dependency and reports 503 if any fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(deps))
		ready := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				ready = false
				checks[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ping"))
				}
				continue
			}
			checks[name] = "up"
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		responses.WriteJSON(w, code, map[string]any{"success": ready, "status": status, "checks": checks})
	}
}
