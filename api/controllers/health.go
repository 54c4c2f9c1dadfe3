package controllers

import (
	"context"
	"net/http"

	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/pkg/config"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

const envHeader = "X-TillCore-Env"

// Pinger is the readiness probe each hard dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness of the API's hard dependencies. A nil pinger
// means the dependency is not configured for this deployment and is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		status := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				status[name] = "skipped"
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				status[name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(status))
				return
			}
			status[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": status})
	}
}
