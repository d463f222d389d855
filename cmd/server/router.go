package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditsvc "pedcare/internal/audit"
	compliancehandler "pedcare/internal/compliance/handler"
	jwttoken "pedcare/internal/jwt_token"
	"pedcare/internal/platform/config"
	"pedcare/internal/platform/metrics"
	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/httputil"
	authmw "pedcare/pkg/platform/middleware/auth"
	"pedcare/pkg/platform/middleware/metadata"
	request "pedcare/pkg/platform/middleware/request"
	"pedcare/pkg/platform/middleware/requesttime"
)

func newRouter(cfg *config.Config, engine *auditsvc.Engine, reg *prometheus.Registry, checks map[string]healthCheck, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recover(log))
	r.Use(request.Logger(log))
	r.Use(metrics.New(reg).Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", healthHandler(checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		r.Use(authmw.RequireRoles(engine, log, audit.RoleOwner))
		compliancehandler.New(engine, log).Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler reports 503 when any enabled backend is unreachable. The
// audit log itself is in-process and always available.
func healthHandler(checks map[string]healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
