// Package httptransport assembles the public HTTP surface: authenticated
// client routes, public webhook routes, and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "github.com/KarimBkr/MyTsango/internal/audit/handler"
	kychandler "github.com/KarimBkr/MyTsango/internal/kyc/handler"
	paymenthandler "github.com/KarimBkr/MyTsango/internal/payment/handler"
	"github.com/KarimBkr/MyTsango/internal/platform/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	KYC      *kychandler.Handler
	Payments *paymenthandler.Handler
	Audit    *audithandler.Handler
	Auth     middleware.TokenValidator
	Health   func() error
	Logger   *slog.Logger
}

// NewRouter wires all public endpoints. Client routes sit behind bearer-token
// auth; webhook routes are public and rely on provider signatures instead.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Auth, d.Logger))
		d.KYC.Register(r)
		d.Payments.Register(r)
		d.Audit.Register(r)
	})

	r.Group(func(r chi.Router) {
		d.KYC.RegisterWebhooks(r)
		d.Payments.RegisterWebhooks(r)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				d.Logger.Error("health check failed", "error", err)
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
