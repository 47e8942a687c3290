package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelarlabs/solpay-backend/api/controllers"
	"github.com/avelarlabs/solpay-backend/api/middleware"
	"github.com/avelarlabs/solpay-backend/internal/payments"
	"github.com/avelarlabs/solpay-backend/pkg/config"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	paymentsService payments.Service,
	metricsRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/", controllers.PaymentCreate(paymentsService, logg))
		r.Get("/", controllers.PaymentListPending(paymentsService, logg))
		r.Get("/{intentId}", controllers.PaymentStatus(paymentsService, logg))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	return r
}
