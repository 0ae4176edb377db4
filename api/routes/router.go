package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/dispo-backend/api/controllers"
	"github.com/angelmondragon/dispo-backend/api/middleware"
	"github.com/angelmondragon/dispo-backend/internal/partnersync"
	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/dispo-backend/pkg/redis"
)

// Dependencies groups what the HTTP surface needs. Nil pingers are left out of readiness and
// a nil idempotency store disables replay protection.
type Dependencies struct {
	DB                controllers.Pinger
	Redis             controllers.Pinger
	PubSub            controllers.Pinger
	IdempotencyStore  pkgredis.IdempotencyStore
	MetricsGatherer   prometheus.Gatherer
	HUTraces          controllers.HUTraceStore
	TransactionEvents controllers.TransactionEventService
	Procurement       partnersync.Agent
	OutboxDLQ         controllers.OutboxDLQStore
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":     deps.DB,
			"redis":  deps.Redis,
			"pubsub": deps.PubSub,
		}, logg))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Origin(logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Route("/hu-traces", func(r chi.Router) {
			r.Get("/", controllers.HUTraceQuery(deps.HUTraces, logg))
			r.Post("/", controllers.HUTraceAdd(deps.HUTraces, logg))
		})

		r.Post("/transaction-events", controllers.TransactionEventSubmit(deps.TransactionEvents, logg))

		r.Route("/procurement", func(r chi.Router) {
			r.Post("/bpartners", controllers.ProcurementSyncBPartners(deps.Procurement, logg))
			r.Post("/products", controllers.ProcurementSyncProducts(deps.Procurement, logg))
			r.Post("/info-message", controllers.ProcurementSyncInfoMessage(deps.Procurement, logg))
			r.Post("/confirmations", controllers.ProcurementConfirm(deps.Procurement, logg))
		})

		r.Route("/outbox/dlq", func(r chi.Router) {
			r.Get("/", controllers.OutboxDLQList(deps.OutboxDLQ, logg))
			r.Get("/{eventID}", controllers.OutboxDLQGet(deps.OutboxDLQ, logg))
		})
	})

	return r
}
