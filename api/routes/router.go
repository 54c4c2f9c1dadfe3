package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camdenretail/tillcore-backend/api/controllers"
	"github.com/camdenretail/tillcore-backend/api/middleware"
	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/internal/barcodes"
	"github.com/camdenretail/tillcore-backend/internal/catalog"
	"github.com/camdenretail/tillcore-backend/internal/payments"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/internal/syncqueue"
	"github.com/camdenretail/tillcore-backend/internal/till"
	"github.com/camdenretail/tillcore-backend/pkg/config"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
	"github.com/camdenretail/tillcore-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	tillService till.Service,
	salesService sales.Service,
	paymentsService payments.Service,
	barcodeService barcodes.Service,
	catalogService catalog.Service,
	syncService syncqueue.Service,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/tills", func(r chi.Router) {
			r.Post("/", controllers.TillCreate(tillService, logg))
			r.Get("/{tillId}/session", controllers.TillOpenSession(tillService, logg))
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.SessionOpen(tillService, logg))
			r.Get("/{sessionId}", controllers.SessionDetail(tillService, logg))
			r.Post("/{sessionId}/close", controllers.SessionClose(tillService, logg))
			r.Post("/{sessionId}/cash-movements", controllers.SessionCashMovementCreate(tillService, logg))
			r.Get("/{sessionId}/cash-movements", controllers.SessionCashMovements(tillService, logg))
			r.Get("/{sessionId}/sales", controllers.SessionSales(salesService, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.SaleRecord(salesService, logg))
			r.Get("/{saleId}", controllers.SaleDetail(salesService, logg))
			r.Post("/{saleId}/void", controllers.SaleVoid(salesService, logg))
			r.Post("/{saleId}/payments", controllers.PaymentAttach(paymentsService, logg))
			r.Get("/{saleId}/payments", controllers.SalePayments(paymentsService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/{paymentId}/reverse", controllers.PaymentReverse(paymentsService, logg))
		})

		r.Route("/barcodes", func(r chi.Router) {
			r.Post("/allocate", controllers.BarcodeAllocate(barcodeService, logg))
			r.Post("/register", controllers.BarcodeRegister(barcodeService, logg))
			r.Get("/{code}", controllers.BarcodeLookup(barcodeService, logg))
		})
		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(catalogService, logg))
			r.Get("/", controllers.ProductList(catalogService, logg))
			r.Get("/{productId}", controllers.ProductDetail(catalogService, logg))
			r.Get("/{productId}/barcodes", controllers.ProductBarcodes(barcodeService, logg))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/entries", controllers.SyncEnqueue(syncService, logg))
			r.Post("/drain", controllers.SyncDrain(syncService, logg))
			r.Get("/entries", controllers.SyncStatus(syncService, logg))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/entities/{entityId}", controllers.EntityAuditTrail(auditService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleBackOffice.String(), logg))
				r.Get("/feed", controllers.AuditFeed(auditService, logg))
			})
		})
	})

	return r
}
