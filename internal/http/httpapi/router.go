package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"renderhub/internal/http/handlers"
	"renderhub/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS([]string{"*"}),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/jobs", func(r chi.Router) {
		r.With(middleware.RateLimit(30, time.Minute)).Post("/", app.JobsCreate)
		r.Get("/", app.JobsListMine)
		r.Get("/{id}", app.JobsGet)
		r.Get("/by-status/{status}", app.JobsListByStatus)
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Get("/", app.WalletGet)
		r.Get("/transactions", app.WalletTransactions)
	})

	r.Get("/tiers", app.TiersList)

	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", app.SubscriptionsCreate)
		r.Delete("/", app.SubscriptionsCancel)
		r.Get("/active", app.SubscriptionsGetActive)
	})

	r.Post("/payment/sepay-webhook", app.PaymentWebhook)

	return r
}
