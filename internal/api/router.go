/**
 * @description
 * HTTP router setup for the settlement service using go-chi/chi. Three route
 * surfaces: the token-protected gateway webhook, the JWT-protected producer
 * endpoints, and the admin endpoints which additionally require the admin
 * role claim.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: Router and standard middleware.
 * - github.com/go-chi/cors: CORS handling for browser dashboards.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers all settlement routes.
func NewRouter(h *Handlers, jwtSecret, webhookToken, internalAPIKey string, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Gateway-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// The gateway authenticates with a shared token, not a user JWT.
	r.Route("/webhooks/gateway", func(r chi.Router) {
		r.Use(WebhookTokenMiddleware(webhookToken))
		r.Post("/events", h.GatewayWebhookHandler)
	})

	// Service-to-service surface for the commerce platform.
	r.Route("/internal/sales", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))
		r.Post("/", h.RegisterSaleHandler)
		r.Get("/{saleID}", h.GetSaleHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Get("/balance", h.BalanceHandler)
		r.Get("/dashboard", h.DashboardHandler)
		r.Post("/withdrawals", h.RequestWithdrawalHandler)
		r.Get("/withdrawals", h.WithdrawalHistoryHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Get("/overview", h.AdminOverviewHandler)
			r.Get("/withdrawals", h.AdminListWithdrawalsHandler)
			r.Post("/withdrawals/{requestID}/decision", h.AdminDecideWithdrawalHandler)
			r.Get("/fees/platform", h.AdminGetPlatformFeesHandler)
			r.Put("/fees/platform", h.AdminUpdatePlatformFeesHandler)
			r.Put("/fees/producers/{producerID}", h.AdminUpsertProducerFeesHandler)
		})
	})

	return r
}
