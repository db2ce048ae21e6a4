/**
 * @description
 * HTTP router for the ledger-service. Wires the API endpoints to their handlers and
 * applies the standard middleware stack.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: routing and middleware.
 * - github.com/go-chi/cors: CORS policy.
 * - github.com/prometheus/client_golang: /metrics endpoint.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the ledger-service router.
func Routes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.CreateTransactionHandler)
		r.Get("/", h.ListTransactionsHandler)
		r.Post("/transfer", h.TransferHandler)
		r.Post("/{id}/cancel", h.CancelTransactionHandler)
		r.Post("/{id}/refund", h.RefundTransactionHandler)
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccountHandler)
		r.Get("/{id}/balances", h.BalancesHandler)
		r.Get("/{id}/audit", h.AccountAuditTrailHandler)
		r.Post("/{id}/activate", h.SetAccountActiveHandler(true))
		r.Post("/{id}/deactivate", h.SetAccountActiveHandler(false))
	})

	return r
}
