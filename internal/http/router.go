package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Search   *SearchHandler
	Payment  *PaymentHandler
	Reviews  *ReviewsHandler
}

// NewRouter mounts every storefront route. Payment routes carry no session; signing needs a
// customer token, the webhook is authenticated by its checksum.
func NewRouter(h Handlers, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.With(RequireToken).Post("/signature", h.Payment.Signature)
			r.Post("/webhook", h.Payment.Webhook)
		})

		r.Route("/products/{document_id}/reviews", func(r chi.Router) {
			r.Get("/", h.Reviews.List)
			r.With(RequireToken).Post("/", h.Reviews.Submit)
		})

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
				r.Post("/drawer/{action}", h.Cart.Drawer)
			})
			r.Get("/search", h.Search.Search)

			r.Group(func(r chi.Router) {
				r.Use(RequireToken)

				r.Route("/checkout", func(r chi.Router) {
					r.Post("/", h.Checkout.Begin)
					r.Get("/", h.Checkout.Get)
					r.Delete("/", h.Checkout.Abandon)
					r.Post("/shipping", h.Checkout.SubmitShipping)
					r.Post("/step", h.Checkout.SelectStep)
					r.Post("/confirm", h.Checkout.Confirm)
					r.Get("/widget", h.Checkout.Widget)
					r.Post("/result", h.Checkout.Complete)
				})
				r.Get("/orders", h.Orders.ListOrders)
			})
		})
	})

	return r
}
