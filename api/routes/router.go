package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GolfLocker/golf-locker-pos/api/controllers"
	"github.com/GolfLocker/golf-locker-pos/api/middleware"
	"github.com/GolfLocker/golf-locker-pos/pkg/auth/session"
	"github.com/GolfLocker/golf-locker-pos/pkg/config"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

// Params carries everything the router needs to mount the API surface.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Registry *prometheus.Registry

	Auth      *controllers.AuthController
	Health    *controllers.HealthController
	Inventory *controllers.InventoryController
	Cart      *controllers.CartController
	Codes     *controllers.CodesController
	Checkout  *controllers.CheckoutController
	Receipts  *controllers.ReceiptsController
	Returns   *controllers.ReturnsController
	GiftCards *controllers.GiftCardsController
}

func New(p Params) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware(p.Logger))
	r.Use(middleware.RequestIDMiddleware(p.Logger))
	r.Use(middleware.LoggingMiddleware(p.Logger))
	r.Use(middleware.CORSMiddleware(p.Config.CORS))

	r.Get("/health/live", p.Health.Live)
	r.Get("/health/ready", p.Health.Ready)
	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", p.Auth.Login)
			r.Post("/refresh", p.Auth.Refresh)
			r.Post("/logout", p.Auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(p.Config.JWT, p.Sessions, p.Logger))

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", p.Inventory.ListRecent)
				r.Post("/", p.Inventory.Create)
				r.Get("/availability/{category}", p.Inventory.Availability)
				r.With(middleware.RequireManager(p.Logger)).
					Post("/availability/warm", p.Inventory.WarmAvailability)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", p.Cart.Get)
				r.Get("/totals", p.Checkout.Totals)
				r.Post("/items", p.Cart.Add)
				r.Put("/items/{sku}/quantity", p.Cart.UpdateQuantity)
				r.Put("/items/{sku}/price", p.Cart.UpdatePrice)
				r.Delete("/items/{sku}", p.Cart.Remove)
				r.Post("/refresh", p.Cart.Refresh)
				r.Delete("/", p.Cart.Clear)
			})

			r.Route("/codes", func(r chi.Router) {
				r.Get("/", p.Codes.Get)
				r.Post("/apply", p.Codes.Apply)
				r.Delete("/", p.Codes.Clear)
			})

			r.Post("/checkout", p.Checkout.Commit)

			r.Route("/receipts", func(r chi.Router) {
				r.Get("/", p.Receipts.ListRecent)
				r.Get("/{receiptNo}", p.Receipts.Get)
				r.Get("/{receiptNo}/return", p.Returns.Preview)
				r.Post("/{receiptNo}/mail", p.Receipts.MarkMail)
			})

			r.Route("/returns", func(r chi.Router) {
				r.Post("/", p.Returns.Commit)
				r.Get("/recent", p.Returns.Recent)
			})

			r.Route("/giftcards", func(r chi.Router) {
				r.Get("/", p.GiftCards.List)
				r.Get("/{code}", p.GiftCards.Get)
			})
		})
	})

	return r
}
