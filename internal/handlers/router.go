package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lixing-Zhang/storefront/internal/middleware"
)

// RouterConfig carries the handlers and policies the router wires together.
type RouterConfig struct {
	Health    *HealthHandler
	Products  *ProductHandler
	Cart      *CartHandler
	Favorites *FavoritesHandler
	Auth      *AuthHandler
	Checkout  *CheckoutHandler

	Sessions       middleware.SessionGate
	APIKeys        []string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the host HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		// The payment page and its callback are loaded by the gateway web view, which has no client key.
		r.Get("/checkout/{reference}/page", cfg.Checkout.Page)
		r.Post("/checkout/{reference}/message", cfg.Checkout.Message)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ClientKey(cfg.APIKeys))

			r.Get("/product", cfg.Products.ListProducts)
			r.Get("/product/{productId}", cfg.Products.GetProduct)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Delete("/", cfg.Cart.ClearCart)
				r.Post("/items", cfg.Cart.AddItem)
				r.Delete("/items/{productId}", cfg.Cart.RemoveItem)
				r.Post("/items/{productId}/increment", cfg.Cart.IncrementItem)
				r.Post("/items/{productId}/decrement", cfg.Cart.DecrementItem)
				r.Post("/items/{productId}/decrement-or-remove", cfg.Cart.DecrementOrRemoveItem)
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", cfg.Favorites.ListFavorites)
				r.Post("/", cfg.Favorites.AddFavorite)
				r.Delete("/{productId}", cfg.Favorites.RemoveFavorite)
				r.Post("/{productId}/toggle", cfg.Favorites.ToggleFavorite)
			})

			r.Route("/auth", func(r chi.Router) {
				r.Post("/signin", cfg.Auth.SignIn)
				r.Post("/otp", cfg.Auth.SendMagicLink)
				r.Post("/verify", cfg.Auth.Verify)
				r.Post("/signup", cfg.Auth.SignUp)
				r.Post("/recover", cfg.Auth.ResetPassword)
				r.Post("/resend", cfg.Auth.Resend)
				r.Put("/password", cfg.Auth.UpdatePassword)
				r.Post("/password/change", cfg.Auth.ChangePassword)
				r.Post("/signout", cfg.Auth.SignOut)
				r.Get("/session", cfg.Auth.Session)
				r.Get("/user", cfg.Auth.User)
			})

			r.Get("/checkout/{reference}", cfg.Checkout.Status)
			r.With(middleware.RequireSession(cfg.Sessions)).Post("/checkout", cfg.Checkout.Start)
		})
	})

	return r
}
