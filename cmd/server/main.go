package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/config"
	"github.com/Lixing-Zhang/storefront/internal/favorites"
	"github.com/Lixing-Zhang/storefront/internal/handlers"
	"github.com/Lixing-Zhang/storefront/internal/identity"
	"github.com/Lixing-Zhang/storefront/internal/notify"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/Lixing-Zhang/storefront/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting storefront host",
		"addr", cfg.Server.Addr(),
		"log_level", cfg.LogLevel,
		"version", version,
	)

	// State containers
	productRepo := repository.NewStaticProductRepository()
	cartStore := cart.NewStore()
	favoritesStore := favorites.NewStore()

	// Remote collaborators
	idp := identity.NewClient(identity.Config{
		URL:        cfg.Identity.URL,
		AnonKey:    cfg.Identity.AnonKey,
		ClientInfo: cfg.Identity.ClientInfo,
		Timeout:    cfg.Identity.Timeout,
	}, log)
	sessions := session.NewManager(session.WithRefresher(idp.RefreshSession))

	unsubscribe := sessions.Subscribe(func(e session.Event) {
		attrs := []any{"event", e.Type}
		if e.Session != nil {
			attrs = append(attrs, "user_id", e.Session.User.ID)
		}
		log.Info("session changed", attrs...)
	})
	defer unsubscribe()

	sender := notify.NewWebhook(notify.Config{
		WebhookURL:  cfg.Notify.WebhookURL,
		FallbackURL: cfg.Notify.FallbackURL,
		Timeout:     cfg.Notify.Timeout,
	}, log)

	// Services
	productService := service.NewProductService(productRepo)
	authService := service.NewAuthService(idp, sessions, service.AuthConfig{
		AppName:          cfg.Auth.AppName,
		RedirectURL:      cfg.Auth.RedirectURL,
		ResetRedirectURL: cfg.Auth.ResetRedirectURL,
	}, log)
	checkoutService := service.NewCheckoutService(cartStore, sender, service.CheckoutConfig{
		ReferencePrefix:     cfg.Payment.ReferencePrefix,
		Currency:            cfg.Payment.Currency,
		AmountMultiplier:    cfg.Payment.AmountMultiplier,
		PublicKey:           cfg.Payment.PublicKey,
		ScriptURL:           cfg.Payment.ScriptURL,
		ConfirmationTimeout: cfg.Payment.ConfirmationTimeout,
	}, log)

	router := handlers.NewRouter(handlers.RouterConfig{
		Health:         handlers.NewHealthHandler(version, log),
		Products:       handlers.NewProductHandler(productService, log),
		Cart:           handlers.NewCartHandler(cartStore, productService, log),
		Favorites:      handlers.NewFavoritesHandler(favoritesStore, productService, log),
		Auth:           handlers.NewAuthHandler(authService, log),
		Checkout:       handlers.NewCheckoutHandler(checkoutService, log),
		Sessions:       sessions,
		APIKeys:        cfg.Auth.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	// Let queued order confirmations finish within the same deadline.
	done := make(chan struct{})
	go func() {
		checkoutService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("order confirmations still in flight at shutdown")
	}

	log.Info("server stopped gracefully")
}
