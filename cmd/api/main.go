package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GolfLocker/golf-locker-pos/api/controllers"
	"github.com/GolfLocker/golf-locker-pos/api/routes"
	"github.com/GolfLocker/golf-locker-pos/internal/auth"
	"github.com/GolfLocker/golf-locker-pos/internal/availability"
	"github.com/GolfLocker/golf-locker-pos/internal/cart"
	"github.com/GolfLocker/golf-locker-pos/internal/checkout"
	"github.com/GolfLocker/golf-locker-pos/internal/codes"
	"github.com/GolfLocker/golf-locker-pos/internal/inventory"
	"github.com/GolfLocker/golf-locker-pos/internal/mailer"
	"github.com/GolfLocker/golf-locker-pos/internal/receipts"
	"github.com/GolfLocker/golf-locker-pos/internal/returns"
	"github.com/GolfLocker/golf-locker-pos/internal/sequence"
	"github.com/GolfLocker/golf-locker-pos/internal/users"
	"github.com/GolfLocker/golf-locker-pos/pkg/auth/session"
	"github.com/GolfLocker/golf-locker-pos/pkg/config"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/lock"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	"github.com/GolfLocker/golf-locker-pos/pkg/metrics"
	"github.com/GolfLocker/golf-locker-pos/pkg/migrate"
	pkgredis "github.com/GolfLocker/golf-locker-pos/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "golf-locker-pos",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "server exited", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, database); err != nil {
		return err
	}

	redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	locker, err := lock.New(redisClient, cfg.Checkout.LockTTL, cfg.Checkout.LockWait)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	commitMetrics := metrics.NewCommitMetrics(registry)

	invRepo := inventory.NewRepository(database.DB())
	receiptRepo := receipts.NewRepository(database.DB())
	seqRepo := sequence.NewRepository(database.DB())
	returnsRepo := returns.NewRepository(database.DB())
	usersRepo := users.NewRepository(database.DB())
	cardsRepo := codes.NewRepository(database.DB())

	availSvc, err := availability.NewService(availability.ServiceParams{
		Repo:       invRepo,
		Cache:      redisClient,
		ReceiptRef: receiptRepo,
		Logger:     logg,
		TTL:        cfg.Availability.IndexTTL,
	})
	if err != nil {
		return err
	}

	invSvc, err := inventory.NewService(inventory.ServiceParams{
		DB:          database,
		Repo:        invRepo,
		Sequence:    seqRepo,
		Invalidator: availSvc,
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Store:        redisClient,
		Availability: availSvc,
		Inventory:    invSvc,
		Logger:       logg,
		TTL:          cfg.Cart.TTL,
	})
	if err != nil {
		return err
	}

	codesSvc, err := codes.NewService(codes.ServiceParams{
		Repo:       cardsRepo,
		Store:      redisClient,
		Logger:     logg,
		SessionTTL: cfg.Codes.SessionTTL,
		CardPrefix: cfg.Codes.GiftCardPrefix,
	})
	if err != nil {
		return err
	}

	receiptSvc, err := receipts.NewService(receipts.ServiceParams{
		Repo:          receiptRepo,
		TicketBaseURL: cfg.Tickets.BaseURL,
	})
	if err != nil {
		return err
	}

	receiptMailer, err := newReceiptMailer(cfg, logg)
	if err != nil {
		return err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		DB:            database,
		Locker:        locker,
		Cart:          cartSvc,
		Codes:         codesSvc,
		Inventory:     invRepo,
		Receipts:      receiptRepo,
		ReceiptViews:  receiptSvc,
		Sequence:      seqRepo,
		Availability:  availSvc,
		Mailer:        receiptMailer,
		Metrics:       commitMetrics,
		Logger:        logg,
		ReceiptPrefix: cfg.Checkout.ReceiptPrefix,
		SendMail:      cfg.FeatureFlags.SendMail,
	})
	if err != nil {
		return err
	}

	returnsSvc, err := returns.NewService(returns.ServiceParams{
		DB:           database,
		Locker:       locker,
		Repo:         returnsRepo,
		Receipts:     receiptRepo,
		Inventory:    invRepo,
		Sequence:     seqRepo,
		Availability: availSvc,
		Metrics:      commitMetrics,
		Logger:       logg,
		ReturnPrefix: cfg.Checkout.ReturnPrefix,
	})
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Repo:     usersRepo,
		Sessions: sessions,
		JWT:      cfg.JWT,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	if err := availSvc.Warm(ctx); err != nil {
		logg.Warn(ctx, "availability warm on boot failed")
	}

	handler := routes.New(routes.Params{
		Config:    cfg,
		Logger:    logg,
		Sessions:  sessions,
		Registry:  registry,
		Auth:      controllers.NewAuthController(authSvc, logg),
		Health:    controllers.NewHealthController(database, redisClient, logg),
		Inventory: controllers.NewInventoryController(invSvc, availSvc, logg),
		Cart:      controllers.NewCartController(cartSvc, logg),
		Codes:     controllers.NewCodesController(codesSvc, logg),
		Checkout:  controllers.NewCheckoutController(checkoutSvc, logg),
		Receipts:  controllers.NewReceiptsController(receiptSvc, logg),
		Returns:   controllers.NewReturnsController(returnsSvc, logg),
		GiftCards: controllers.NewGiftCardsController(cardsRepo, logg),
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", cfg.App.Port), "api listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logg.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func newReceiptMailer(cfg *config.Config, logg *logger.Logger) (*mailer.ReceiptMailer, error) {
	var sender mailer.Sender
	if cfg.SMTP.Enabled() {
		smtp, err := mailer.NewSMTPSender(cfg.SMTP, cfg.Store.FromEmail)
		if err != nil {
			return nil, err
		}
		sender = smtp
	} else {
		sender = mailer.NewLogSender(logg)
	}
	return mailer.NewReceiptMailer(sender, cfg.Store.Name)
}
