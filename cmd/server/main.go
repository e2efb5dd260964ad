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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"trackex/internal/budget"
	"trackex/internal/config"
	"trackex/internal/events"
	"trackex/internal/forecast"
	"trackex/internal/handlers"
	"trackex/internal/ledger"
	"trackex/internal/middleware"
	"trackex/internal/payments"
	"trackex/internal/registry"
	"trackex/internal/session"
	"trackex/internal/storage"
	"trackex/internal/transfer"
	"trackex/internal/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("TRACKEX_CONFIG"))
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	publisher, err := newPublisher(ctx, cfg.Events)
	if err != nil {
		return err
	}

	creds := session.New(db)
	ledgerSvc := ledger.New(db, ledger.WithLocation(loc))
	gateway := payments.NewRazorpay(cfg.Payments.BaseURL, cfg.Payments.KeyID, cfg.Payments.KeySecret, nil)

	s := handlers.Services{
		Credentials: creds,
		Users:       users.New(db, creds, cfg.Security.BcryptCost),
		Registry:    registry.New(db),
		Transfers: transfer.New(db, logger,
			transfer.WithPublisher(publisher),
			transfer.WithLocation(loc),
		),
		Ledger:  ledgerSvc,
		Budgets: budget.New(db, ledgerSvc),
		Payments: payments.New(db, gateway, logger,
			payments.WithCurrency(cfg.Payments.Currency),
			payments.WithKeyID(gateway.KeyID()),
			payments.WithLocation(loc),
		),
		Pinger: db,
	}
	if cfg.Forecast.BaseURL != "" {
		s.Advisor = forecast.NewAdvisor(forecast.NewClient(cfg.Forecast.BaseURL, cfg.Forecast.Timeout))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      setupRouter(handlers.NewHandlers(s, logger), logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", srv.Addr), slog.String("driver", db.Driver()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPublisher returns an SQS publisher when a queue is configured.
func newPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	if cfg.QueueURL == "" {
		return events.Nop{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.QueueURL), nil
}

func setupRouter(h *handlers.Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewStructuredLogger(logger))
	r.Use(chimiddleware.Recoverer)

	h.Mount(r)
	return r
}
