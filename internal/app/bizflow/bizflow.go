// Package bizflow assembles the API server: storage, cache, broker, payment
// gateway and every service behind the HTTP routes.
package bizflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/bizflowhq/bizflow-backend/internal/cache"
	"github.com/bizflowhq/bizflow-backend/internal/config"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/lib/jwt"
	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	"github.com/bizflowhq/bizflow-backend/internal/migrations"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/paystack"
	analyticsservice "github.com/bizflowhq/bizflow-backend/internal/services/analytics"
	authservice "github.com/bizflowhq/bizflow-backend/internal/services/auth"
	customerservice "github.com/bizflowhq/bizflow-backend/internal/services/customers"
	expenseservice "github.com/bizflowhq/bizflow-backend/internal/services/expenses"
	invoiceservice "github.com/bizflowhq/bizflow-backend/internal/services/invoices"
	notificationservice "github.com/bizflowhq/bizflow-backend/internal/services/notifications"
	productservice "github.com/bizflowhq/bizflow-backend/internal/services/products"
	saleservice "github.com/bizflowhq/bizflow-backend/internal/services/sales"
	subscriptionservice "github.com/bizflowhq/bizflow-backend/internal/services/subscription"
	usageservice "github.com/bizflowhq/bizflow-backend/internal/services/usage"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
	"github.com/bizflowhq/bizflow-backend/internal/storage/memory"
	"github.com/bizflowhq/bizflow-backend/internal/storage/postgres"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	store  storage.Store
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// eventPublisher matches the publisher interfaces the services declare.
type eventPublisher interface {
	Publish(routingKey string, event models.NotificationEvent) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	analyticsCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher, conn, ch, err := openBroker(cfg, logger)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL)
	gateway := paystack.NewClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL)

	usageService := usageservice.New(store, logger)
	services := &Services{
		Auth:          authservice.New(store, jwtMaker, logger),
		Usage:         usageService,
		Subscription:  subscriptionservice.New(store, gateway, logger),
		Customers:     customerservice.New(store, logger),
		Products:      productservice.New(store, publisher, logger),
		Invoices:      invoiceservice.New(store, usageService, publisher, logger),
		Sales:         saleservice.New(store, usageService, publisher, logger),
		Expenses:      expenseservice.New(store, usageService, logger),
		Notifications: notificationservice.New(store, logger),
		Analytics:     analyticsservice.New(store, analyticsCache, logger),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, store, services)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		store:  store,
		conn:   conn,
		ch:     ch,
	}, nil
}

// openStorage picks the backend: Postgres with migrations when a connection
// string is configured, the in-memory store otherwise.
func openStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.StorageConnectionString == "" {
		logger.Warn("DATABASE_URL is empty, using in-memory storage; data is lost on restart")
		return memory.New(), nil
	}

	db, err := postgres.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analyticsservice.Cache, error) {
	if cfg.RedisConnection.Addr == "" {
		logger.Warn("REDIS_ADDRESS is empty, analytics caching disabled")
		return cache.Noop{}, nil
	}
	c, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}
	return c, nil
}

func openBroker(cfg *config.Config, logger *slog.Logger) (eventPublisher, *amqp.Connection, *amqp.Channel, error) {
	if cfg.RabbitMQURL == "" {
		logger.Warn("RABBITMQ_URL is empty, notification events will be dropped")
		return rabbitmq.NopPublisher{}, nil, nil, nil
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, nil, nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	return rabbitmq.NewEventPublisher(ch), conn, ch, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
}
