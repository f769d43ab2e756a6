// Package downgrade assembles the nightly maintenance job: expired
// subscriptions are dropped to the free plan, expiring ones are warned and
// overdue invoices are flagged.
package downgrade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/bizflowhq/bizflow-backend/internal/config"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	downgradeservice "github.com/bizflowhq/bizflow-backend/internal/services/downgrade"
	invoiceservice "github.com/bizflowhq/bizflow-backend/internal/services/invoices"
	usageservice "github.com/bizflowhq/bizflow-backend/internal/services/usage"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
	"github.com/bizflowhq/bizflow-backend/internal/storage/postgres"
)

type App struct {
	downgradeService *downgradeservice.DowngradeService
	invoiceService   *invoiceservice.InvoiceService
	store            storage.Store
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(db *postgres.Storage) error {
	for range 10 {
		if err := postgres.CheckDatabaseReady(db); err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := postgres.New(cfg.StorageConnectionString)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		_ = db.Close()
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	publisher := rabbitmq.NewEventPublisher(ch)
	usageService := usageservice.New(db, logger)

	return &App{
		downgradeService: downgradeservice.New(db, publisher, logger),
		invoiceService:   invoiceservice.New(db, usageService, publisher, logger),
		store:            db,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

// RunOnce executes one maintenance sweep.
func (a *App) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	summary, err := a.downgradeService.Run(ctx, now)
	if err != nil {
		return fmt.Errorf("downgrade sweep failed: %w", err)
	}
	a.logger.Info("downgrade sweep finished",
		slog.Int("expired_found", summary.ExpiredFound),
		slog.Int("downgraded", summary.Downgraded),
		slog.Int("warnings_sent", summary.WarningsSent),
		slog.Int("errors", summary.Errors))

	overdue, err := a.invoiceService.MarkOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("overdue sweep failed: %w", err)
	}
	a.logger.Info("overdue sweep finished", slog.Int("marked", overdue))
	return nil
}

func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
