package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkordes/rideshare-importer/internal/config"
	"github.com/pkordes/rideshare-importer/internal/events"
	"github.com/pkordes/rideshare-importer/internal/messages"
	"github.com/pkordes/rideshare-importer/internal/repo"
	"github.com/pkordes/rideshare-importer/internal/service"
)

// brokerDialAttempts bounds the startup wait for RabbitMQ.
const brokerDialAttempts = 5

// app holds the long-lived dependencies shared by serve and import.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	pool    *pgxpool.Pool
	msgs    messages.Catalog
	broker  *events.Conn
	imports *service.ImportService
	rides   *service.RideService
}

// newApp connects to Postgres (and RabbitMQ when configured) and builds the
// import pipeline. recorder may be nil.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, recorder service.Recorder) (*app, error) {
	msgs, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		return nil, err
	}

	// New does not open connections; the ping below does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.InfoContext(ctx, "database connection established")

	a := &app{cfg: cfg, log: log, pool: pool, msgs: msgs}

	posts := repo.NewPostRepo(pool)
	var subscribers []service.Subscriber
	if cfg.LinkDrivers {
		subscribers = append(subscribers, service.NewDriverLinker(repo.NewPersonRepo(pool), msgs))
	}
	if cfg.AMQPURL != "" {
		a.broker, err = events.Dial(ctx, cfg.AMQPURL, brokerDialAttempts, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		pub, err := events.NewPublisher(a.broker.Channel, cfg.AMQPExchange, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		subscribers = append(subscribers, pub)
	}

	hooks := service.Hooks{}
	transformer := service.NewTransformer(msgs, hooks)
	upserter := service.NewUpserter(posts, log, hooks, subscribers...)
	a.imports = service.NewImportService(transformer, upserter, recorder, log)
	a.rides = service.NewRideService(posts)
	return a, nil
}

// Close releases the broker connection and the database pool.
func (a *app) Close() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.log.Warn("close broker connection", "error", err)
		}
	}
	a.pool.Close()
}
