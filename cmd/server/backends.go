package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pedcare/internal/platform/config"
	"pedcare/internal/platform/redis"
	"pedcare/pkg/platform/audit/sink"
	"pedcare/pkg/platform/audit/store/postgres"
	"pedcare/pkg/platform/audit/store/sqlite"
	"pedcare/pkg/platform/audit/stream/kafka"
	"pedcare/pkg/platform/audit/tracker"
)

// healthCheck reports whether a backing service is reachable.
type healthCheck func(ctx context.Context) error

// backends holds the optional persistence and streaming sinks. Each is
// enabled only when its section of the config is set.
type backends struct {
	sinks   []sink.Sink
	checks  map[string]healthCheck
	closers []func() error
}

func openBackends(ctx context.Context, cfg *config.Config, runID uuid.UUID, log *slog.Logger) (*backends, error) {
	b := &backends{checks: map[string]healthCheck{}}
	fail := func(err error) (*backends, error) {
		b.close(log)
		return nil, err
	}

	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fail(err)
		}
		b.closers = append(b.closers, db.Close)
		store := postgres.New(db, runID)
		if err := store.Migrate(ctx); err != nil {
			return fail(err)
		}
		b.add(store, pingDB(db))
	}

	if cfg.SQLite.Path != "" {
		store, err := sqlite.Open(ctx, cfg.SQLite.Path, runID)
		if err != nil {
			return fail(err)
		}
		b.closers = append(b.closers, store.Close)
		b.add(store, nil)
	}

	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fail(err)
		}
		b.closers = append(b.closers, client.Close)
		b.add(tracker.NewRedisMirror(client.Client, runID), client.Health)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, runID)
		if err != nil {
			return fail(err)
		}
		b.closers = append(b.closers, func() error { producer.Close(); return nil })
		b.add(producer, producer.Ping)
	}

	for _, s := range b.sinks {
		log.Info("audit sink enabled", "sink", s.Name())
	}
	return b, nil
}

func (b *backends) add(s sink.Sink, check healthCheck) {
	b.sinks = append(b.sinks, s)
	if check != nil {
		b.checks[s.Name()] = check
	}
}

// close releases backends in reverse order of opening.
func (b *backends) close(log *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warn("close backend", "error", err)
		}
	}
	b.closers = nil
}

func pingDB(db *sql.DB) healthCheck {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	}
}
