package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/mcdev12/slotsync/go/clients/queue_api_client"
	"github.com/mcdev12/slotsync/go/internal/admin"
	"github.com/mcdev12/slotsync/go/internal/booking"
	"github.com/mcdev12/slotsync/go/internal/config"
	"github.com/mcdev12/slotsync/go/internal/identity"
)

type Services struct {
	Config *config.Config
	API    *queue_api_client.QueueApiClient
	Store  *identity.Store

	closers []func() error
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Config layer → API client → identity store → app layer (per command)
	api := queue_api_client.NewQueueApiClient(
		cfg.APIBaseURL,
		queue_api_client.WithSalonID(cfg.SalonID),
		queue_api_client.WithTimeout(cfg.RequestTimeout),
	)

	svc := &Services{Config: cfg, API: api}

	switch cfg.Identity.Store {
	case config.StoreRedis:
		client, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, client.Close)
		svc.Store = identity.NewStore(identity.NewRedisStore(client, cfg.Identity.DeviceID))
	default:
		fs := identity.NewFileStore(cfg.Identity.Dir)
		log.Debug().Str("dir", fs.Dir()).Msg("using file identity store")
		svc.Store = identity.NewStore(fs)
	}

	return svc, nil
}

// Booking returns the customer app. sync may be nil for one-shot commands.
func (s *Services) Booking(sync booking.Syncer) *booking.App {
	return booking.NewApp(s.API, s.Store, sync)
}

// Admin returns the staff app with its stored session restored.
func (s *Services) Admin(ctx context.Context, refresher admin.Refresher) (*admin.App, error) {
	app := admin.NewApp(s.API, s.Store, admin.Options{
		ShowHistory: s.Config.Capabilities.ShowHistory,
		Refresher:   refresher,
	})
	if err := app.Load(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Services) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
}

// connectRedis pings with backoff so a kiosk can start before redis is up.
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis not reachable, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Debug().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to redis")
	return client, nil
}
