package main

import (
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/config"
	"github.com/mcdev12/slotsync/go/internal/events"
	"github.com/mcdev12/slotsync/go/internal/gateway"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
)

func setupGateway(cfg *config.Config, sync *queuesync.Synchronizer, views *gateway.SessionViews) *gateway.Service {
	gwConfig := gateway.DefaultConfig()
	gwConfig.Addr = cfg.Gateway.Addr
	return gateway.NewService(gwConfig, sync.Session(), views, sync)
}

// setupPublisher connects to NATS when a URL is configured. Connection
// failures fall back to the no-op publisher.
func setupPublisher(cfg *config.Config) events.Publisher {
	if cfg.NATS.URL == "" {
		return events.NoOpPublisher{}
	}

	natsConfig := events.DefaultNATSConfig()
	natsConfig.URL = cfg.NATS.URL
	natsConfig.SubjectPrefix = cfg.NATS.SubjectPrefix

	publisher, err := events.NewNATSPublisher(natsConfig)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("ticket events disabled")
		return events.NoOpPublisher{}
	}
	return publisher
}
