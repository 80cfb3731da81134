// Package gateway serves the queue view to kiosk screens over WebSocket and
// plain HTTP.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/slotsync/go/internal/queuesync"
)

// Refresher forces an immediate poll
type Refresher interface {
	Refresh()
}

// Config holds configuration for the gateway service
type Config struct {
	Addr             string
	ConnectionConfig ConnectionConfig
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		Addr:             ":8090",
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// Service pushes a fresh view to every screen on each session change
type Service struct {
	config            Config
	session           *queuesync.Session
	views             ViewProvider
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	unsubscribe       func()
}

// NewService creates the gateway and subscribes it to session changes.
// Views queue up until Start runs the connection manager.
func NewService(config Config, session *queuesync.Session, views ViewProvider, refresher Refresher) *Service {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	connectionManager := NewConnectionManager(config.ConnectionConfig, refresher)

	s := &Service{
		config:            config,
		session:           session,
		views:             views,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, views),
		stateHandler:      NewStateHandler(views),
	}
	s.unsubscribe = session.Subscribe(func(state queuesync.State) {
		connectionManager.Broadcast(views.ViewOf(state))
	})
	return s
}

// Start runs the connection manager until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting queue gateway service")
	s.connectionManager.Start(ctx)
	return s.Stop()
}

// Stop detaches the gateway from the session
func (s *Service) Stop() error {
	s.unsubscribe()
	log.Info().Msg("queue gateway service stopped")
	return nil
}

// RegisterRoutes registers the gateway HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	mux.Handle("/health", queuesync.NewHealthHandler(s.session))
	mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the routes wrapped with CORS and HTTP/2 cleartext support
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

// ListenAndServe runs the HTTP server until ctx is done
func (s *Service) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Addr).Msg("gateway listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown failed")
		return err
	}
	return nil
}
