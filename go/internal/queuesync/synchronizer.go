package queuesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/estimator"
	"github.com/mcdev12/slotsync/go/internal/models"
)

// Config groups the synchronizer settings.
type Config struct {
	PollInterval time.Duration
	Tolerance    int
	Clock        clockwork.Clock
	Identity     models.ClientIdentity
	Store        IdentityStore
	Metrics      MetricsCollector
}

// Synchronizer wires the session, the poller and the one-second display
// ticker together.
type Synchronizer struct {
	session *Session
	poller  *Poller
	clock   clockwork.Clock
	ticker  *Handle
}

// New builds a synchronizer around a fresh session. Nothing runs until Start.
func New(api Fetcher, cfg Config) *Synchronizer {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = estimator.DefaultTolerance
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoOpMetricsCollector{}
	}

	session := NewSession(SessionConfig{
		Clock:        cfg.Clock,
		Tolerance:    cfg.Tolerance,
		PollInterval: cfg.PollInterval,
		Identity:     cfg.Identity,
		Store:        cfg.Store,
		Metrics:      cfg.Metrics,
	})

	return &Synchronizer{
		session: session,
		poller: NewPoller(api, session, PollerConfig{
			Interval: cfg.PollInterval,
			Clock:    cfg.Clock,
			Metrics:  cfg.Metrics,
		}),
		clock: cfg.Clock,
	}
}

// Start begins polling and ticking.
func (s *Synchronizer) Start(ctx context.Context) error {
	if err := s.poller.Start(ctx); err != nil {
		return err
	}
	s.ticker = Every(ctx, s.clock, time.Second, func(context.Context) {
		s.session.Tick()
	})
	return nil
}

// Stop releases the timers and makes the session ignore in-flight results.
func (s *Synchronizer) Stop() {
	s.session.Stop()
	s.ticker.Stop()
	if err := s.poller.Stop(); err != nil {
		log.Debug().Err(err).Msg("poller stop")
	}
}

// Refresh forces an immediate poll.
func (s *Synchronizer) Refresh() {
	s.poller.Refresh()
}

// SetIdentity switches the ticket the display follows.
func (s *Synchronizer) SetIdentity(id models.ClientIdentity) {
	s.session.SetIdentity(id)
}

// ReloadIdentity re-reads the stored identity and follows it when another
// process changed it, for example a join or logout run from the CLI. It
// reports whether the followed identity changed.
func (s *Synchronizer) ReloadIdentity(ctx context.Context, store IdentityStore) (bool, error) {
	stored, err := store.LoadIdentity(ctx)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return false, fmt.Errorf("failed to reload identity: %w", err)
	}
	if stored == s.session.Identity() {
		return false, nil
	}

	log.Info().
		Int("token", stored.Token).
		Str("username", stored.Username).
		Msg("stored identity changed")
	s.session.SetIdentity(stored)
	s.poller.Refresh()
	return true, nil
}

func (s *Synchronizer) Session() *Session {
	return s.session
}
