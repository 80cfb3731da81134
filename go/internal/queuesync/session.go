// Package queuesync keeps a locally ticking wait display in step with the
// remote queue. A Session owns the state; the Poller feeds it snapshots and
// a one-second task ticks the display between polls.
package queuesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/estimator"
	"github.com/mcdev12/slotsync/go/internal/models"
)

// IdentityStore is the durable identity record shared with other processes
// on the same device.
type IdentityStore interface {
	LoadIdentity(ctx context.Context) (models.ClientIdentity, error)
	SaveIdentity(ctx context.Context, id models.ClientIdentity) error
}

// State is an immutable copy of the session handed to readers and
// subscribers. Snapshot is shared and must not be modified.
type State struct {
	Loaded   bool                   `json:"loaded"`
	Snapshot *models.QueueSnapshot  `json:"snapshot,omitempty"`
	Display  estimator.DisplayState `json:"display"`
	Position estimator.Position     `json:"position"`
	Identity models.ClientIdentity  `json:"identity"`
	Outcome  estimator.Outcome      `json:"outcome,omitempty"`
	Health   Health                 `json:"health"`
}

// SessionConfig configures a Session. Zero values fall back to the package
// defaults; a nil Store keeps identity changes in memory only.
type SessionConfig struct {
	Clock        clockwork.Clock
	Tolerance    int
	PollInterval time.Duration
	Identity     models.ClientIdentity
	Store        IdentityStore
	Metrics      MetricsCollector
}

// Session is the single writer of the synchronizer state.
type Session struct {
	clock     clockwork.Clock
	tolerance int
	interval  time.Duration
	store     IdentityStore
	metrics   MetricsCollector

	mu       sync.Mutex
	state    State
	stopped  bool
	nextID   int
	watchers map[int]func(State)
}

// NewSession returns a session that has not seen a snapshot yet.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = estimator.DefaultTolerance
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoOpMetricsCollector{}
	}

	return &Session{
		clock:     cfg.Clock,
		tolerance: cfg.Tolerance,
		interval:  cfg.PollInterval,
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		state: State{
			Display:  estimator.Initial(),
			Position: estimator.Position{MyIndex: -1},
			Identity: cfg.Identity,
		},
		watchers: make(map[int]func(State)),
	}
}

// State returns the current state with the stale flag evaluated against
// the session clock.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	st.Health = st.Health.evaluate(s.clock.Now(), s.interval)
	return st
}

// Identity returns the identity the session matches tickets against.
func (s *Session) Identity() models.ClientIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Identity
}

// ApplySnapshot reconciles a fetched snapshot into the display and the
// derived position in one step. Results arriving after Stop are dropped.
func (s *Session) ApplySnapshot(ctx context.Context, snap *models.QueueSnapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		log.Debug().Msg("session stopped, dropping snapshot")
		return
	}

	prev := s.state.Display
	display, outcome := estimator.Reconcile(prev, snap, s.state.Identity, s.tolerance)

	s.state.Loaded = true
	s.state.Snapshot = snap
	s.state.Display = display
	s.state.Outcome = outcome
	s.state.Position = estimator.Derive(snap, s.state.Identity)
	s.state.Health = s.state.Health.recordSuccess(s.clock.Now())

	cleared := 0
	if outcome == estimator.OutcomeRemoved && s.state.Identity.Token == display.Token {
		s.state.Identity = s.state.Identity.WithoutTicket()
		cleared = display.Token
	}

	st := s.snapshotLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	s.metrics.RecordReconcile(outcome)
	s.metrics.RecordDisplaySeconds(display.Seconds)

	if outcome != estimator.OutcomeKept {
		log.Debug().
			Str("outcome", string(outcome)).
			Str("phase", string(display.Phase)).
			Int("seconds", display.Seconds).
			Int("authoritative", display.Authoritative).
			Msg("display reconciled")
	}

	if cleared != 0 {
		log.Info().Int("token", cleared).Msg("ticket no longer in queue, clearing stored token")
		s.clearStoredTicket(ctx, cleared)
	}

	notify(watchers, st)
}

// clearStoredTicket drops token from the store only while the store still
// holds it. Another process may have taken a new ticket since this session
// loaded its identity.
func (s *Session) clearStoredTicket(ctx context.Context, token int) {
	if s.store == nil {
		return
	}

	stored, err := s.store.LoadIdentity(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to read stored identity")
		return
	}
	if stored.Token != token {
		log.Debug().
			Int("token", token).
			Int("stored_token", stored.Token).
			Msg("stored ticket changed, leaving it in place")
		return
	}

	if err := s.store.SaveIdentity(ctx, stored.WithoutTicket()); err != nil {
		log.Error().Err(err).Msg("failed to clear stored ticket token")
	}
}

// RecordFailure notes a failed fetch. The snapshot and display are left as
// they were.
func (s *Session) RecordFailure(err error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.state.Health = s.state.Health.recordFailure(s.clock.Now(), err)
	st := s.snapshotLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, st)
}

// Tick advances the display by one second.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.stopped || s.state.Display.Phase != estimator.PhaseWaiting {
		s.mu.Unlock()
		return
	}
	s.state.Display = estimator.Tick(s.state.Display)
	seconds := s.state.Display.Seconds
	st := s.snapshotLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	s.metrics.RecordDisplaySeconds(seconds)
	notify(watchers, st)
}

// SetIdentity replaces the identity after a local action such as joining,
// cancelling or logging out. The display restarts from the current snapshot.
func (s *Session) SetIdentity(id models.ClientIdentity) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.state.Identity = id
	s.state.Display = estimator.Initial()
	s.state.Position = estimator.Position{MyIndex: -1}
	if s.state.Snapshot != nil {
		display, outcome := estimator.Reconcile(s.state.Display, s.state.Snapshot, id, s.tolerance)
		s.state.Display = display
		s.state.Outcome = outcome
		s.state.Position = estimator.Derive(s.state.Snapshot, id)
	}
	st := s.snapshotLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, st)
}

// Subscribe registers fn to receive every state change. The returned func
// removes the subscription.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.watchers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// Stop makes the session ignore every later update.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.watchers = make(map[int]func(State))
}

func (s *Session) watchersLocked() []func(State) {
	out := make([]func(State), 0, len(s.watchers))
	for _, fn := range s.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []func(State), st State) {
	for _, fn := range watchers {
		fn(st)
	}
}
