package queuesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/models"
)

const DefaultPollInterval = 3 * time.Second

// Fetcher retrieves the authoritative queue state.
type Fetcher interface {
	Status(ctx context.Context) (*models.QueueSnapshot, error)
}

// PollerConfig controls how often the poller fetches.
type PollerConfig struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Metrics  MetricsCollector
}

// DefaultPollerConfig polls every DefaultPollInterval on the real clock.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: DefaultPollInterval,
		Clock:    clockwork.NewRealClock(),
		Metrics:  &NoOpMetricsCollector{},
	}
}

// Poller fetches the queue on start, on every interval and whenever
// Refresh is called, and hands results to the session. Fetches never
// overlap.
type Poller struct {
	api     Fetcher
	session *Session
	config  PollerConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wakeCh   chan struct{}
	wg       sync.WaitGroup
}

// NewPoller fills unset config fields from DefaultPollerConfig.
func NewPoller(api Fetcher, session *Session, cfg PollerConfig) *Poller {
	defaults := DefaultPollerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}
	if cfg.Metrics == nil {
		cfg.Metrics = defaults.Metrics
	}

	return &Poller{
		api:      api,
		session:  session,
		config:   cfg,
		stopChan: make(chan struct{}),
		wakeCh:   make(chan struct{}, 1),
	}
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)

	log.Info().Dur("poll_interval", p.config.Interval).Msg("queue poller started")
	return nil
}

func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller not running")
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopChan)
	p.wg.Wait()

	log.Info().Msg("queue poller stopped")
	return nil
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refresh asks for an immediate fetch. Requests made while a fetch is in
// flight collapse into one follow-up fetch.
func (p *Poller) Refresh() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	timer := p.config.Clock.NewTimer(p.config.Interval)
	defer stopAndDrainTimer(timer)

	// Poll immediately on start
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			p.poll(ctx)
			timer.Reset(p.config.Interval)
		case <-p.wakeCh:
			stopAndDrainTimer(timer)
			p.poll(ctx)
			timer.Reset(p.config.Interval)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	start := p.config.Clock.Now()
	snap, err := p.api.Status(ctx)
	duration := p.config.Clock.Since(start)

	if ctx.Err() != nil {
		return
	}

	if err != nil {
		p.config.Metrics.RecordPoll(false, duration)
		log.Warn().Err(err).Dur("duration", duration).Msg("queue status poll failed")
		p.session.RecordFailure(err)
		return
	}

	p.config.Metrics.RecordPoll(true, duration)
	log.Debug().
		Int("queue_length", len(snap.Queue)).
		Dur("duration", duration).
		Msg("queue status polled")
	p.session.ApplySnapshot(ctx, snap)
}
