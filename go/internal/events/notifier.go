package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/estimator"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
)

const publishTimeout = 5 * time.Second

// StateSource is what the notifier watches.
type StateSource interface {
	Subscribe(fn func(queuesync.State)) func()
}

// Notifier turns state changes into ticket events. Only phase changes of a
// held ticket are published; ticks and idle transitions are not.
type Notifier struct {
	publisher Publisher
	clock     clockwork.Clock
	salonID   string

	mu        sync.Mutex
	lastPhase estimator.Phase
	lastToken int
}

func NewNotifier(publisher Publisher, clock clockwork.Clock, salonID string) *Notifier {
	if publisher == nil {
		publisher = NoOpPublisher{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Notifier{
		publisher: publisher,
		clock:     clock,
		salonID:   salonID,
		lastPhase: estimator.PhaseIdle,
	}
}

// Attach subscribes to source. The returned func detaches.
func (n *Notifier) Attach(source StateSource) func() {
	return source.Subscribe(n.Observe)
}

// Observe handles one state update.
func (n *Notifier) Observe(state queuesync.State) {
	event, ok := n.transition(state)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.publisher.Publish(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Int("token", event.Token).
			Str("phase", string(event.Phase)).
			Msg("failed to publish ticket event")
	}
}

func (n *Notifier) transition(state queuesync.State) (TicketEvent, bool) {
	if !state.Loaded {
		return TicketEvent{}, false
	}
	display := state.Display

	n.mu.Lock()
	defer n.mu.Unlock()

	if display.Phase == n.lastPhase && display.Token == n.lastToken {
		return TicketEvent{}, false
	}
	prev := n.lastPhase
	n.lastPhase = display.Phase
	n.lastToken = display.Token

	if display.Phase == estimator.PhaseIdle || display.Token == 0 {
		return TicketEvent{}, false
	}

	return TicketEvent{
		ID:            uuid.New(),
		SalonID:       n.salonID,
		Token:         display.Token,
		Name:          state.Identity.Name,
		Phase:         display.Phase,
		PreviousPhase: prev,
		WaitSeconds:   display.Seconds,
		PeopleAhead:   state.Position.PeopleAhead,
		OccurredAt:    n.clock.Now().UTC(),
	}, true
}
