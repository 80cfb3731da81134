// Package events publishes notifications when the followed ticket changes
// phase, for kiosks and staff tooling listening on NATS.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/estimator"
)

// TicketEvent is published when my ticket enters a new phase.
type TicketEvent struct {
	ID            uuid.UUID       `json:"event_id"`
	SalonID       string          `json:"salon_id,omitempty"`
	Token         int             `json:"token"`
	Name          string          `json:"name,omitempty"`
	Phase         estimator.Phase `json:"phase"`
	PreviousPhase estimator.Phase `json:"previous_phase"`
	WaitSeconds   int             `json:"wait_seconds"`
	PeopleAhead   int             `json:"people_ahead"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher delivers ticket events
type Publisher interface {
	Publish(ctx context.Context, event TicketEvent) error
	Close() error
}

// NoOpPublisher is used when no broker is configured
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(ctx context.Context, event TicketEvent) error {
	log.Debug().
		Int("token", event.Token).
		Str("phase", string(event.Phase)).
		Msg("ticket event (no publisher configured)")
	return nil
}

func (NoOpPublisher) Close() error { return nil }
