package estimator

import (
	"slices"

	"github.com/mcdev12/slotsync/go/internal/models"
)

// DefaultTolerance is how far, in seconds, the local countdown may drift
// from the server before it is snapped back.
const DefaultTolerance = 3

// Phase is the state of "my ticket" as seen by the display.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseWaiting Phase = "waiting"
	PhaseServing Phase = "serving"
	PhaseRemoved Phase = "removed"
)

// Outcome says what a reconciliation did to the display timer.
type Outcome string

const (
	OutcomeIdle     Outcome = "idle"
	OutcomeKept     Outcome = "kept"
	OutcomeSnapped  Outcome = "snapped"
	OutcomeResynced Outcome = "resynced"
	OutcomeServing  Outcome = "serving"
	OutcomeRemoved  Outcome = "removed"
)

// DisplayState is the locally ticking wait display.
type DisplayState struct {
	Phase Phase `json:"phase"`
	// Seconds is the display timer. In PhaseIdle it carries the
	// informational queue-wide wait and does not tick.
	Seconds       int   `json:"seconds"`
	Token         int   `json:"token,omitempty"`
	Authoritative int   `json:"authoritative"`
	Ahead         []int `json:"ahead,omitempty"`
}

// Initial is the display state before the first snapshot arrives.
func Initial() DisplayState {
	return DisplayState{Phase: PhaseIdle}
}

// Reconcile folds a new snapshot into the display state.
//
// While waiting, the timer is only replaced when the tokens ahead of mine
// change or when the server value is more than tolerance seconds away from
// the local countdown. Reaching the head of the queue pins the timer to 0.
func Reconcile(prev DisplayState, snap *models.QueueSnapshot, id models.ClientIdentity, tolerance int) (DisplayState, Outcome) {
	tolerance = max(tolerance, 0)
	pos := Derive(snap, id)

	if !pos.AmIInQueue {
		if prev.Token != 0 && (prev.Phase == PhaseWaiting || prev.Phase == PhaseServing) {
			return DisplayState{Phase: PhaseRemoved, Token: prev.Token}, OutcomeRemoved
		}
		aggregate := snap.AggregateWait()
		return DisplayState{Phase: PhaseIdle, Seconds: aggregate, Authoritative: aggregate}, OutcomeIdle
	}

	if pos.IsServingNow {
		return DisplayState{Phase: PhaseServing, Token: id.Token}, OutcomeServing
	}

	auth := AuthoritativeWait(snap, pos.MyIndex)
	next := DisplayState{
		Phase:         PhaseWaiting,
		Token:         id.Token,
		Authoritative: auth,
		Ahead:         TokensAhead(snap, pos.MyIndex),
	}

	switch {
	case prev.Phase != PhaseWaiting || prev.Token != id.Token:
		next.Seconds = auth
		return next, OutcomeResynced
	case !slices.Equal(prev.Ahead, next.Ahead):
		next.Seconds = auth
		return next, OutcomeResynced
	case abs(auth-prev.Seconds) > tolerance:
		next.Seconds = auth
		return next, OutcomeSnapped
	default:
		next.Seconds = max(prev.Seconds, 0)
		return next, OutcomeKept
	}
}

// Tick advances the countdown by one second. Only a waiting timer moves,
// and it stops at zero.
func Tick(s DisplayState) DisplayState {
	switch s.Phase {
	case PhaseWaiting:
		if s.Seconds > 0 {
			s.Seconds--
		} else {
			s.Seconds = 0
		}
	case PhaseServing:
		s.Seconds = 0
	}
	return s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
