package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/slotsync/go/internal/models"
)

func entry(token, minutes int) models.QueueEntry {
	return models.QueueEntry{Token: token, Name: "guest", TotalDuration: minutes}
}

func snapshot(elapsed float64, entries ...models.QueueEntry) *models.QueueSnapshot {
	return &models.QueueSnapshot{
		Queue:          entries,
		PeopleAhead:    len(entries),
		ElapsedSeconds: models.Seconds(elapsed),
	}
}

func me(token int) models.ClientIdentity {
	return models.ClientIdentity{Token: token, Name: "Me", Phone: "9876543210"}
}

func TestDerive(t *testing.T) {
	snap := snapshot(0, entry(1, 20), entry(2, 15), entry(3, 10))

	tests := []struct {
		name string
		id   models.ClientIdentity
		want Position
	}{
		{"no ticket", models.ClientIdentity{}, Position{MyIndex: -1}},
		{"unknown token", me(99), Position{MyIndex: -1}},
		{"serving", me(1), Position{AmIInQueue: true, MyIndex: 0, PeopleAhead: 0, IsServingNow: true}},
		{"second", me(2), Position{AmIInQueue: true, MyIndex: 1, PeopleAhead: 1}},
		{"third", me(3), Position{AmIInQueue: true, MyIndex: 2, PeopleAhead: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(snap, tt.id))
			// pure: same inputs, same result
			assert.Equal(t, Derive(snap, tt.id), Derive(snap, tt.id))
		})
	}
}

func TestDerive_PhoneIsNotIdentity(t *testing.T) {
	snap := snapshot(0, models.QueueEntry{Token: 7, Phone: "9876543210", TotalDuration: 10})
	pos := Derive(snap, models.ClientIdentity{Phone: "9876543210"})
	assert.False(t, pos.AmIInQueue)
}

func TestDerive_NilSnapshot(t *testing.T) {
	assert.Equal(t, Position{MyIndex: -1}, Derive(nil, me(1)))
}

func TestAuthoritativeWait(t *testing.T) {
	t.Run("sums durations ahead minus elapsed", func(t *testing.T) {
		snap := snapshot(5, entry(1, 20), entry(2, 15))
		assert.Equal(t, 1195, AuthoritativeWait(snap, 1))
	})

	t.Run("per-entry estimate wins", func(t *testing.T) {
		snap := snapshot(5, entry(1, 20), entry(2, 15))
		snap.Queue[1].EstimatedWait = models.Seconds(600.9)
		assert.Equal(t, 600, AuthoritativeWait(snap, 1))
	})

	t.Run("bad estimates clamp to zero", func(t *testing.T) {
		for _, v := range []float64{-30, math.NaN(), math.Inf(1)} {
			snap := snapshot(0, entry(1, 20), entry(2, 15))
			snap.Queue[1].EstimatedWait = models.Seconds(v)
			assert.Equal(t, 0, AuthoritativeWait(snap, 1))
		}
	})

	t.Run("elapsed beyond durations clamps", func(t *testing.T) {
		snap := snapshot(5000, entry(1, 20), entry(2, 15))
		assert.Equal(t, 0, AuthoritativeWait(snap, 1))
	})

	t.Run("head and out of range are zero", func(t *testing.T) {
		snap := snapshot(0, entry(1, 20))
		assert.Equal(t, 0, AuthoritativeWait(snap, 0))
		assert.Equal(t, 0, AuthoritativeWait(snap, 4))
		assert.Equal(t, 0, AuthoritativeWait(nil, 1))
	})
}

func TestReconcile_ConvergesToServerValue(t *testing.T) {
	snap := snapshot(5, entry(1, 20), entry(2, 15))

	state, outcome := Reconcile(Initial(), snap, me(2), DefaultTolerance)
	assert.Equal(t, OutcomeResynced, outcome)
	assert.Equal(t, PhaseWaiting, state.Phase)
	assert.Equal(t, 1195, state.Seconds)
	assert.Equal(t, "19:55", FormatClock(state.Seconds))
	assert.Equal(t, []int{1}, state.Ahead)
}

func TestReconcile_WithinToleranceKeepsTicking(t *testing.T) {
	first := snapshot(0, entry(1, 20), entry(2, 15))
	state, _ := Reconcile(Initial(), first, me(2), DefaultTolerance)
	require.Equal(t, 1200, state.Seconds)

	// four local ticks, server only moved by two
	for i := 0; i < 4; i++ {
		state = Tick(state)
	}
	require.Equal(t, 1196, state.Seconds)

	second := snapshot(2, entry(1, 20), entry(2, 15))
	next, outcome := Reconcile(state, second, me(2), DefaultTolerance)
	assert.Equal(t, OutcomeKept, outcome)
	assert.Equal(t, 1196, next.Seconds)
	assert.Equal(t, 1198, next.Authoritative)
}

func TestReconcile_BeyondToleranceSnaps(t *testing.T) {
	first := snapshot(0, entry(1, 20), entry(2, 15))
	state, _ := Reconcile(Initial(), first, me(2), DefaultTolerance)

	drifted := snapshot(60, entry(1, 20), entry(2, 15))
	next, outcome := Reconcile(state, drifted, me(2), DefaultTolerance)
	assert.Equal(t, OutcomeSnapped, outcome)
	assert.Equal(t, 1140, next.Seconds)
}

func TestReconcile_ToleranceBoundary(t *testing.T) {
	state := DisplayState{Phase: PhaseWaiting, Token: 2, Seconds: 1197, Ahead: []int{1}}
	snap := snapshot(0, entry(1, 20), entry(2, 15))

	next, outcome := Reconcile(state, snap, me(2), 3)
	assert.Equal(t, OutcomeKept, outcome, "a delta equal to the tolerance is jitter")
	assert.Equal(t, 1197, next.Seconds)

	state.Seconds = 1196
	next, outcome = Reconcile(state, snap, me(2), 3)
	assert.Equal(t, OutcomeSnapped, outcome)
	assert.Equal(t, 1200, next.Seconds)
}

func TestReconcile_AheadChangeForcesResync(t *testing.T) {
	first := snapshot(0, entry(1, 20), entry(3, 1), entry(2, 15))
	state, _ := Reconcile(Initial(), first, me(2), DefaultTolerance)
	require.Equal(t, 1260, state.Seconds)

	// token 3 leaves and token 4 takes its slot with the same duration
	second := snapshot(0, entry(1, 20), entry(4, 1), entry(2, 15))
	state.Seconds = 1259
	next, outcome := Reconcile(state, second, me(2), DefaultTolerance)
	assert.Equal(t, OutcomeResynced, outcome)
	assert.Equal(t, 1260, next.Seconds)
	assert.Equal(t, []int{1, 4}, next.Ahead)
}

func TestReconcile_ReorderAheadIsCompositionChange(t *testing.T) {
	state := DisplayState{Phase: PhaseWaiting, Token: 3, Seconds: 2099, Ahead: []int{1, 2}}
	snap := snapshot(0, entry(2, 15), entry(1, 20), entry(3, 10))

	next, outcome := Reconcile(state, snap, me(3), DefaultTolerance)
	assert.Equal(t, OutcomeResynced, outcome)
	assert.Equal(t, 2100, next.Seconds)
}

func TestReconcile_RepeatedIdenticalPollsNeverReset(t *testing.T) {
	snap := snapshot(0, entry(1, 20), entry(2, 15))
	state, _ := Reconcile(Initial(), snap, me(2), DefaultTolerance)

	for i := 0; i < 3; i++ {
		state = Tick(state)
		var outcome Outcome
		state, outcome = Reconcile(state, snap, me(2), DefaultTolerance)
		assert.Equal(t, OutcomeKept, outcome)
	}
	assert.Equal(t, 1197, state.Seconds)
}

func TestReconcile_ServingPinsZero(t *testing.T) {
	waiting := DisplayState{Phase: PhaseWaiting, Token: 2, Seconds: 400, Ahead: []int{1}}
	snap := snapshot(0, entry(2, 15), entry(5, 20))
	snap.Queue[0].EstimatedWait = models.Seconds(350)

	next, outcome := Reconcile(waiting, snap, me(2), DefaultTolerance)
	assert.Equal(t, OutcomeServing, outcome)
	assert.Equal(t, PhaseServing, next.Phase)
	assert.Equal(t, 0, next.Seconds)
	assert.Equal(t, "0:00", FormatClock(next.Seconds))

	assert.Equal(t, 0, Tick(next).Seconds)
}

func TestReconcile_RemovedThenIdle(t *testing.T) {
	waiting := DisplayState{Phase: PhaseWaiting, Token: 2, Seconds: 400, Ahead: []int{1}}
	snap := snapshot(0, entry(1, 20))
	snap.SecondsLeft = models.Seconds(1200)

	removed, outcome := Reconcile(waiting, snap, me(2), DefaultTolerance)
	assert.Equal(t, OutcomeRemoved, outcome)
	assert.Equal(t, PhaseRemoved, removed.Phase)
	assert.Equal(t, 2, removed.Token)

	idle, outcome := Reconcile(removed, snap, me(2), DefaultTolerance)
	assert.Equal(t, OutcomeIdle, outcome)
	assert.Equal(t, PhaseIdle, idle.Phase)
	assert.Equal(t, 1200, idle.Seconds)
}

func TestReconcile_IdleShowsAggregate(t *testing.T) {
	snap := snapshot(0, entry(1, 20))
	snap.TotalWaitMinutes = models.Seconds(40)

	state, outcome := Reconcile(Initial(), snap, models.ClientIdentity{}, DefaultTolerance)
	assert.Equal(t, OutcomeIdle, outcome)
	assert.Equal(t, 2400, state.Seconds)
	assert.Equal(t, 2400, Tick(state).Seconds, "idle display does not count down")
}

func TestReconcile_NewTicketResyncs(t *testing.T) {
	prev := DisplayState{Phase: PhaseWaiting, Token: 2, Seconds: 10, Ahead: []int{1}}
	snap := snapshot(0, entry(1, 20), entry(2, 15), entry(9, 10))

	next, outcome := Reconcile(prev, snap, me(9), DefaultTolerance)
	assert.Equal(t, OutcomeResynced, outcome)
	assert.Equal(t, 2100, next.Seconds)
}

func TestTick_NeverNegative(t *testing.T) {
	state := DisplayState{Phase: PhaseWaiting, Token: 2, Seconds: 1}
	state = Tick(state)
	state = Tick(state)
	state = Tick(state)
	assert.Equal(t, 0, state.Seconds)

	state.Seconds = -5
	assert.Equal(t, 0, Tick(state).Seconds)
}

func TestFormatClock(t *testing.T) {
	tests := map[int]string{
		0:    "0:00",
		5:    "0:05",
		59:   "0:59",
		60:   "1:00",
		1195: "19:55",
		3600: "60:00",
		-12:  "0:00",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatClock(in), "FormatClock(%d)", in)
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0:00", FormatSeconds(math.NaN()))
	assert.Equal(t, "0:00", FormatSeconds(math.Inf(-1)))
	assert.Equal(t, "0:00", FormatSeconds(-1))
	assert.Equal(t, "1:59", FormatSeconds(119.99), "fractions truncate")
}
