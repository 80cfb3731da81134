// Package estimator turns queue snapshots into the wait-time display a
// ticket holder sees. Everything here is pure; the timers that drive it
// live in the queuesync package.
package estimator

import "github.com/mcdev12/slotsync/go/internal/models"

// Position is "my" place in a snapshot.
type Position struct {
	AmIInQueue   bool `json:"am_i_in_queue"`
	MyIndex      int  `json:"my_index"`
	PeopleAhead  int  `json:"people_ahead"`
	IsServingNow bool `json:"is_serving_now"`
}

// Derive locates the identity's ticket in the snapshot. Only the
// server-issued token identifies a ticket; phone numbers are not matched.
func Derive(snap *models.QueueSnapshot, id models.ClientIdentity) Position {
	idx := -1
	if id.HasTicket() {
		idx = snap.IndexOf(id.Token)
	}

	return Position{
		AmIInQueue:   idx >= 0,
		MyIndex:      idx,
		PeopleAhead:  max(idx, 0),
		IsServingNow: idx == 0,
	}
}

// TokensAhead returns the ordered tokens strictly ahead of index.
func TokensAhead(snap *models.QueueSnapshot, index int) []int {
	if snap == nil || index <= 0 {
		return nil
	}
	if index > len(snap.Queue) {
		index = len(snap.Queue)
	}
	out := make([]int, index)
	for i := 0; i < index; i++ {
		out[i] = snap.Queue[i].Token
	}
	return out
}
