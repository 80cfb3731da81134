package estimator

import "github.com/mcdev12/slotsync/go/internal/models"

// AuthoritativeWait returns the server-backed wait in whole seconds for the
// entry at index. A per-entry estimate wins; otherwise the durations of the
// entries strictly ahead are summed and the time already spent on the head
// of the queue is subtracted. The result is never negative.
func AuthoritativeWait(snap *models.QueueSnapshot, index int) int {
	if snap == nil || index <= 0 || index >= len(snap.Queue) {
		return 0
	}

	if est := snap.Queue[index].EstimatedWait; est != nil {
		return models.WholeSeconds(est)
	}

	total := 0
	for i := 0; i < index; i++ {
		total += max(snap.Queue[i].TotalDuration, 0) * 60
	}
	return max(total-snap.Elapsed(), 0)
}

