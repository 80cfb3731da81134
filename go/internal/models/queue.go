package models

import (
	"math"
	"time"
)

// EntryStatus is the per-ticket status reported by the backend.
type EntryStatus string

const (
	EntryStatusWaiting   EntryStatus = "waiting"
	EntryStatusCompleted EntryStatus = "completed"
)

// QueueEntry is one customer's ticket as returned by the status endpoint.
type QueueEntry struct {
	Token         int         `json:"token"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone,omitempty"`
	Services      []string    `json:"services,omitempty"`
	TotalDuration int         `json:"total_duration"`           // minutes
	EstimatedWait *float64    `json:"estimated_wait,omitempty"` // seconds, precomputed by the server
	JoinedAt      string      `json:"joined_at,omitempty"`
	Status        EntryStatus `json:"status,omitempty"`
}

// QueueSnapshot is the authoritative queue state returned by one status poll.
// Index 0 of Queue is the entry currently being served.
type QueueSnapshot struct {
	SalonName        string       `json:"salon_name,omitempty"`
	Queue            []QueueEntry `json:"queue"`
	PeopleAhead      int          `json:"people_ahead"`
	SecondsLeft      *float64     `json:"seconds_left,omitempty"`
	TotalWaitMinutes *float64     `json:"total_wait_minutes,omitempty"`
	ElapsedSeconds   *float64     `json:"elapsed_seconds,omitempty"`
	FetchedAt        time.Time    `json:"fetched_at"`
}

// Tokens returns the ordered token sequence of the queue.
func (s *QueueSnapshot) Tokens() []int {
	if s == nil {
		return nil
	}
	tokens := make([]int, len(s.Queue))
	for i, e := range s.Queue {
		tokens[i] = e.Token
	}
	return tokens
}

// IndexOf returns the zero-based position of token, or -1.
func (s *QueueSnapshot) IndexOf(token int) int {
	if s == nil || token == 0 {
		return -1
	}
	for i, e := range s.Queue {
		if e.Token == token {
			return i
		}
	}
	return -1
}

// Elapsed returns the seconds already spent on the entry being served.
func (s *QueueSnapshot) Elapsed() int {
	if s == nil {
		return 0
	}
	return WholeSeconds(s.ElapsedSeconds)
}

// AggregateWait returns the informational queue-wide wait in whole seconds.
// seconds_left wins over total_wait_minutes.
func (s *QueueSnapshot) AggregateWait() int {
	if s == nil {
		return 0
	}
	if s.SecondsLeft != nil {
		return WholeSeconds(s.SecondsLeft)
	}
	if s.TotalWaitMinutes != nil {
		minutes := *s.TotalWaitMinutes
		seconds := minutes * 60
		return WholeSeconds(&seconds)
	}
	return 0
}

// WholeSeconds truncates an optional wire value to whole seconds.
// Missing, negative, NaN and infinite values all become 0.
func WholeSeconds(v *float64) int {
	if v == nil {
		return 0
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Trunc(f))
}

// Seconds is a convenience for building optional wire values.
func Seconds(v float64) *float64 {
	return &v
}
