// Package view turns synchronizer state into the one screen every salon
// page variant shows, switched by capability flags.
package view

import (
	"fmt"

	"github.com/mcdev12/slotsync/go/internal/estimator"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
)

// upNextSize is how many entries the up-next list shows.
const upNextSize = 3

type Mode string

const (
	ModeLoading Mode = "loading"
	ModeIdle    Mode = "idle"
	ModeWaiting Mode = "waiting"
	ModeServing Mode = "serving"
	ModeRemoved Mode = "removed"
)

// Capabilities switch optional parts of the view on.
type Capabilities struct {
	ShowHistory bool `json:"show_history" yaml:"show_history"`
	MultiTenant bool `json:"multi_tenant" yaml:"multi_tenant"`
}

// UpNext is one row of the up-next list.
type UpNext struct {
	Token    int      `json:"token"`
	Name     string   `json:"name"`
	Services []string `json:"services,omitempty"`
	Wait     string   `json:"wait"`
	Serving  bool     `json:"serving"`
	Mine     bool     `json:"mine"`
}

type HistoryRow struct {
	Token       int    `json:"token"`
	Name        string `json:"name"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// View is everything a screen needs to draw.
type View struct {
	Mode        Mode                 `json:"mode"`
	Headline    string               `json:"headline"`
	SalonID     string               `json:"salon_id,omitempty"`
	SalonName   string               `json:"salon_name,omitempty"`
	Timer       string               `json:"timer"`
	Seconds     int                  `json:"seconds"`
	Token       int                  `json:"token,omitempty"`
	Name        string               `json:"name,omitempty"`
	PeopleAhead int                  `json:"people_ahead"`
	QueueLength int                  `json:"queue_length"`
	UpNext      []UpNext             `json:"up_next"`
	Menu        []models.MenuService `json:"menu,omitempty"`
	Stale       bool                 `json:"stale"`
	LastError   string               `json:"last_error,omitempty"`
	History     []HistoryRow         `json:"history,omitempty"`

	caps Capabilities
}

// Build derives the view from state. salon may be nil when the menu is not
// known.
func Build(state queuesync.State, caps Capabilities, salon *models.Salon) View {
	v := View{
		Stale:     state.Health.Stale,
		LastError: state.Health.LastError,
		Name:      state.Identity.Name,
		UpNext:    []UpNext{},
		caps:      caps,
	}

	if salon != nil {
		v.SalonName = salon.Name
		v.Menu = salon.Menu
		if caps.MultiTenant {
			v.SalonID = salon.ID
		}
	}

	if !state.Loaded || state.Snapshot == nil {
		v.Mode = ModeLoading
		v.Timer = estimator.FormatClock(0)
		v.Headline = "Loading queue..."
		return v
	}

	snap := state.Snapshot
	if snap.SalonName != "" && v.SalonName == "" {
		v.SalonName = snap.SalonName
	}
	v.QueueLength = len(snap.Queue)
	v.Seconds = state.Display.Seconds
	v.Timer = estimator.FormatClock(state.Display.Seconds)
	v.UpNext = upNext(snap, state.Identity.Token)

	switch state.Display.Phase {
	case estimator.PhaseWaiting:
		v.Mode = ModeWaiting
		v.Token = state.Display.Token
		v.PeopleAhead = state.Position.PeopleAhead
		v.Headline = fmt.Sprintf("Token #%d: %d ahead of you, about %s", v.Token, v.PeopleAhead, v.Timer)
	case estimator.PhaseServing:
		v.Mode = ModeServing
		v.Token = state.Display.Token
		v.Headline = fmt.Sprintf("Token #%d: it's your turn!", v.Token)
	case estimator.PhaseRemoved:
		v.Mode = ModeRemoved
		v.Token = state.Display.Token
		v.Headline = fmt.Sprintf("Token #%d is no longer in the queue", v.Token)
	default:
		v.Mode = ModeIdle
		v.PeopleAhead = v.QueueLength
		v.Headline = fmt.Sprintf("%d in queue, current wait %s", v.QueueLength, v.Timer)
	}

	return v
}

// WithHistory attaches served tickets when the history capability is on.
func (v View) WithHistory(entries []models.HistoryEntry) View {
	if !v.caps.ShowHistory {
		return v
	}
	rows := make([]HistoryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, HistoryRow{Token: e.Token, Name: e.Name, CompletedAt: e.CompletedAt})
	}
	v.History = rows
	return v
}

func upNext(snap *models.QueueSnapshot, mine int) []UpNext {
	n := min(len(snap.Queue), upNextSize)
	rows := make([]UpNext, 0, n)
	for i := 0; i < n; i++ {
		e := snap.Queue[i]
		row := UpNext{
			Token:    e.Token,
			Name:     e.Name,
			Services: e.Services,
			Mine:     mine != 0 && e.Token == mine,
		}
		if i == 0 {
			row.Serving = true
			row.Wait = "Serving"
		} else {
			row.Wait = estimator.FormatClock(estimator.AuthoritativeWait(snap, i))
		}
		rows = append(rows, row)
	}
	return rows
}
