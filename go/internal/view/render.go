package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes the terminal rendering of v.
func Render(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	title := v.SalonName
	if title == "" {
		title = "SlotSync"
	}
	if v.SalonID != "" {
		title = fmt.Sprintf("%s (%s)", title, v.SalonID)
	}
	fmt.Fprintln(tw, title)
	fmt.Fprintln(tw, strings.Repeat("=", len(title)))

	fmt.Fprintln(tw, v.Headline)
	if v.Stale {
		fmt.Fprintln(tw, "! connection lost, showing last known queue")
	}

	if v.Mode != ModeLoading {
		fmt.Fprintln(tw)
		switch v.Mode {
		case ModeWaiting:
			fmt.Fprintf(tw, "Your wait\t%s\n", v.Timer)
			fmt.Fprintf(tw, "People ahead\t%d\n", v.PeopleAhead)
		case ModeServing:
			fmt.Fprintf(tw, "Your wait\t%s\n", v.Timer)
		default:
			fmt.Fprintf(tw, "Queue wait\t%s\n", v.Timer)
		}
		fmt.Fprintf(tw, "In queue\t%d\n", v.QueueLength)

		if len(v.UpNext) > 0 {
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "Up next")
			for _, row := range v.UpNext {
				marker := ""
				if row.Mine {
					marker = " (you)"
				}
				fmt.Fprintf(tw, "  #%d\t%s%s\t%s\t%s\n", row.Token, row.Name, marker, strings.Join(row.Services, ", "), row.Wait)
			}
		}
	}

	if len(v.History) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Served")
		for _, row := range v.History {
			fmt.Fprintf(tw, "  #%d\t%s\t%s\n", row.Token, row.Name, row.CompletedAt)
		}
	}

	return tw.Flush()
}

// RenderMenu writes the salon menu.
func RenderMenu(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Service\tMinutes\tPrice")
	for _, s := range v.Menu {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", s.Name, s.Minutes, s.Price)
	}
	return tw.Flush()
}
