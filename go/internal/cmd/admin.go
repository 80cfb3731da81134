package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/admin"
	"github.com/mcdev12/slotsync/go/internal/booking"
	"github.com/mcdev12/slotsync/go/internal/models"
)

type adminCommand func(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error

var adminCommands = map[string]adminCommand{
	"login":     adminLogin,
	"logout":    adminLogout,
	"next":      adminNext,
	"move":      adminMove,
	"serve-now": adminServeNow,
	"reset":     adminReset,
	"delete":    adminDelete,
	"add":       adminAdd,
	"history":   adminHistory,
}

func cmdAdmin(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("admin needs a subcommand: %v", adminNames())
	}
	sub, ok := adminCommands[args[0]]
	if !ok {
		return fmt.Errorf("unknown admin command %q, expected one of %v", args[0], adminNames())
	}

	app, err := svc.Admin(ctx, nil)
	if err != nil {
		return err
	}
	return sub(ctx, app, args[1:], stdout)
}

func adminNames() []string {
	names := make([]string, 0, len(adminCommands))
	for name := range adminCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// staffHistory returns served tickets when a staff session is stored, and
// nothing otherwise.
func staffHistory(ctx context.Context, svc *Services) []models.HistoryEntry {
	app, err := svc.Admin(ctx, nil)
	if err != nil || !app.LoggedIn() {
		return nil
	}
	entries, err := app.History(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load history")
		return nil
	}
	return entries
}

func adminLogin(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("admin login", flag.ContinueOnError)
	username := fs.String("u", "", "staff username")
	password := fs.String("p", "", "staff password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := app.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Logged in as %s until %s\n", sess.Username, sess.ExpiresAt.Local().Format("15:04"))
	return nil
}

func adminLogout(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	if err := app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Staff session cleared")
	return nil
}

func adminNext(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	if err := app.Next(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Served the head of the queue")
	return nil
}

func adminMove(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("admin move", flag.ContinueOnError)
	token := fs.Int("token", 0, "ticket token")
	direction := fs.String("dir", "", "up or down")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := app.Move(ctx, *token, *direction); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Moved #%d %s\n", *token, *direction)
	return nil
}

func adminServeNow(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	token, err := tokenFlag("admin serve-now", args)
	if err != nil {
		return err
	}
	if err := app.ServeNow(ctx, token); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "#%d moved to the chair\n", token)
	return nil
}

func adminReset(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	if err := app.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Queue reset")
	return nil
}

func adminDelete(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	token, err := tokenFlag("admin delete", args)
	if err != nil {
		return err
	}
	if err := app.Delete(ctx, token); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "#%d removed\n", token)
	return nil
}

func adminAdd(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("admin add", flag.ContinueOnError)
	name := fs.String("name", "", "customer name")
	phone := fs.String("phone", "", "customer phone")
	services := fs.String("services", "", "comma separated services")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := app.AddWalkIn(ctx, booking.JoinInput{
		Name:     *name,
		Phone:    *phone,
		Services: splitList(*services),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Added walk-in with token #%d\n", token)
	return nil
}

func adminHistory(ctx context.Context, app *admin.App, args []string, stdout io.Writer) error {
	entries, err := app.History(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Token\tName\tServices\tCompleted")
	for _, e := range entries {
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\n", e.Token, e.Name, strings.Join(e.Services, ", "), e.CompletedAt)
	}
	return tw.Flush()
}

func tokenFlag(name string, args []string) (int, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	token := fs.Int("token", 0, "ticket token")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	return *token, nil
}
