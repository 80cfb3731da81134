package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/booking"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/view"
)

func cmdStatus(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := svc.Booking(nil)
	id, err := app.Load(ctx)
	if err != nil {
		return err
	}

	snap, err := svc.API.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch queue: %w", err)
	}

	session := queuesync.NewSession(queuesync.SessionConfig{
		Tolerance:    svc.Config.ReconciliationToleranceSeconds,
		PollInterval: svc.Config.PollInterval(),
		Identity:     id,
		Store:        svc.Store,
	})
	session.ApplySnapshot(ctx, snap)

	salon, err := app.Menu(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("salon details unavailable")
	}
	v := view.Build(session.State(), svc.Config.Capabilities, salon)

	if svc.Config.Capabilities.ShowHistory {
		v = v.WithHistory(staffHistory(ctx, svc))
	}
	return view.Render(stdout, v)
}

func cmdMenu(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("menu", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	salon, err := svc.Booking(nil).Menu(ctx)
	if err != nil {
		return err
	}
	return view.RenderMenu(stdout, view.Build(queuesync.State{}, svc.Config.Capabilities, salon))
}

func cmdLogin(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := svc.Booking(nil)
	if _, err := app.Load(ctx); err != nil {
		return err
	}
	id, err := app.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Logged in as %s (%s)\n", id.Name, id.Phone)
	return nil
}

func cmdLogout(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	if err := svc.Booking(nil).Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Logged out")
	return nil
}

func cmdJoin(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	name := fs.String("name", "", "your name (defaults to the logged-in profile)")
	phone := fs.String("phone", "", "10 digit phone number (defaults to the logged-in profile)")
	services := fs.String("services", "", "comma separated services, e.g. Haircut,Shave")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := svc.Booking(nil)
	if _, err := app.Load(ctx); err != nil {
		return err
	}
	token, err := app.Join(ctx, booking.JoinInput{
		Name:     *name,
		Phone:    *phone,
		Services: splitList(*services),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Joined the queue with token #%d\n", token)
	return nil
}

func cmdAddService(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("add-service", flag.ContinueOnError)
	services := fs.String("services", "", "comma separated services to add")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := svc.Booking(nil)
	id, err := app.Load(ctx)
	if err != nil {
		return err
	}
	if err := app.AddServices(ctx, splitList(*services)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Services added to token #%d\n", id.Token)
	return nil
}

func cmdCancel(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	app := svc.Booking(nil)
	id, err := app.Load(ctx)
	if err != nil {
		return err
	}
	if err := app.Cancel(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Token #%d cancelled\n", id.Token)
	return nil
}
