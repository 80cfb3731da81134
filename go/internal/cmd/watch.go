package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/slotsync/go/internal/events"
	"github.com/mcdev12/slotsync/go/internal/gateway"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/view"
)

const historyRefreshInterval = 30 * time.Second

func cmdWatch(ctx context.Context, svc *Services, args []string, stdout io.Writer) error {
	cfg := svc.Config

	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	serve := fs.Bool("serve", cfg.Gateway.Enabled, "serve the kiosk gateway")
	quiet := fs.Bool("quiet", false, "do not draw the terminal view")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := svc.Booking(nil)
	id, err := app.Load(ctx)
	if err != nil {
		return err
	}

	var metrics queuesync.MetricsCollector = &queuesync.NoOpMetricsCollector{}
	if *serve {
		metrics = queuesync.NewPrometheusMetrics(nil)
	}

	syncer := queuesync.New(svc.API, queuesync.Config{
		PollInterval: cfg.PollInterval(),
		Tolerance:    cfg.ReconciliationToleranceSeconds,
		Identity:     id,
		Store:        svc.Store,
		Metrics:      metrics,
	})
	session := syncer.Session()

	views := gateway.NewSessionViews(session, cfg.Capabilities)
	if salon, err := app.Menu(ctx); err == nil {
		views.SetSalon(salon)
	} else {
		log.Debug().Err(err).Msg("salon details unavailable")
	}

	publisher := setupPublisher(cfg)
	defer publisher.Close()
	detach := events.NewNotifier(publisher, nil, cfg.SalonID).Attach(session)
	defer detach()

	g, gctx := errgroup.WithContext(ctx)

	if *serve {
		gw := setupGateway(cfg, syncer, views)
		g.Go(func() error { return gw.Start(gctx) })
		g.Go(func() error { return gw.ListenAndServe(gctx) })
	}

	if !*quiet {
		g.Go(func() error {
			return renderLoop(gctx, session, views, stdout, isTerminal(stdout))
		})
	}

	if cfg.Capabilities.ShowHistory {
		staff, err := svc.Admin(ctx, nil)
		if err != nil {
			return err
		}
		if staff.LoggedIn() {
			h := queuesync.Every(gctx, clockwork.NewRealClock(), historyRefreshInterval, func(ctx context.Context) {
				entries, err := staff.History(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("failed to refresh history")
					return
				}
				views.SetHistory(entries)
			})
			defer h.Stop()
		}
	}

	if err := syncer.Start(gctx); err != nil {
		return fmt.Errorf("failed to start synchronizer: %w", err)
	}
	defer syncer.Stop()

	// join, cancel and logout run as separate commands against the same store
	reload := queuesync.Every(gctx, clockwork.NewRealClock(), cfg.PollInterval(), func(ctx context.Context) {
		if _, err := syncer.ReloadIdentity(ctx, svc.Store); err != nil {
			log.Warn().Err(err).Msg("failed to reload identity")
		}
	})
	defer reload.Stop()

	log.Info().
		Str("api", cfg.APIBaseURL).
		Dur("poll_interval", cfg.PollInterval()).
		Int("token", id.Token).
		Bool("gateway", *serve).
		Msg("watching queue")

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// renderLoop redraws on state changes. On a terminal the screen is cleared
// each time; otherwise a frame is written only when something other than
// the countdown changed.
func renderLoop(ctx context.Context, session *queuesync.Session, views gateway.ViewProvider, w io.Writer, terminal bool) error {
	changed := make(chan struct{}, 1)
	unsubscribe := session.Subscribe(func(queuesync.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}

		v := views.CurrentView()
		if !terminal {
			key := frameKey(v)
			if key == last {
				continue
			}
			last = key
		} else {
			fmt.Fprint(w, "\033[H\033[2J")
		}
		if err := view.Render(w, v); err != nil {
			return fmt.Errorf("failed to render view: %w", err)
		}
	}
}

func frameKey(v view.View) string {
	key := fmt.Sprintf("%s|%d|%d|%d|%t", v.Mode, v.Token, v.PeopleAhead, v.QueueLength, v.Stale)
	for _, row := range v.UpNext {
		key += fmt.Sprintf("|%d", row.Token)
	}
	return key
}
