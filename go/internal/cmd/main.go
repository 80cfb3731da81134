package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/config"
	"github.com/mcdev12/slotsync/go/internal/errs"
)

type command struct {
	summary string
	run     func(ctx context.Context, svc *Services, args []string, stdout io.Writer) error
}

var commands = map[string]command{
	"watch":       {"follow the queue and your ticket live", cmdWatch},
	"status":      {"print the queue once", cmdStatus},
	"menu":        {"list the salon services", cmdMenu},
	"login":       {"log in with your customer account", cmdLogin},
	"logout":      {"forget the stored customer identity", cmdLogout},
	"join":        {"take a ticket", cmdJoin},
	"add-service": {"add services to your ticket", cmdAddService},
	"cancel":      {"give up your ticket", cmdCancel},
	"admin":       {"staff queue management", cmdAdmin},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "slotsync: %s\n", describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("slotsync", flag.ContinueOnError)
	configPath := global.String("config", getEnv("SLOTSYNC_CONFIG", "slotsync.yaml"), "path to the YAML config file")
	verbose := global.Bool("v", false, "enable debug logging")
	global.Usage = func() { usage(global) }
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		usage(global)
		return flag.ErrHelp
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		usage(global)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := config.Load(*configPath, flagPassed(global, "config"))
	if err != nil {
		return err
	}
	setupLogging(cfg.Level(), *verbose)

	svc, err := setupServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	return cmd.run(ctx, svc, rest[1:], stdout)
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "usage: slotsync [-config file] [-v] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fs.PrintDefaults()
}

func flagPassed(fs *flag.FlagSet, name string) bool {
	passed := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

// describe turns the error chain into a short message for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotAuthenticated):
		return "not logged in or session expired: " + err.Error()
	case errors.Is(err, errs.ErrTransport):
		return "cannot reach the queue server: " + err.Error()
	default:
		return err.Error()
	}
}
