// Package admin holds the staff dashboard actions. Every action needs a
// live session issued by the server; nothing is checked client-side beyond
// its presence and expiry.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/clients"
	"github.com/mcdev12/slotsync/go/clients/queue_api_client"
	"github.com/mcdev12/slotsync/go/internal/booking"
	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/identity"
	"github.com/mcdev12/slotsync/go/internal/models"
)

// QueueAPI defines what the dashboard needs from the remote API
type QueueAPI interface {
	AdminLogin(ctx context.Context, username, password string) (string, error)
	Next(ctx context.Context) error
	Move(ctx context.Context, token int, direction queue_api_client.Direction) error
	ServeNow(ctx context.Context, token int) error
	Reset(ctx context.Context) error
	Delete(ctx context.Context, token int) error
	History(ctx context.Context) ([]models.HistoryEntry, error)
	Join(ctx context.Context, req queue_api_client.JoinRequest) (queue_api_client.JoinResponse, error)
	GetSalon(ctx context.Context) (*models.Salon, error)
	SetBearerToken(token string)
}

// SessionStore persists the admin session
type SessionStore interface {
	LoadSession(ctx context.Context) (models.AdminSession, error)
	SaveSession(ctx context.Context, sess models.AdminSession) error
	ClearSession(ctx context.Context) error
}

// Refresher asks the running synchronizer for an immediate poll.
type Refresher interface {
	Refresh()
}

type Options struct {
	ShowHistory bool
	Clock       clockwork.Clock
	Refresher   Refresher
}

// App handles staff queue management
type App struct {
	api         QueueAPI
	store       SessionStore
	refresher   Refresher
	clock       clockwork.Clock
	showHistory bool

	mu      sync.Mutex
	session models.AdminSession
}

// NewApp creates a new admin App
func NewApp(api QueueAPI, store SessionStore, opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &App{
		api:         api,
		store:       store,
		refresher:   opts.Refresher,
		clock:       opts.Clock,
		showHistory: opts.ShowHistory,
	}
}

// Load restores a stored session. Expired sessions are dropped.
func (a *App) Load(ctx context.Context) error {
	sess, err := a.store.LoadSession(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if !sess.Valid(a.clock.Now()) {
		log.Debug().Time("expired_at", sess.ExpiresAt).Msg("stored admin session expired")
		return a.store.ClearSession(ctx)
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	return nil
}

// Session returns the current session, which may be empty.
func (a *App) Session() models.AdminSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// LoggedIn reports whether a usable session is held.
func (a *App) LoggedIn() bool {
	return a.Session().Valid(a.clock.Now())
}

// Login exchanges credentials for a server-issued session.
func (a *App) Login(ctx context.Context, username, password string) (models.AdminSession, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.AdminSession{}, fmt.Errorf("validation failed: %w", errs.Invalid("credentials", "username and password are required"))
	}

	token, err := a.api.AdminLogin(ctx, username, password)
	if err != nil {
		if clients.StatusCode(err) == http.StatusUnauthorized {
			return models.AdminSession{}, fmt.Errorf("%w: %w", errs.ErrNotAuthenticated, err)
		}
		return models.AdminSession{}, fmt.Errorf("failed to login: %w", err)
	}

	sess := identity.NewAdminSession(token, username, a.clock.Now())
	if err := a.store.SaveSession(ctx, sess); err != nil {
		return models.AdminSession{}, fmt.Errorf("failed to save session: %w", err)
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()

	log.Info().Str("username", username).Time("expires_at", sess.ExpiresAt).Msg("admin logged in")
	return sess, nil
}

// Logout drops the session locally.
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.session = models.AdminSession{}
	a.mu.Unlock()

	a.api.SetBearerToken("")
	if err := a.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Next marks the head of the queue as served.
func (a *App) Next(ctx context.Context) error {
	return a.do(ctx, "next", func(ctx context.Context) error {
		return a.api.Next(ctx)
	})
}

// Move swaps a ticket with its neighbour in the given direction.
func (a *App) Move(ctx context.Context, token int, direction string) error {
	dir := queue_api_client.Direction(strings.ToLower(strings.TrimSpace(direction)))
	if !dir.Valid() {
		return fmt.Errorf("validation failed: %w", errs.Invalid("direction", "must be up or down"))
	}
	if err := validToken(token); err != nil {
		return err
	}
	return a.do(ctx, "move", func(ctx context.Context) error {
		return a.api.Move(ctx, token, dir)
	})
}

// ServeNow moves a ticket to the head of the queue.
func (a *App) ServeNow(ctx context.Context, token int) error {
	if err := validToken(token); err != nil {
		return err
	}
	return a.do(ctx, "serve-now", func(ctx context.Context) error {
		return a.api.ServeNow(ctx, token)
	})
}

// Reset empties the queue.
func (a *App) Reset(ctx context.Context) error {
	return a.do(ctx, "reset", func(ctx context.Context) error {
		return a.api.Reset(ctx)
	})
}

// Delete removes a ticket without serving it.
func (a *App) Delete(ctx context.Context, token int) error {
	if err := validToken(token); err != nil {
		return err
	}
	return a.do(ctx, "delete", func(ctx context.Context) error {
		return a.api.Delete(ctx, token)
	})
}

// AddWalkIn joins the queue on behalf of a customer at the counter.
func (a *App) AddWalkIn(ctx context.Context, in booking.JoinInput) (int, error) {
	if err := a.authorize(); err != nil {
		return 0, err
	}

	salon, err := a.api.GetSalon(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("menu unavailable, skipping service check")
	}
	req, err := in.Validate(salon)
	if err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	var token int
	err = a.do(ctx, "add", func(ctx context.Context) error {
		resp, err := a.api.Join(ctx, queue_api_client.JoinRequest{
			Name:     req.Name,
			Phone:    req.Phone,
			Services: req.Services,
		})
		token = resp.TicketToken()
		return err
	})
	return token, err
}

// History lists served tickets. Only available when history is enabled.
func (a *App) History(ctx context.Context) ([]models.HistoryEntry, error) {
	if !a.showHistory {
		return nil, fmt.Errorf("validation failed: %w", errs.Invalid("history", "not enabled for this salon"))
	}
	if err := a.authorize(); err != nil {
		return nil, err
	}
	entries, err := a.api.History(ctx)
	if err != nil {
		return nil, a.fail(ctx, "history", err)
	}
	return entries, nil
}

// authorize fails fast without a usable session and otherwise presents it.
func (a *App) authorize() error {
	sess := a.Session()
	if !sess.Valid(a.clock.Now()) {
		return errs.ErrNotAuthenticated
	}
	a.api.SetBearerToken(sess.Token)
	return nil
}

func (a *App) do(ctx context.Context, action string, call func(context.Context) error) error {
	if err := a.authorize(); err != nil {
		return err
	}
	if err := call(ctx); err != nil {
		return a.fail(ctx, action, err)
	}

	log.Info().Str("action", action).Msg("queue updated")
	if a.refresher != nil {
		a.refresher.Refresh()
	}
	return nil
}

// fail maps a rejected session onto ErrNotAuthenticated and forgets it.
func (a *App) fail(ctx context.Context, action string, err error) error {
	if clients.StatusCode(err) == http.StatusUnauthorized {
		log.Warn().Str("action", action).Msg("admin session rejected by server")
		if clearErr := a.Logout(ctx); clearErr != nil {
			log.Error().Err(clearErr).Msg("failed to clear rejected session")
		}
		return fmt.Errorf("%w: %w", errs.ErrNotAuthenticated, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func validToken(token int) error {
	if token <= 0 {
		return fmt.Errorf("validation failed: %w", errs.Invalid("token", "must be positive"))
	}
	return nil
}
