// Package booking holds the customer-side queue actions.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/clients/queue_api_client"
	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/models"
)

// QueueAPI defines what the app layer needs from the remote API
type QueueAPI interface {
	Join(ctx context.Context, req queue_api_client.JoinRequest) (queue_api_client.JoinResponse, error)
	AddServices(ctx context.Context, token int, services []string) error
	Cancel(ctx context.Context, token int) error
	Login(ctx context.Context, username, password string) (queue_api_client.CustomerProfile, error)
	GetSalon(ctx context.Context) (*models.Salon, error)
}

// IdentityStore persists the customer identity
type IdentityStore interface {
	LoadIdentity(ctx context.Context) (models.ClientIdentity, error)
	SaveIdentity(ctx context.Context, id models.ClientIdentity) error
	ClearIdentity(ctx context.Context) error
}

// Syncer is the running synchronizer, if any. Successful actions push the
// new identity to it and ask for an immediate poll.
type Syncer interface {
	SetIdentity(id models.ClientIdentity)
	Refresh()
}

// App handles customer booking actions
type App struct {
	api   QueueAPI
	store IdentityStore
	sync  Syncer

	mu       sync.Mutex
	identity models.ClientIdentity
	salon    *models.Salon
}

// NewApp creates a new booking App. sync may be nil for one-shot commands.
func NewApp(api QueueAPI, store IdentityStore, sync Syncer) *App {
	return &App{api: api, store: store, sync: sync}
}

// Load reads the stored identity once. A missing record is not an error.
func (a *App) Load(ctx context.Context) (models.ClientIdentity, error) {
	id, err := a.store.LoadIdentity(ctx)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return models.ClientIdentity{}, fmt.Errorf("failed to load identity: %w", err)
	}

	a.mu.Lock()
	a.identity = id
	a.mu.Unlock()
	return id, nil
}

// Identity returns the identity currently held.
func (a *App) Identity() models.ClientIdentity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity
}

// Menu fetches the salon menu once and caches it.
func (a *App) Menu(ctx context.Context) (*models.Salon, error) {
	a.mu.Lock()
	cached := a.salon
	a.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	salon, err := a.api.GetSalon(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get salon: %w", err)
	}

	a.mu.Lock()
	a.salon = salon
	a.mu.Unlock()
	return salon, nil
}

// Login verifies the customer's credentials and stores the returned profile.
func (a *App) Login(ctx context.Context, username, password string) (models.ClientIdentity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.ClientIdentity{}, fmt.Errorf("validation failed: %w", errs.Invalid("username", "is required"))
	}
	if password == "" {
		return models.ClientIdentity{}, fmt.Errorf("validation failed: %w", errs.Invalid("password", "is required"))
	}

	profile, err := a.api.Login(ctx, username, password)
	if err != nil {
		return models.ClientIdentity{}, fmt.Errorf("failed to login: %w", err)
	}

	id := a.Identity()
	id.Username = username
	id.Name = profile.Name
	id.Phone = profile.Phone
	if err := a.commit(ctx, id); err != nil {
		return models.ClientIdentity{}, err
	}

	log.Info().Str("username", username).Msg("customer logged in")
	return id, nil
}

// Logout forgets the stored customer identity, ticket included.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.ClearIdentity(ctx); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	a.apply(models.ClientIdentity{})
	return nil
}

// Join takes a ticket. Name and phone default to the logged-in profile.
// The returned token is stored only after the server accepted the join.
func (a *App) Join(ctx context.Context, in JoinInput) (int, error) {
	current := a.Identity()
	if in.Name == "" {
		in.Name = current.Name
	}
	if in.Phone == "" {
		in.Phone = current.Phone
	}

	req, err := in.Validate(a.knownMenu(ctx))
	if err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	resp, err := a.api.Join(ctx, queue_api_client.JoinRequest{
		Name:     req.Name,
		Phone:    req.Phone,
		Services: req.Services,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to join queue: %w", err)
	}

	id := current
	id.Token = resp.TicketToken()
	id.Name = req.Name
	id.Phone = req.Phone
	if err := a.commit(ctx, id); err != nil {
		return id.Token, err
	}

	log.Info().Int("token", id.Token).Strs("services", req.Services).Msg("joined queue")
	return id.Token, nil
}

// AddServices appends services to the held ticket.
func (a *App) AddServices(ctx context.Context, services []string) error {
	id := a.Identity()
	if !id.HasTicket() {
		return fmt.Errorf("validation failed: %w", errs.Invalid("token", "no ticket held"))
	}

	services, err := ValidateServices(services, a.knownMenu(ctx))
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := a.api.AddServices(ctx, id.Token, services); err != nil {
		return fmt.Errorf("failed to add services: %w", err)
	}

	log.Info().Int("token", id.Token).Strs("services", services).Msg("services added")
	a.refresh()
	return nil
}

// Cancel gives up the held ticket. The stored token is cleared only after
// the server confirmed.
func (a *App) Cancel(ctx context.Context) error {
	id := a.Identity()
	if !id.HasTicket() {
		return fmt.Errorf("validation failed: %w", errs.Invalid("token", "no ticket held"))
	}

	if err := a.api.Cancel(ctx, id.Token); err != nil {
		return fmt.Errorf("failed to cancel ticket %d: %w", id.Token, err)
	}

	if err := a.commit(ctx, id.WithoutTicket()); err != nil {
		return err
	}

	log.Info().Int("token", id.Token).Msg("ticket cancelled")
	return nil
}

// knownMenu returns the salon menu if it can be had; validation against it
// is skipped otherwise.
func (a *App) knownMenu(ctx context.Context) *models.Salon {
	salon, err := a.Menu(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("menu unavailable, skipping service check")
		return nil
	}
	return salon
}

func (a *App) commit(ctx context.Context, id models.ClientIdentity) error {
	if err := a.store.SaveIdentity(ctx, id); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	a.apply(id)
	return nil
}

func (a *App) apply(id models.ClientIdentity) {
	a.mu.Lock()
	a.identity = id
	a.mu.Unlock()

	if a.sync != nil {
		a.sync.SetIdentity(id)
	}
	a.refresh()
}

func (a *App) refresh() {
	if a.sync != nil {
		a.sync.Refresh()
	}
}
