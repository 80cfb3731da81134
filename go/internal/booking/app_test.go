package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/slotsync/go/clients/queue_api_client"
	"github.com/mcdev12/slotsync/go/internal/apitest"
	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/identity"
	"github.com/mcdev12/slotsync/go/internal/models"
)

type fakeSyncer struct {
	mu         sync.Mutex
	identities []models.ClientIdentity
	refreshes  int
}

func (f *fakeSyncer) SetIdentity(id models.ClientIdentity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities = append(f.identities, id)
}

func (f *fakeSyncer) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeSyncer) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

type fixture struct {
	backend *apitest.Backend
	store   *identity.Store
	syncer  *fakeSyncer
	app     *App
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	backend, server := apitest.Start(t)
	api := queue_api_client.NewQueueApiClient(server.URL, queue_api_client.WithSalonID(apitest.DefaultSalonID))
	store := identity.NewStore(identity.NewFileStore(t.TempDir()))
	syncer := &fakeSyncer{}
	return fixture{
		backend: backend,
		store:   store,
		syncer:  syncer,
		app:     NewApp(api, store, syncer),
	}
}

func TestApp_LoadWithoutStoredIdentity(t *testing.T) {
	f := newFixture(t)
	id, err := f.app.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ClientIdentity{}, id)
}

func TestApp_LoginStoresProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.app.Login(ctx, apitest.CustomerUser, apitest.CustomerPass)
	require.NoError(t, err)
	assert.Equal(t, apitest.CustomerName, id.Name)
	assert.Equal(t, apitest.CustomerPhone, id.Phone)

	stored, err := f.store.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, stored)
	assert.Equal(t, apitest.CustomerUser, stored.Username)
}

func TestApp_LoginRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.Login(ctx, apitest.CustomerUser, "wrong")
	assert.ErrorIs(t, err, errs.ErrRejected)

	_, err = f.store.LoadIdentity(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound, "nothing stored on failure")

	_, err = f.app.Login(ctx, "", "x")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestApp_JoinRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.app.Login(ctx, apitest.CustomerUser, apitest.CustomerPass)
	require.NoError(t, err)
	refreshesBefore := f.syncer.Refreshes()

	token, err := f.app.Join(ctx, JoinInput{Services: []string{"Haircut", "Shave"}})
	require.NoError(t, err)
	assert.Equal(t, 101, token)

	queue := f.backend.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, apitest.CustomerName, queue[0].Name)
	assert.Equal(t, 35, queue[0].TotalDuration)

	stored, err := f.store.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 101, stored.Token)
	assert.Equal(t, 101, f.app.Identity().Token)
	assert.Greater(t, f.syncer.Refreshes(), refreshesBefore)
}

func TestApp_JoinValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    JoinInput
		field string
	}{
		{"missing name", JoinInput{Phone: "9876543210", Services: []string{"Haircut"}}, "name"},
		{"short phone", JoinInput{Name: "A", Phone: "98765", Services: []string{"Haircut"}}, "phone"},
		{"letters in phone", JoinInput{Name: "A", Phone: "98765abcde", Services: []string{"Haircut"}}, "phone"},
		{"no services", JoinInput{Name: "A", Phone: "9876543210"}, "services"},
		{"off menu", JoinInput{Name: "A", Phone: "9876543210", Services: []string{"Massage"}}, "services"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.app.Join(context.Background(), tt.in)

			var verr *errs.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, errs.ErrInvalidInput)
			assert.Equal(t, 0, f.backend.Hits("/queue/join"), "no network call on invalid input")
		})
	}
}

func TestApp_JoinNormalizesPhone(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.Join(context.Background(), JoinInput{
		Name:     " Asha ",
		Phone:    "(987) 654-3210",
		Services: []string{"Beard Trim"},
	})
	require.NoError(t, err)

	queue := f.backend.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "Asha", queue[0].Name)
	assert.Equal(t, "9876543210", queue[0].Phone)
}

func TestApp_JoinServerFailureChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.app.Menu(ctx)
	require.NoError(t, err)

	f.backend.SetDown(true)
	_, err = f.app.Join(ctx, JoinInput{Name: "A", Phone: "9876543210", Services: []string{"Haircut"}})
	assert.ErrorIs(t, err, errs.ErrRejected)
	assert.Zero(t, f.app.Identity().Token)

	_, err = f.store.LoadIdentity(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, f.syncer.Refreshes())
}

func TestApp_AddServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.app.AddServices(ctx, []string{"Shave"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput, "no ticket yet")

	_, err = f.app.Join(ctx, JoinInput{Name: "A", Phone: "9876543210", Services: []string{"Haircut"}})
	require.NoError(t, err)

	require.NoError(t, f.app.AddServices(ctx, []string{"Shave"}))
	assert.Equal(t, 35, f.backend.Queue()[0].TotalDuration)

	assert.ErrorIs(t, f.app.AddServices(ctx, []string{"Massage"}), errs.ErrInvalidInput)
}

func TestApp_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.app.Cancel(ctx), errs.ErrInvalidInput)

	token, err := f.app.Join(ctx, JoinInput{Name: "A", Phone: "9876543210", Services: []string{"Haircut"}})
	require.NoError(t, err)

	require.NoError(t, f.app.Cancel(ctx))
	assert.Empty(t, f.backend.Queue())
	assert.Zero(t, f.app.Identity().Token)
	assert.Equal(t, "A", f.app.Identity().Name)

	stored, err := f.store.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Zero(t, stored.Token)

	last := f.syncer.identities[len(f.syncer.identities)-1]
	assert.Zero(t, last.Token)
	assert.NotZero(t, token)
}

func TestApp_CancelRejectedKeepsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token, err := f.app.Join(ctx, JoinInput{Name: "A", Phone: "9876543210", Services: []string{"Haircut"}})
	require.NoError(t, err)

	// the backend refuses the cancel
	f.backend.SetDown(true)
	assert.Error(t, f.app.Cancel(ctx))
	assert.Equal(t, token, f.app.Identity().Token)
}

func TestApp_Logout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.app.Login(ctx, apitest.CustomerUser, apitest.CustomerPass)
	require.NoError(t, err)

	require.NoError(t, f.app.Logout(ctx))
	assert.Equal(t, models.ClientIdentity{}, f.app.Identity())
	_, err = f.store.LoadIdentity(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestApp_MenuCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	salon, err := f.app.Menu(ctx)
	require.NoError(t, err)
	assert.Len(t, salon.Menu, len(apitest.DefaultMenu))

	_, err = f.app.Menu(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.Hits("/salons/"+apitest.DefaultSalonID))
}

func TestApp_WithoutSyncer(t *testing.T) {
	_, server := apitest.Start(t)
	api := queue_api_client.NewQueueApiClient(server.URL)
	app := NewApp(api, identity.NewStore(identity.NewFileStore(t.TempDir())), nil)

	// no salon id: the menu is unknown and only the local shape is checked
	token, err := app.Join(context.Background(), JoinInput{Name: "A", Phone: "9876543210", Services: []string{"Haircut"}})
	require.NoError(t, err)
	assert.Equal(t, 101, token)
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("98765 43210")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", got)

	_, err = NormalizePhone("+91 98765 43210")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}
