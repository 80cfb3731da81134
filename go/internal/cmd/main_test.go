package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/slotsync/go/internal/apitest"
	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/gateway"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/view"
)

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setup(t *testing.T) *apitest.Backend {
	t.Helper()
	backend, server := apitest.Start(t)
	t.Setenv("SLOTSYNC_API_BASE_URL", server.URL)
	t.Setenv("SLOTSYNC_SALON_ID", apitest.DefaultSalonID)
	t.Setenv("SLOTSYNC_IDENTITY_DIR", t.TempDir())
	return backend
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	require.NoError(t, err, "slotsync %s", strings.Join(args, " "))
	return out
}

func TestRun_CustomerFlow(t *testing.T) {
	backend := setup(t)
	backend.Seed("Ahead", "9000000001", "Haircut")

	out := mustRun(t, "login", "-u", apitest.CustomerUser, "-p", apitest.CustomerPass)
	assert.Contains(t, out, apitest.CustomerName)

	out = mustRun(t, "join", "-services", "Haircut, Shave")
	assert.Contains(t, out, "token #102")

	queue := backend.Queue()
	require.Len(t, queue, 2)
	assert.Equal(t, apitest.CustomerPhone, queue[1].Phone)
	assert.Equal(t, 35, queue[1].TotalDuration)

	out = mustRun(t, "status")
	assert.Contains(t, out, "Token #102")
	assert.Contains(t, out, "(you)")
	assert.Contains(t, out, "People ahead")

	mustRun(t, "add-service", "-services", "Beard Trim")
	assert.Equal(t, 45, backend.Queue()[1].TotalDuration)

	out = mustRun(t, "cancel")
	assert.Contains(t, out, "Token #102 cancelled")
	assert.Len(t, backend.Queue(), 1)

	out = mustRun(t, "status")
	assert.Contains(t, out, "1 in queue")
	assert.NotContains(t, out, "(you)")
}

func TestRun_JoinValidation(t *testing.T) {
	backend := setup(t)

	_, err := runCmd(t, "join", "-name", "Asha", "-phone", "12345", "-services", "Haircut")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = runCmd(t, "join", "-name", "Asha", "-phone", "9000000009", "-services", "Massage")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	assert.Zero(t, backend.Hits("/queue/join"))
}

func TestRun_Menu(t *testing.T) {
	setup(t)
	out := mustRun(t, "menu")
	assert.Contains(t, out, "Haircut")
	assert.Contains(t, out, "600.00")
}

func TestRun_AdminFlow(t *testing.T) {
	backend := setup(t)
	t.Setenv("SLOTSYNC_SHOW_HISTORY", "true")
	a := backend.Seed("A", "9000000001", "Haircut")
	b := backend.Seed("B", "9000000002", "Shave")

	_, err := runCmd(t, "admin", "next")
	assert.ErrorIs(t, err, errs.ErrNotAuthenticated)
	assert.Contains(t, describe(err), "not logged in")

	mustRun(t, "admin", "login", "-u", apitest.AdminUsername, "-p", apitest.AdminPassword)
	mustRun(t, "admin", "move", "-token", "102", "-dir", "up")
	assert.Equal(t, b, backend.Queue()[0].Token)

	mustRun(t, "admin", "next")
	assert.Equal(t, a, backend.Queue()[0].Token)

	out := mustRun(t, "admin", "add", "-name", "Walk In", "-phone", "9000000003", "-services", "Shave")
	assert.Contains(t, out, "token #103")

	out = mustRun(t, "admin", "history")
	assert.Contains(t, out, "#102")
	assert.Contains(t, out, "Shave")

	out = mustRun(t, "status")
	assert.Contains(t, out, "Served")

	mustRun(t, "admin", "reset")
	assert.Empty(t, backend.Queue())

	mustRun(t, "admin", "logout")
	_, err = runCmd(t, "admin", "reset")
	assert.ErrorIs(t, err, errs.ErrNotAuthenticated)
}

func TestRun_RedisIdentityStore(t *testing.T) {
	setup(t)
	mr := miniredis.RunT(t)
	t.Setenv("SLOTSYNC_IDENTITY_STORE", "redis")
	t.Setenv("SLOTSYNC_REDIS_ADDR", mr.Addr())
	t.Setenv("SLOTSYNC_DEVICE_ID", "kiosk-1")

	mustRun(t, "login", "-u", apitest.CustomerUser, "-p", apitest.CustomerPass)
	assert.True(t, mr.Exists("slotsync:kiosk-1:slotSync_user"))

	out := mustRun(t, "join", "-services", "Haircut")
	assert.Contains(t, out, "token #101")
}

func TestRun_Usage(t *testing.T) {
	setup(t)

	_, err := runCmd(t)
	assert.ErrorIs(t, err, flag.ErrHelp)

	_, err = runCmd(t, "dance")
	assert.ErrorContains(t, err, `unknown command "dance"`)

	_, err = runCmd(t, "admin", "dance")
	assert.ErrorContains(t, err, "unknown admin command")
}

func TestRun_BadConfig(t *testing.T) {
	setup(t)
	t.Setenv("SLOTSYNC_POLL_INTERVAL_MS", "0")

	_, err := runCmd(t, "status")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestRun_WatchPollsUntilCancelled(t *testing.T) {
	backend := setup(t)
	backend.Seed("A", "9000000001", "Haircut")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"watch", "-quiet"}, &bytes.Buffer{})
	}()

	require.Eventually(t, func() bool { return backend.Hits("/queue/status") >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestRenderLoop(t *testing.T) {
	session := queuesync.NewSession(queuesync.SessionConfig{
		Clock:    clockwork.NewFakeClock(),
		Identity: models.ClientIdentity{Token: 2},
	})
	views := gateway.NewSessionViews(session, view.Capabilities{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- renderLoop(ctx, session, views, out, false) }()

	snap := &models.QueueSnapshot{
		ElapsedSeconds: models.Seconds(5),
		Queue: []models.QueueEntry{
			{Token: 1, Name: "A", TotalDuration: 20},
			{Token: 2, Name: "B", TotalDuration: 20},
		},
	}
	require.Eventually(t, func() bool {
		session.ApplySnapshot(ctx, snap)
		return strings.Contains(out.String(), "19:5")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestFrameKey_IgnoresCountdown(t *testing.T) {
	v := view.View{Mode: view.ModeWaiting, Token: 2, PeopleAhead: 1, QueueLength: 2, Seconds: 1195, Timer: "19:55"}
	ticked := v
	ticked.Seconds, ticked.Timer = 1194, "19:54"
	assert.Equal(t, frameKey(v), frameKey(ticked))

	moved := v
	moved.PeopleAhead = 0
	assert.NotEqual(t, frameKey(v), frameKey(moved))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Haircut", "Beard Trim"}, splitList(" Haircut, ,Beard Trim "))
	assert.Nil(t, splitList(""))
}
