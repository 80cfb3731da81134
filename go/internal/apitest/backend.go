// Package apitest provides an in-memory stand-in for the queue backend so
// client, synchronizer and action tests can run real HTTP round trips.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mcdev12/slotsync/go/internal/models"
)

const (
	DefaultSalonID  = "wise-city"
	AdminUsername   = "owner"
	AdminPassword   = "correct-horse"
	CustomerUser    = "rahul"
	CustomerPass    = "pass123"
	CustomerName    = "Rahul"
	CustomerPhone   = "9876543210"
	sessionTTL      = time.Hour
	firstTicketBase = 100
)

// DefaultMenu mirrors a small salon menu.
var DefaultMenu = []models.MenuService{
	{Name: "Haircut", Minutes: 20, Price: 150},
	{Name: "Shave", Minutes: 15, Price: 80},
	{Name: "Beard Trim", Minutes: 10, Price: 60},
	{Name: "Hair Color", Minutes: 45, Price: 600},
}

type customer struct {
	password string
	name     string
	phone    string
}

// Backend is a fake queue API. All methods are safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	salon          models.Salon
	queue          []models.QueueEntry
	history        []models.HistoryEntry
	lastToken      int
	elapsedSeconds float64
	entryEstimates bool
	customers      map[string]customer
	signKey        []byte
	down           bool
	hits           map[string]int
}

// NewBackend returns a backend with the default salon and one customer account.
func NewBackend() *Backend {
	return &Backend{
		salon: models.Salon{
			ID:   DefaultSalonID,
			Name: "Wise Salon - Wadhwa Wise City",
			Menu: append([]models.MenuService(nil), DefaultMenu...),
		},
		queue:          []models.QueueEntry{},
		lastToken:      firstTicketBase,
		entryEstimates: true,
		customers: map[string]customer{
			CustomerUser: {password: CustomerPass, name: CustomerName, phone: CustomerPhone},
		},
		signKey: []byte("apitest-signing-key"),
		hits:    make(map[string]int),
	}
}

// Start serves the backend on an httptest server closed at test cleanup.
func Start(t testing.TB) (*Backend, *httptest.Server) {
	t.Helper()
	b := NewBackend()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

// Handler returns the HTTP routes of the fake API.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.countHits)

	r.Get("/queue/status", b.handleStatus)
	r.Post("/queue/join", b.handleJoin)
	r.Post("/queue/add-service", b.handleAddService)
	r.Post("/queue/cancel", b.handleCancel)
	r.Post("/auth/login", b.handleLogin)
	r.Get("/salons/{id}", b.handleSalon)
	r.Post("/admin/login", b.handleAdminLogin)

	r.Group(func(r chi.Router) {
		r.Use(b.requireSession)
		r.Post("/queue/next", b.handleNext)
		r.Post("/queue/move", b.handleMove)
		r.Post("/queue/serve-now", b.handleServeNow)
		r.Post("/queue/reset", b.handleReset)
		r.Post("/queue/delete", b.handleDelete)
		r.Get("/queue/history", b.handleHistory)
	})

	return r
}

// SetDown makes every request fail with 503 until cleared.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// SetElapsed sets the seconds already spent on the entry being served.
func (b *Backend) SetElapsed(seconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elapsedSeconds = seconds
}

// SetEntryEstimates toggles per-entry estimated_wait in status responses.
func (b *Backend) SetEntryEstimates(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entryEstimates = on
}

// Seed appends an entry directly, bypassing validation, and returns its token.
func (b *Backend) Seed(name, phone string, services ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appendLocked(name, phone, services)
}

// Queue returns a copy of the current queue.
func (b *Backend) Queue() []models.QueueEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.QueueEntry(nil), b.queue...)
}

// Hits returns how many requests reached the given path.
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *Backend) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		down := b.down
		b.mu.Unlock()

		if down {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			http.Error(w, "missing session", http.StatusUnauthorized)
			return
		}
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return b.signKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			http.Error(w, "invalid session", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) appendLocked(name, phone string, services []string) int {
	b.lastToken++
	b.queue = append(b.queue, models.QueueEntry{
		Token:         b.lastToken,
		Name:          name,
		Phone:         phone,
		Services:      append([]string(nil), services...),
		TotalDuration: b.salon.Duration(services),
		JoinedAt:      time.Now().UTC().Format(time.RFC3339),
		Status:        models.EntryStatusWaiting,
	})
	return b.lastToken
}

func (b *Backend) indexLocked(token int) int {
	for i, e := range b.queue {
		if e.Token == token {
			return i
		}
	}
	return -1
}

func (b *Backend) completeLocked(i int) {
	e := b.queue[i]
	b.queue = append(b.queue[:i], b.queue[i+1:]...)
	b.history = append(b.history, models.HistoryEntry{
		Token:       e.Token,
		Name:        e.Name,
		Phone:       e.Phone,
		Services:    e.Services,
		JoinedAt:    e.JoinedAt,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return false
	}
	return true
}
