package apitest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mcdev12/slotsync/go/internal/models"
)

type statusBody struct {
	SalonName      string              `json:"salon_name"`
	Queue          []models.QueueEntry `json:"queue"`
	PeopleAhead    int                 `json:"people_ahead"`
	SecondsLeft    float64             `json:"seconds_left"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
}

type joinBody struct {
	SalonID  string   `json:"salon_id"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Services []string `json:"services"`
}

type tokenBody struct {
	Token       int      `json:"token"`
	NewServices []string `json:"new_services,omitempty"`
	Direction   string   `json:"direction,omitempty"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := make([]models.QueueEntry, len(b.queue))
	ahead := 0.0
	for i, e := range b.queue {
		e.Services = append([]string(nil), e.Services...)
		if b.entryEstimates {
			wait := 0.0
			if i > 0 {
				wait = ahead - b.elapsedSeconds
			}
			e.EstimatedWait = models.Seconds(wait)
		}
		ahead += float64(e.TotalDuration * 60)
		queue[i] = e
	}

	left := ahead - b.elapsedSeconds
	if left < 0 {
		left = 0
	}
	writeJSON(w, http.StatusOK, statusBody{
		SalonName:      b.salon.Name,
		Queue:          queue,
		PeopleAhead:    len(queue),
		SecondsLeft:    left,
		ElapsedSeconds: b.elapsedSeconds,
	})
}

func (b *Backend) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinBody
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.Phone == "" {
		http.Error(w, "name and phone are required", http.StatusBadRequest)
		return
	}
	if len(req.Services) == 0 {
		http.Error(w, "select at least one service", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range req.Services {
		if _, ok := b.salon.Lookup(s); !ok {
			http.Error(w, "unknown service "+s, http.StatusBadRequest)
			return
		}
	}
	token := b.appendLocked(req.Name, req.Phone, req.Services)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Success", "token": token})
}

func (b *Backend) handleAddService(w http.ResponseWriter, r *http.Request) {
	var req tokenBody
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(req.Token)
	if i < 0 {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}
	e := &b.queue[i]
	for _, s := range req.NewServices {
		if _, ok := b.salon.Lookup(s); !ok {
			http.Error(w, "unknown service "+s, http.StatusBadRequest)
			return
		}
	}
	e.Services = append(e.Services, req.NewServices...)
	e.TotalDuration = b.salon.Duration(e.Services)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Updated"})
}

func (b *Backend) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req tokenBody
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(req.Token)
	if i < 0 {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}
	b.queue = append(b.queue[:i], b.queue[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Cancelled"})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	c, ok := b.customers[req.Username]
	b.mu.Unlock()
	if !ok || c.password != req.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": c.name, "phone": c.phone})
}

func (b *Backend) handleSalon(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if chi.URLParam(r, "id") != b.salon.ID {
		http.Error(w, "salon not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b.salon)
}

func (b *Backend) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	if req.Username != AdminUsername || req.Password != AdminPassword {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	claims := jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.signKey)
	if err != nil {
		http.Error(w, "failed to issue session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": signed})
}

func (b *Backend) handleNext(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Queue is already empty!"})
		return
	}
	b.completeLocked(0)
	b.elapsedSeconds = 0
	writeJSON(w, http.StatusOK, map[string]any{"remaining_people": len(b.queue)})
}

func (b *Backend) handleMove(w http.ResponseWriter, r *http.Request) {
	var req tokenBody
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(req.Token)
	if i < 0 {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}
	j := i
	switch req.Direction {
	case "up":
		j = i - 1
	case "down":
		j = i + 1
	default:
		http.Error(w, "invalid direction", http.StatusBadRequest)
		return
	}
	if j < 0 || j >= len(b.queue) {
		http.Error(w, "cannot move past the end of the queue", http.StatusConflict)
		return
	}
	b.queue[i], b.queue[j] = b.queue[j], b.queue[i]
	writeJSON(w, http.StatusOK, map[string]any{"message": "Moved"})
}

func (b *Backend) handleServeNow(w http.ResponseWriter, r *http.Request) {
	var req tokenBody
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(req.Token)
	if i < 0 {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}
	e := b.queue[i]
	rest := append(b.queue[:i:i], b.queue[i+1:]...)
	b.queue = append([]models.QueueEntry{e}, rest...)
	b.elapsedSeconds = 0
	writeJSON(w, http.StatusOK, map[string]any{"message": "Serving"})
}

func (b *Backend) handleReset(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = []models.QueueEntry{}
	b.elapsedSeconds = 0
	writeJSON(w, http.StatusOK, map[string]any{"message": "Reset"})
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req tokenBody
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(req.Token)
	if i < 0 {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}
	b.queue = append(b.queue[:i], b.queue[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Deleted"})
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]models.HistoryEntry{}, b.history...))
}
