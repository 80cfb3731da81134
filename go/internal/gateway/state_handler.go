package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/view"
)

// ViewProvider builds views from synchronizer state
type ViewProvider interface {
	CurrentView() view.View
	ViewOf(state queuesync.State) view.View
}

// SessionViews builds views from a live session. The salon menu and history
// are filled in by the caller when they become known.
type SessionViews struct {
	session *queuesync.Session
	caps    view.Capabilities

	mu      sync.RWMutex
	salon   *models.Salon
	history []models.HistoryEntry
}

func NewSessionViews(session *queuesync.Session, caps view.Capabilities) *SessionViews {
	return &SessionViews{session: session, caps: caps}
}

func (p *SessionViews) SetSalon(salon *models.Salon) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.salon = salon
}

func (p *SessionViews) SetHistory(entries []models.HistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = entries
}

func (p *SessionViews) CurrentView() view.View {
	return p.ViewOf(p.session.State())
}

func (p *SessionViews) ViewOf(state queuesync.State) view.View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return view.Build(state, p.caps, p.salon).WithHistory(p.history)
}

// StateHandler serves the current view over plain HTTP
type StateHandler struct {
	views ViewProvider
}

func NewStateHandler(views ViewProvider) *StateHandler {
	return &StateHandler{views: views}
}

// HandleGetView handles GET /api/view
func (h *StateHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(h.views.CurrentView()); err != nil {
		log.Error().Err(err).Msg("failed to encode view response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/view", h.HandleGetView)
}
