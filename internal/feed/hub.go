// Package feed pushes newly added reviews to websocket subscribers of a
// provider.
package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"service-finder/internal/events"
	"service-finder/pkg/httpx"
	"service-finder/pkg/logger"
)

const writeWait = 10 * time.Second

// conn serialises writes; gorilla/websocket allows one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// ProviderLookup returns nil when the provider exists, or an error carrying
// the status to answer with (an apperr.NotFound for unknown ids).
type ProviderLookup func(ctx context.Context, providerID string) error

// Hub tracks websocket subscribers per provider id.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger
	lookup   ProviderLookup

	mu    sync.RWMutex
	conns map[string][]*conn
}

// NewHub creates a hub accepting upgrades from allowedOrigins ("*" allows any).
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		conns: make(map[string][]*conn),
		log:   logger.Component("feed"),
	}
	h.upgrader.CheckOrigin = originChecker(allowedOrigins)
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// RequireProvider makes HandleWS reject ids that lookup does not accept. It
// must be called before the hub serves requests.
func (h *Hub) RequireProvider(lookup ProviderLookup) {
	h.lookup = lookup
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/providers/{id}", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to a provider's reviews.
// It blocks until the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")
	if h.lookup != nil {
		if err := h.lookup(r.Context(), providerID); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &conn{ws: ws}
	h.add(providerID, c)
	h.log.Debug().Str("provider_id", providerID).Msg("subscriber connected")

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(providerID, c)
	_ = ws.Close()
	h.log.Debug().Str("provider_id", providerID).Msg("subscriber disconnected")
}

// BroadcastReview pushes ev to every subscriber of ev.ProviderID.
func (h *Hub) BroadcastReview(ev events.ReviewAddedEvent) {
	h.mu.RLock()
	conns := append([]*conn(nil), h.conns[ev.ProviderID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(ev); err != nil {
			h.log.Warn().Err(err).Str("provider_id", ev.ProviderID).Msg("websocket write failed")
		}
	}
}

// Subscribers is the number of open connections for providerID.
func (h *Hub) Subscribers(providerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[providerID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conns := range h.conns {
		for _, c := range conns {
			_ = c.ws.Close()
		}
		delete(h.conns, id)
	}
}

func (h *Hub) add(providerID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[providerID] = append(h.conns[providerID], c)
}

func (h *Hub) remove(providerID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[providerID]
	for i, existing := range conns {
		if existing == c {
			h.conns[providerID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[providerID]) == 0 {
		delete(h.conns, providerID)
	}
}
