// Package session exposes the token introspection and logout endpoints.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"service-finder/pkg/apperr"
	"service-finder/pkg/httpx"
	"service-finder/pkg/jwt"
)

// Revocations is a denylist of token ids.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocations keeps revoked ids until their tokens would have expired.
type MemoryRevocations struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{expires: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, id)
		}
	}
	m.expires[tokenID] = now.Add(ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[tokenID]
	return ok && m.now().Before(exp), nil
}

// Info describes the caller's session.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Handler struct {
	revs Revocations
}

func NewHandler(revs Revocations) *Handler {
	return &Handler{revs: revs}
}

// Mount registers GET /session and POST /logout on r.
func (h *Handler) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/session", h.Session)
		r.Post("/logout", h.Logout)
	})
}

// RequireAuth rejects requests whose claims are missing or revoked. It expects
// jwt.OptionalAuth to have run first.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := jwt.GetClaims(r.Context())
		if claims == nil {
			httpx.WriteError(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		revoked, err := h.revs.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			httpx.WriteError(w, r, apperr.Internal("check revocation", err))
			return
		}
		if revoked {
			httpx.WriteError(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	c := jwt.GetClaims(r.Context())
	info := Info{ID: c.AccountID, Name: c.Name, Email: c.Email, Role: c.Role}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	c := jwt.GetClaims(r.Context())
	if err := h.revs.Revoke(r.Context(), c.ID, c.TTL(time.Now())); err != nil {
		httpx.WriteError(w, r, apperr.Internal("revoke token", err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
