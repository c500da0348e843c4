package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"service-finder/pkg/httpx"
)

// Handler exposes user HTTP endpoints.
type Handler struct {
	svc       *Service
	loginGate func(http.Handler) http.Handler
}

// NewHandler wires a handler to the user service.
func NewHandler(svc *Service, loginGate func(http.Handler) http.Handler) *Handler {
	if loginGate == nil {
		loginGate = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{svc: svc, loginGate: loginGate}
}

// Mount registers the user routes on r, which is expected to be /api.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/register", h.Register)
	r.With(h.loginGate).Post("/login", h.Login)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	resp, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
