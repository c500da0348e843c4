package providers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"service-finder/pkg/httpx"
)

// Handler exposes provider HTTP endpoints.
type Handler struct {
	svc       *Service
	loginGate func(http.Handler) http.Handler
}

// NewHandler wires a handler to the provider service. loginGate, when not
// nil, wraps the login endpoint (rate limiting).
func NewHandler(svc *Service, loginGate func(http.Handler) http.Handler) *Handler {
	if loginGate == nil {
		loginGate = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{svc: svc, loginGate: loginGate}
}

// Mount registers the provider routes on r, which is expected to be /api.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/provider/register", h.Register)
	r.With(h.loginGate).Post("/provider/login", h.Login)

	r.Get("/categories", h.ListCategories)
	r.Get("/providers", h.List)
	r.Get("/providers/{id}", h.GetByID)
	r.Post("/providers/{id}/reviews", h.AddReview)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, NewView(p))
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, NewViews(ps))
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, NewView(p))
}

func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.svc.AddReview(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, NewView(p))
}

func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, Categories())
}
