package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hongminglow/papertrade/internal/auth"
	"github.com/hongminglow/papertrade/internal/http/respond"
	"github.com/hongminglow/papertrade/internal/logging"
	"github.com/hongminglow/papertrade/internal/models/dto"
	"github.com/hongminglow/papertrade/internal/view"
)

// AuthHandler owns the register, login and logout pages.
type AuthHandler struct {
	auth     *auth.Service
	sessions *auth.Sessions
	view     *view.Renderer
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *auth.Service, sessions *auth.Sessions, renderer *view.Renderer) *AuthHandler {
	return &AuthHandler{auth: svc, sessions: sessions, view: renderer}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Get("/register", h.handleRegisterForm)
	r.Post("/register", h.handleRegister)
	r.Get("/login", h.handleLoginForm)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
}

func (h *AuthHandler) handleRegisterForm(w http.ResponseWriter, _ *http.Request) {
	h.view.Render(w, http.StatusOK, "register", view.Page{})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Register(r.Context(), dto.ParseRegisterForm(r))
	if err != nil {
		apologize(w, r, h.view, false, registerErrors, err)
		return
	}
	logging.FromContext(r.Context()).WithField("user_id", user.ID).Info("user registered")

	if err := h.sessions.Forget(r); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("forget previous session")
	}
	if _, err := h.sessions.Start(r.Context(), w, user.ID); err != nil {
		apologize(w, r, h.view, false, nil, err)
		return
	}
	respond.Redirect(w, r, "/")
}

func (h *AuthHandler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	h.view.Render(w, http.StatusOK, "login", view.Page{})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Forget(r); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("forget previous session")
	}
	user, err := h.auth.Authenticate(r.Context(), dto.ParseLoginForm(r))
	if err != nil {
		h.endSession(w, r)
		apologize(w, r, h.view, false, loginErrors, err)
		return
	}
	if _, err := h.sessions.Start(r.Context(), w, user.ID); err != nil {
		apologize(w, r, h.view, false, nil, err)
		return
	}
	respond.Redirect(w, r, "/")
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	respond.Redirect(w, r, "/")
}

func (h *AuthHandler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(w, r); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("end session")
	}
}
