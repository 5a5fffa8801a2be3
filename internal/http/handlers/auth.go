package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ardev/dealflow-be/internal/auth"
	"github.com/ardev/dealflow-be/internal/gate"
	"github.com/ardev/dealflow-be/internal/http/respond"
	"github.com/ardev/dealflow-be/internal/models/dto"
	"github.com/ardev/dealflow-be/internal/session"
	"github.com/ardev/dealflow-be/internal/storage"
)

// AuthHandler owns the session endpoints: register, login, logout, the current
// auth snapshot, entitlement refresh, and route gating decisions.
type AuthHandler struct {
	authority    *auth.LocalAuthority
	bootstrapper *session.Bootstrapper
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authority *auth.LocalAuthority, bootstrapper *session.Bootstrapper) *AuthHandler {
	return &AuthHandler{authority: authority, bootstrapper: bootstrapper}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/session", h.handleSession)
	mux.HandleFunc("/auth/refresh-subscription", h.handleRefreshSubscription)
	mux.HandleFunc("/auth/gate", h.handleGate)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	user, err := h.authority.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "user already exists")
		default:
			log.Printf("register error: %v", err)
			respond.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respond.JSON(w, http.StatusCreated, "user created successfully", user)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	loggedIn, err := h.authority.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Printf("login failed for %s: %v", req.Email, err)
		respond.Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: loggedIn.Token, User: *loggedIn.User})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.bootstrapper.Logout(r.Context()); err != nil {
		log.Printf("logout error: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	respond.JSON(w, http.StatusOK, "logged out successfully", nil)
}

func (h *AuthHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respond.JSON(w, http.StatusOK, "current auth snapshot", h.bootstrapper.Snapshot())
}

func (h *AuthHandler) handleRefreshSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.bootstrapper.RefreshSubscription(r.Context())
	respond.JSON(w, http.StatusOK, "subscription refreshed", h.bootstrapper.Snapshot())
}

// handleGate exposes the pure gating decision for a route requirement, so the
// UI can ask "placeholder, content, or redirect?" for the current snapshot.
func (h *AuthHandler) handleGate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requirement := gate.RequireSession
	if r.URL.Query().Get("require") == "subscription" {
		requirement = gate.RequireSubscription
	}
	decision := gate.Evaluate(h.bootstrapper.Snapshot(), requirement)
	respond.JSON(w, http.StatusOK, "gate decision", map[string]string{
		"kind":   gateKind(decision.Kind),
		"target": decision.Target,
	})
}

func gateKind(kind gate.Kind) string {
	switch kind {
	case gate.RenderContent:
		return "content"
	case gate.Redirect:
		return "redirect"
	default:
		return "placeholder"
	}
}
