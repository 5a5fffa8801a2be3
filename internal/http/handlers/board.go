package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/ardev/dealflow-be/internal/auth"
	"github.com/ardev/dealflow-be/internal/board"
	"github.com/ardev/dealflow-be/internal/http/respond"
	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/models/dto"
	"github.com/ardev/dealflow-be/internal/notify"
	"github.com/ardev/dealflow-be/internal/storage"
)

// BoardHandler exposes the board and deal operations. Each authenticated user
// gets one sync engine, created lazily and reused across requests so optimistic
// state survives between calls.
type BoardHandler struct {
	deals     storage.DealStore
	authority *auth.LocalAuthority
	notifier  notify.Notifier

	mu      sync.Mutex
	engines map[string]*board.Engine
}

// NewBoardHandler constructs the handler.
func NewBoardHandler(deals storage.DealStore, authority *auth.LocalAuthority, notifier notify.Notifier) *BoardHandler {
	return &BoardHandler{
		deals:     deals,
		authority: authority,
		notifier:  notifier,
		engines:   make(map[string]*board.Engine),
	}
}

// Register attaches board and deal routes to the mux.
func (h *BoardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/board", h.handleBoard)
	mux.HandleFunc("/board/move", h.handleMove)
	mux.HandleFunc("/deals", h.handleDeals)
	mux.HandleFunc("/deals/", h.handleDealByID)
}

// engineFor returns the caller's engine, authenticating the bearer token first.
func (h *BoardHandler) engineFor(w http.ResponseWriter, r *http.Request) (*board.Engine, bool) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	engine, ok := h.engines[user.ID]
	if !ok {
		engine = board.NewEngine(h.deals, h.notifier, user.ID)
		h.engines[user.ID] = engine
	}
	return engine, true
}

func (h *BoardHandler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		respond.Error(w, http.StatusUnauthorized, "bearer token required")
		return models.User{}, false
	}
	user, err := h.authority.ResolveToken(r.Context(), strings.TrimSpace(token))
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return models.User{}, false
	}
	return user, true
}

func (h *BoardHandler) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	if err := engine.Load(r.Context()); err != nil {
		respond.Error(w, http.StatusBadGateway, "failed to fetch deals")
		return
	}
	respond.JSON(w, http.StatusOK, "board loaded", engine.Board())
}

func (h *BoardHandler) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req dto.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := engine.Move(r.Context(), req.DealID, req.FromColumn, req.ToColumn); err != nil {
		switch {
		case errors.Is(err, board.ErrUnknownColumn), errors.Is(err, board.ErrDealNotFound):
			respond.Error(w, http.StatusConflict, err.Error())
		default:
			respond.Error(w, http.StatusBadGateway, "failed to move deal")
		}
		return
	}
	respond.JSON(w, http.StatusOK, "deal moved", engine.Board())
}

func (h *BoardHandler) handleDeals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var payload dto.DealPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := engine.Add(r.Context(), payload); err != nil {
		writeEngineError(w, err, "failed to add deal")
		return
	}
	respond.JSON(w, http.StatusCreated, "deal added", engine.Board())
}

func (h *BoardHandler) handleDealByID(w http.ResponseWriter, r *http.Request) {
	dealID := strings.TrimPrefix(r.URL.Path, "/deals/")
	if dealID == "" || strings.Contains(dealID, "/") {
		respond.Error(w, http.StatusNotFound, "deal not found")
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var payload dto.DealPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if err := engine.Update(r.Context(), dealID, payload); err != nil {
			writeEngineError(w, err, "failed to update deal")
			return
		}
		respond.JSON(w, http.StatusOK, "deal updated", engine.Board())

	case http.MethodDelete:
		if err := engine.Delete(r.Context(), dealID); err != nil {
			writeEngineError(w, err, "failed to delete deal")
			return
		}
		respond.JSON(w, http.StatusOK, "deal deleted", engine.Board())

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, board.ErrBusy):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, board.ErrInvalidDeal):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "deal not found")
	default:
		respond.Error(w, http.StatusBadGateway, fallback)
	}
}
