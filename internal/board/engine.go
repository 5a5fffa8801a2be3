// Package board owns the in-memory Kanban state for one session and keeps it
// synchronized with the deal store. Card moves are optimistic: the board
// mutates immediately and the remote confirmation either keeps the speculative
// state or rolls back to the exact pre-move snapshot.
package board

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/models/dto"
	"github.com/ardev/dealflow-be/internal/notify"
	"github.com/ardev/dealflow-be/internal/storage"
	"github.com/google/uuid"
)

// ErrBusy is returned when a submission of the same action is already in flight.
var ErrBusy = errors.New("action already in flight")

// ErrDealNotFound means the deal was absent from the source column when the
// speculative mutation ran, e.g. a concurrent load replaced the board.
var ErrDealNotFound = errors.New("deal not found in source column")

// ErrUnknownColumn means a move named a column outside the configured pipeline.
var ErrUnknownColumn = errors.New("unknown column")

// ErrInvalidDeal flags a payload that violates the deal invariants.
var ErrInvalidDeal = errors.New("invalid deal payload")

// Action identifies one of the mutating operations for UI state purposes.
type Action string

const (
	ActionMove   Action = "move"
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// State is the tri-state UI signal surfaced per action so the invoking UI can
// disable duplicate submissions.
type State int

const (
	Idle State = iota
	InFlight
	Errored
)

// Engine owns the board for a single authenticated session.
type Engine struct {
	store    storage.DealStore
	notifier notify.Notifier
	userID   string

	mu     sync.Mutex
	board  models.Board
	states map[Action]State
}

// NewEngine creates an engine with an all-empty board for the given owner.
func NewEngine(store storage.DealStore, notifier notify.Notifier, userID string) *Engine {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Engine{
		store:    store,
		notifier: notifier,
		userID:   userID,
		board:    models.EmptyBoard(),
		states:   make(map[Action]State),
	}
}

// Board returns a deep copy of the current board for read-only consumption.
func (e *Engine) Board() models.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.Clone()
}

// ActionState reports the tri-state signal for an action.
func (e *Engine) ActionState(action Action) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[action]
}

// Load replaces the board wholesale with the remote state, bucketing deals into
// columns by status. On failure the board resets to all-empty columns so a
// half-populated board is never shown.
func (e *Engine) Load(ctx context.Context) error {
	deals, err := e.store.ListByOwner(ctx, e.userID)
	if err != nil {
		e.mu.Lock()
		e.board = models.EmptyBoard()
		e.mu.Unlock()
		e.notifier.Error(fmt.Sprintf("Failed to fetch deals: %v", err))
		log.Printf("board: load failed for user %s: %v", e.userID, err)
		return err
	}

	board := models.BucketDeals(deals)
	e.mu.Lock()
	e.board = board
	e.mu.Unlock()
	return nil
}

// Move runs the optimistic move protocol: snapshot, speculative mutation,
// remote confirmation, commit or rollback. Moves of different deals may
// overlap and roll back independently. Two in-flight moves of the same deal are
// not serialized; the later settle wins (last-write-wins, as the UI behaves).
func (e *Engine) Move(ctx context.Context, dealID, fromColumn, toColumn string) error {
	if dealID == "" || fromColumn == toColumn {
		return nil
	}
	if !models.KnownColumn(fromColumn) || !models.KnownColumn(toColumn) {
		return ErrUnknownColumn
	}

	// Snapshot and speculative mutation are a single atomic step: if the deal
	// is no longer in the source column the board is left untouched and no
	// remote call is made.
	e.mu.Lock()
	snapshot := e.board.Clone()
	moved, ok := e.extractAndPrepend(dealID, fromColumn, toColumn)
	if !ok {
		e.mu.Unlock()
		return ErrDealNotFound
	}
	e.states[ActionMove] = InFlight
	e.mu.Unlock()

	dismiss := e.notifier.Loading("Updating deal status...")
	err := e.store.UpdateStatus(ctx, dealID, e.userID, toColumn)
	dismiss()

	if err != nil {
		// Restore the full pre-move board: the snapshot is the only correct
		// prior state when overlapping moves are in flight.
		e.mu.Lock()
		e.board = snapshot
		e.states[ActionMove] = Errored
		e.mu.Unlock()
		e.notifier.Error(fmt.Sprintf("Failed to move deal: %v", err))
		log.Printf("board: move %s -> %s rolled back for deal %s: %v", fromColumn, toColumn, dealID, err)
		return err
	}

	e.mu.Lock()
	e.states[ActionMove] = Idle
	e.mu.Unlock()
	e.notifier.Success(fmt.Sprintf("Deal %q moved to %q.", moved.Title, models.ColumnTitle(toColumn)))
	return nil
}

// extractAndPrepend removes the deal from the source column, restamps its
// status, and inserts it at the head of the target column, matching the
// remote's most-recent-first ordering without waiting for a server timestamp.
// Caller holds e.mu.
func (e *Engine) extractAndPrepend(dealID, fromColumn, toColumn string) (models.Deal, bool) {
	var source, target *models.Column
	for i := range e.board.Columns {
		switch e.board.Columns[i].ID {
		case fromColumn:
			source = &e.board.Columns[i]
		case toColumn:
			target = &e.board.Columns[i]
		}
	}
	if source == nil || target == nil {
		return models.Deal{}, false
	}

	for i, deal := range source.Deals {
		if deal.ID == dealID {
			source.Deals = append(source.Deals[:i], source.Deals[i+1:]...)
			deal.Status = toColumn
			target.Deals = append([]models.Deal{deal}, target.Deals...)
			return deal, true
		}
	}
	return models.Deal{}, false
}

// Add inserts a deal remotely and reloads the board. Not optimistic: adds are
// infrequent and a full reload guarantees consistency.
func (e *Engine) Add(ctx context.Context, payload dto.DealPayload) error {
	if err := validatePayload(payload); err != nil {
		return err
	}
	if err := e.begin(ActionAdd); err != nil {
		return err
	}

	deal := models.Deal{
		ID:          uuid.NewString(),
		UserID:      e.userID,
		Title:       payload.Title,
		Company:     payload.Company,
		ContactName: payload.ContactName,
		Value:       payload.Value,
		Status:      payload.Status,
		Description: payload.Description,
		Tags:        payload.Tags,
	}

	dismiss := e.notifier.Loading("Adding deal...")
	_, err := e.store.Insert(ctx, deal)
	dismiss()
	if err != nil {
		e.finish(ActionAdd, Errored)
		e.notifier.Error(fmt.Sprintf("Failed to add deal: %v", err))
		return err
	}

	e.finish(ActionAdd, Idle)
	e.notifier.Success("Deal added successfully.")
	return e.Load(ctx)
}

// Update sends the full payload remotely, filtered by deal and owner id, then
// reloads.
func (e *Engine) Update(ctx context.Context, dealID string, payload dto.DealPayload) error {
	if err := validatePayload(payload); err != nil {
		return err
	}
	if err := e.begin(ActionUpdate); err != nil {
		return err
	}

	deal := models.Deal{
		ID:          dealID,
		UserID:      e.userID,
		Title:       payload.Title,
		Company:     payload.Company,
		ContactName: payload.ContactName,
		Value:       payload.Value,
		Status:      payload.Status,
		Description: payload.Description,
		Tags:        payload.Tags,
	}

	dismiss := e.notifier.Loading("Updating deal...")
	err := e.store.Update(ctx, dealID, e.userID, deal)
	dismiss()
	if err != nil {
		e.finish(ActionUpdate, Errored)
		e.notifier.Error(fmt.Sprintf("Failed to update deal: %v", err))
		return err
	}

	e.finish(ActionUpdate, Idle)
	e.notifier.Success("Deal updated successfully.")
	return e.Load(ctx)
}

// Delete removes the deal remotely, filtered by deal and owner id, then reloads.
func (e *Engine) Delete(ctx context.Context, dealID string) error {
	if err := e.begin(ActionDelete); err != nil {
		return err
	}

	dismiss := e.notifier.Loading("Deleting deal...")
	err := e.store.Delete(ctx, dealID, e.userID)
	dismiss()
	if err != nil {
		e.finish(ActionDelete, Errored)
		e.notifier.Error(fmt.Sprintf("Failed to delete deal: %v", err))
		return err
	}

	e.finish(ActionDelete, Idle)
	e.notifier.Success("Deal deleted successfully.")
	return e.Load(ctx)
}

// begin claims the action's in-flight slot or reports it busy.
func (e *Engine) begin(action Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states[action] == InFlight {
		return ErrBusy
	}
	e.states[action] = InFlight
	return nil
}

func (e *Engine) finish(action Action, state State) {
	e.mu.Lock()
	e.states[action] = state
	e.mu.Unlock()
}

func validatePayload(payload dto.DealPayload) error {
	if payload.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDeal)
	}
	if payload.Value < 0 {
		return fmt.Errorf("%w: value must be non-negative", ErrInvalidDeal)
	}
	return nil
}
