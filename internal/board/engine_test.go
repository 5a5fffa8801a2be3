package board

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/models/dto"
	"github.com/ardev/dealflow-be/internal/storage"
)

type fakeDealStore struct {
	mu    sync.Mutex
	deals []models.Deal

	listErr         error
	updateStatusErr error
	insertErr       error
	updateErr       error
	deleteErr       error

	listCalls         int
	updateStatusCalls int
}

func (f *fakeDealStore) ListByOwner(ctx context.Context, userID string) ([]models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Deal, 0, len(f.deals))
	for _, d := range f.deals {
		if d.UserID == userID {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (f *fakeDealStore) Insert(ctx context.Context, deal models.Deal) (models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return models.Deal{}, f.insertErr
	}
	deal.CreatedAt = time.Now()
	f.deals = append([]models.Deal{deal}, f.deals...)
	return deal, nil
}

func (f *fakeDealStore) Update(ctx context.Context, dealID, userID string, deal models.Deal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.deals {
		if f.deals[i].ID == dealID && f.deals[i].UserID == userID {
			created := f.deals[i].CreatedAt
			f.deals[i] = deal
			f.deals[i].CreatedAt = created
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeDealStore) UpdateStatus(ctx context.Context, dealID, userID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateStatusCalls++
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	for i := range f.deals {
		if f.deals[i].ID == dealID && f.deals[i].UserID == userID {
			f.deals[i].Status = status
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeDealStore) Delete(ctx context.Context, dealID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.deals {
		if f.deals[i].ID == dealID && f.deals[i].UserID == userID {
			f.deals = append(f.deals[:i], f.deals[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	loadings  int
	dismissed int
}

func (r *recordingNotifier) Loading(message string) func() {
	r.mu.Lock()
	r.loadings++
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.dismissed++
		r.mu.Unlock()
	}
}

func (r *recordingNotifier) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, message)
}

func (r *recordingNotifier) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

const testUser = "user-1"

func seedStore() *fakeDealStore {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	return &fakeDealStore{deals: []models.Deal{
		{ID: "acme-id", UserID: testUser, Title: "Acme", Status: "lead", Value: 5000, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "globex-id", UserID: testUser, Title: "Globex", Status: "lead", Value: 12000, CreatedAt: base.Add(time.Hour)},
		{ID: "initech-id", UserID: testUser, Title: "Initech", Status: "won", Value: 800, CreatedAt: base},
	}}
}

func loadedEngine(t *testing.T, store *fakeDealStore, notifier *recordingNotifier) *Engine {
	t.Helper()
	engine := NewEngine(store, notifier, testUser)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return engine
}

func findColumn(t *testing.T, b models.Board, id string) models.Column {
	t.Helper()
	for _, col := range b.Columns {
		if col.ID == id {
			return col
		}
	}
	t.Fatalf("column %q not found", id)
	return models.Column{}
}

func TestMoveSuccess(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}
	engine := loadedEngine(t, store, notifier)

	if err := engine.Move(context.Background(), "acme-id", "lead", "won"); err != nil {
		t.Fatalf("move: %v", err)
	}

	b := engine.Board()
	lead := findColumn(t, b, "lead")
	won := findColumn(t, b, "won")

	for _, d := range lead.Deals {
		if d.ID == "acme-id" {
			t.Fatal("deal still present in source column")
		}
	}
	if len(won.Deals) == 0 || won.Deals[0].ID != "acme-id" {
		t.Fatalf("deal not at head of target column: %+v", won.Deals)
	}
	if won.Deals[0].Status != "won" {
		t.Fatalf("status = %q, want won", won.Deals[0].Status)
	}

	// Column membership is mutually exclusive.
	seen := map[string]int{}
	for _, col := range b.Columns {
		for _, d := range col.Deals {
			seen[d.ID]++
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("deal %s appears in %d columns", id, count)
		}
	}

	if len(notifier.successes) != 1 || len(notifier.errors) != 0 {
		t.Fatalf("want exactly one success notification, got %d successes %d errors", len(notifier.successes), len(notifier.errors))
	}
	if notifier.successes[0] != `Deal "Acme" moved to "Won".` {
		t.Fatalf("unexpected notification: %q", notifier.successes[0])
	}
}

func TestMoveFailureRollsBackExactly(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}
	engine := loadedEngine(t, store, notifier)

	before := engine.Board()
	store.updateStatusErr = errors.New("network unreachable")

	if err := engine.Move(context.Background(), "acme-id", "lead", "won"); err == nil {
		t.Fatal("expected move error")
	}

	after := engine.Board()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rollback not exact:\nbefore %+v\nafter  %+v", before, after)
	}

	// Acme and Globex are both back in lead, original order.
	lead := findColumn(t, after, "lead")
	if len(lead.Deals) != 2 || lead.Deals[0].Title != "Acme" || lead.Deals[1].Title != "Globex" {
		t.Fatalf("lead column order wrong after rollback: %+v", lead.Deals)
	}

	if len(notifier.errors) != 1 || len(notifier.successes) != 0 {
		t.Fatalf("want exactly one error notification, got %d errors %d successes", len(notifier.errors), len(notifier.successes))
	}
}

func TestMoveSameColumnIsNoOp(t *testing.T) {
	store := seedStore()
	engine := loadedEngine(t, store, &recordingNotifier{})

	before := engine.Board()
	if err := engine.Move(context.Background(), "acme-id", "lead", "lead"); err != nil {
		t.Fatalf("same-column move returned error: %v", err)
	}
	if store.updateStatusCalls != 0 {
		t.Fatalf("remote call issued for same-column move")
	}
	if !reflect.DeepEqual(before, engine.Board()) {
		t.Fatal("board changed on same-column move")
	}
}

func TestMoveAbortsWhenDealMissing(t *testing.T) {
	store := seedStore()
	engine := loadedEngine(t, store, &recordingNotifier{})

	before := engine.Board()
	err := engine.Move(context.Background(), "no-such-deal", "lead", "won")
	if !errors.Is(err, ErrDealNotFound) {
		t.Fatalf("err = %v, want ErrDealNotFound", err)
	}
	if store.updateStatusCalls != 0 {
		t.Fatal("remote call issued after failed locate")
	}
	if !reflect.DeepEqual(before, engine.Board()) {
		t.Fatal("board mutated despite aborted move")
	}
}

func TestMoveRejectsUnknownColumn(t *testing.T) {
	store := seedStore()
	engine := loadedEngine(t, store, &recordingNotifier{})

	if err := engine.Move(context.Background(), "acme-id", "lead", "archived"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("err = %v, want ErrUnknownColumn", err)
	}
	if store.updateStatusCalls != 0 {
		t.Fatal("remote call issued for unknown column")
	}
}

func TestLoadBucketsUnknownStatusIntoFirstColumn(t *testing.T) {
	store := &fakeDealStore{deals: []models.Deal{
		{ID: "d1", UserID: testUser, Title: "Mystery", Status: "limbo"},
	}}
	engine := loadedEngine(t, store, &recordingNotifier{})

	b := engine.Board()
	first := b.Columns[0]
	if len(first.Deals) != 1 || first.Deals[0].ID != "d1" {
		t.Fatalf("unknown-status deal not shown in first column: %+v", first.Deals)
	}
	if first.Deals[0].Status != first.ID {
		t.Fatalf("display status = %q, want %q", first.Deals[0].Status, first.ID)
	}
	// The stored record keeps its original status.
	if store.deals[0].Status != "limbo" {
		t.Fatalf("stored status rewritten to %q", store.deals[0].Status)
	}
}

func TestLoadFailureResetsToEmptyBoard(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}
	engine := loadedEngine(t, store, notifier)

	store.listErr = errors.New("connection refused")
	if err := engine.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}

	b := engine.Board()
	for _, col := range b.Columns {
		if len(col.Deals) != 0 {
			t.Fatalf("column %s not empty after failed load", col.ID)
		}
	}
	if len(notifier.errors) != 1 {
		t.Fatalf("want one error notification, got %d", len(notifier.errors))
	}
}

func TestAddReloadsBoard(t *testing.T) {
	store := seedStore()
	engine := loadedEngine(t, store, &recordingNotifier{})

	listCallsBefore := store.listCalls
	err := engine.Add(context.Background(), dto.DealPayload{Title: "Umbrella", Status: "lead", Value: 100})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if store.listCalls != listCallsBefore+1 {
		t.Fatal("add did not trigger a reload")
	}

	lead := findColumn(t, engine.Board(), "lead")
	if len(lead.Deals) == 0 || lead.Deals[0].Title != "Umbrella" {
		t.Fatalf("new deal not at head of lead after reload: %+v", lead.Deals)
	}
}

func TestAddValidatesPayload(t *testing.T) {
	engine := loadedEngine(t, seedStore(), &recordingNotifier{})

	if err := engine.Add(context.Background(), dto.DealPayload{Status: "lead"}); !errors.Is(err, ErrInvalidDeal) {
		t.Fatalf("missing title: err = %v, want ErrInvalidDeal", err)
	}
	if err := engine.Add(context.Background(), dto.DealPayload{Title: "X", Value: -1}); !errors.Is(err, ErrInvalidDeal) {
		t.Fatalf("negative value: err = %v, want ErrInvalidDeal", err)
	}
}

func TestUpdateAndDeleteReload(t *testing.T) {
	store := seedStore()
	engine := loadedEngine(t, store, &recordingNotifier{})

	err := engine.Update(context.Background(), "globex-id", dto.DealPayload{Title: "Globex Corp", Status: "proposal", Value: 15000})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	proposal := findColumn(t, engine.Board(), "proposal")
	if len(proposal.Deals) != 1 || proposal.Deals[0].Title != "Globex Corp" {
		t.Fatalf("updated deal not in proposal column: %+v", proposal.Deals)
	}

	if err := engine.Delete(context.Background(), "globex-id"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, col := range engine.Board().Columns {
		for _, d := range col.Deals {
			if d.ID == "globex-id" {
				t.Fatal("deleted deal still on board")
			}
		}
	}
}

func TestOverlappingMovesOfDifferentDealsAreIndependent(t *testing.T) {
	store := seedStore()
	engine := loadedEngine(t, store, &recordingNotifier{})

	var wg sync.WaitGroup
	for _, move := range []struct{ id, from, to string }{
		{"acme-id", "lead", "won"},
		{"globex-id", "lead", "contacted"},
	} {
		wg.Add(1)
		go func(id, from, to string) {
			defer wg.Done()
			if err := engine.Move(context.Background(), id, from, to); err != nil {
				t.Errorf("move %s: %v", id, err)
			}
		}(move.id, move.from, move.to)
	}
	wg.Wait()

	b := engine.Board()
	if won := findColumn(t, b, "won"); won.Deals[0].ID != "acme-id" {
		t.Fatalf("acme not in won: %+v", won.Deals)
	}
	if contacted := findColumn(t, b, "contacted"); len(contacted.Deals) != 1 || contacted.Deals[0].ID != "globex-id" {
		t.Fatalf("globex not in contacted: %+v", contacted.Deals)
	}
	if lead := findColumn(t, b, "lead"); len(lead.Deals) != 0 {
		t.Fatalf("lead should be empty: %+v", lead.Deals)
	}
}

func TestNotificationsFireExactlyOncePerMutation(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}
	engine := loadedEngine(t, store, notifier)

	if err := engine.Move(context.Background(), "acme-id", "lead", "contacted"); err != nil {
		t.Fatalf("move: %v", err)
	}
	store.updateStatusErr = errors.New("boom")
	if err := engine.Move(context.Background(), "globex-id", "lead", "won"); err == nil {
		t.Fatal("expected failure")
	}

	if notifier.loadings != notifier.dismissed {
		t.Fatalf("loading indicators not balanced: %d shown, %d dismissed", notifier.loadings, notifier.dismissed)
	}
	if len(notifier.successes)+len(notifier.errors) != 2 {
		t.Fatalf("want exactly one outcome per mutation, got %d successes + %d errors",
			len(notifier.successes), len(notifier.errors))
	}
}
