package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/storage"
)

type memoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]models.User)}
}

func (m *memoryUserStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *memoryUserStore) FindByID(ctx context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func testAuthority() (*LocalAuthority, *TokenManager) {
	tokens := NewTokenManager("test-secret", "dealflow-test", time.Hour)
	return NewLocalAuthority(newMemoryUserStore(), tokens), tokens
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", "dealflow-test", time.Hour)
	user := models.User{ID: "u-1", Email: "a@example.com"}

	token, err := tokens.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sub, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sub != "u-1" {
		t.Fatalf("subject = %q", sub)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuing := NewTokenManager("secret-a", "dealflow-test", time.Hour)
	verifying := NewTokenManager("secret-b", "dealflow-test", time.Hour)

	token, err := issuing.Generate(models.User{ID: "u-1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifying.Parse(token); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestRegisterAndLoginPushesChangeEvent(t *testing.T) {
	authority, _ := testAuthority()
	ctx := context.Background()

	var events []Session
	unsubscribe := authority.Subscribe(func(s Session) { events = append(events, s) })
	defer unsubscribe()

	user, err := authority.Register(ctx, "Casey@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "casey@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if len(events) != 0 {
		t.Fatal("register must not push a session change")
	}

	session, err := authority.Login(ctx, "casey@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !session.Valid() {
		t.Fatalf("session invalid: %+v", session)
	}
	if len(events) != 1 || !events[0].Valid() {
		t.Fatalf("expected one sign-in event, got %+v", events)
	}

	if err := authority.SignOut(ctx); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if len(events) != 2 || events[1].Valid() {
		t.Fatalf("expected sign-out event, got %+v", events)
	}
	current, _ := authority.CurrentSession(ctx)
	if current.Valid() {
		t.Fatal("session survived signout")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	authority, _ := testAuthority()
	ctx := context.Background()

	if _, err := authority.Register(ctx, "a@example.com", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := authority.Login(ctx, "a@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := authority.Login(ctx, "nobody@example.com", "whatever!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	authority, _ := testAuthority()
	ctx := context.Background()

	if _, err := authority.Register(ctx, "not-an-email", "long-enough"); err == nil {
		t.Fatal("expected invalid email error")
	}
	if _, err := authority.Register(ctx, "a@example.com", "short"); err == nil {
		t.Fatal("expected short password error")
	}
	if _, err := authority.Register(ctx, "a@example.com", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := authority.Register(ctx, "a@example.com", "correct-horse"); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestResolveToken(t *testing.T) {
	authority, _ := testAuthority()
	ctx := context.Background()

	if _, err := authority.Register(ctx, "a@example.com", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := authority.Login(ctx, "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := authority.ResolveToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != session.User.ID {
		t.Fatalf("resolved %q, want %q", user.ID, session.User.ID)
	}

	if _, err := authority.ResolveToken(ctx, strings.Repeat("x", 32)); err == nil {
		t.Fatal("expected failure for garbage token")
	}
}
