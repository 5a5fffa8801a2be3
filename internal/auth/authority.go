package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/ardev/dealflow-be/internal/models"
	"github.com/ardev/dealflow-be/internal/storage"
	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned when login fails verification.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the authority's view of the current authentication state. A zero
// Session means signed out.
type Session struct {
	Token string
	User  *models.User
}

// Valid reports whether the session carries an authenticated identity.
func (s Session) Valid() bool {
	return s.User != nil && s.Token != ""
}

// ChangeListener receives authority-pushed session transitions: sign-in,
// sign-out, and token refresh all arrive through the same channel.
type ChangeListener func(Session)

// Authority abstracts the identity provider: current session, sign-out, and a
// subscription to pushed session changes.
type Authority interface {
	CurrentSession(ctx context.Context) (Session, error)
	SignOut(ctx context.Context) error
	Subscribe(fn ChangeListener) (unsubscribe func())
}

// LocalAuthority implements Authority against the local user store, issuing
// JWTs on login and pushing change events to subscribers. It tracks the single
// live session of the client it serves.
type LocalAuthority struct {
	users  storage.UserStore
	tokens *TokenManager

	mu        sync.Mutex
	current   Session
	listeners map[int]ChangeListener
	nextID    int
}

var _ Authority = (*LocalAuthority)(nil)

// NewLocalAuthority constructs an authority backed by the given store.
func NewLocalAuthority(users storage.UserStore, tokens *TokenManager) *LocalAuthority {
	return &LocalAuthority{
		users:     users,
		tokens:    tokens,
		listeners: make(map[int]ChangeListener),
	}
}

// Register creates a user account. It does not sign the user in.
func (a *LocalAuthority) Register(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateCredentials(email, password); err != nil {
		return models.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	return a.users.CreateUser(ctx, user)
}

// Login verifies credentials, issues a token, installs the session, and pushes
// a change event to subscribers.
func (a *LocalAuthority) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("fetch user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, err := a.tokens.Generate(user)
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}

	session := Session{Token: token, User: &user}
	a.setSession(session)
	return session, nil
}

// CurrentSession returns the live session, zero when signed out.
func (a *LocalAuthority) CurrentSession(ctx context.Context) (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, nil
}

// SignOut clears the session and pushes a signed-out change event.
func (a *LocalAuthority) SignOut(ctx context.Context) error {
	a.setSession(Session{})
	return nil
}

// Subscribe registers a listener for session changes. The returned function
// removes it.
func (a *LocalAuthority) Subscribe(fn ChangeListener) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// ResolveToken validates a bearer token and loads the user it names.
func (a *LocalAuthority) ResolveToken(ctx context.Context, token string) (models.User, error) {
	userID, err := a.tokens.Parse(token)
	if err != nil {
		return models.User{}, fmt.Errorf("parse token: %w", err)
	}
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("token subject %s has no user row", userID)
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (a *LocalAuthority) setSession(session Session) {
	a.mu.Lock()
	a.current = session
	listeners := make([]ChangeListener, 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("a valid email is required")
	}
	if len(password) < 8 || !utf8.ValidString(password) {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
