// Package auth keeps the demo site's user accounts in memory. Passwords are
// bcrypt hashed; sessions are opaque bearer tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "scandemo/internal/errors"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// User is the public part of an account.
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is returned by a successful login.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

type account struct {
	user User
	hash []byte
}

// Registry is an in-memory account store.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*account
	tokens   map[string]string
	nextID   int
	cost     int
	now      func() time.Time
}

// NewRegistry returns an empty registry. cost is the bcrypt cost; zero uses
// bcrypt.DefaultCost.
func NewRegistry(cost int) *Registry {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Registry{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		cost:     cost,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account.
func (r *Registry) Register(email, password, name string) (User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("invalid email %q: %w", email, apperrors.ErrInvalidRequest)
	}
	if len(password) < MinPasswordLength {
		return User{}, fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, apperrors.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[email]; exists {
		return User{}, fmt.Errorf("email %s is already registered: %w", email, apperrors.ErrInvalidState)
	}
	r.nextID++
	u := User{ID: r.nextID, Email: email, Name: strings.TrimSpace(name), CreatedAt: r.now()}
	r.accounts[email] = &account{user: u, hash: hash}
	return u, nil
}

// Login checks the credentials and opens a session.
func (r *Registry) Login(email, password string) (Session, error) {
	email = normalizeEmail(email)

	r.mu.RLock()
	acct, ok := r.accounts[email]
	r.mu.RUnlock()
	if !ok {
		return Session{}, fmt.Errorf("invalid email or password: %w", apperrors.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return Session{}, fmt.Errorf("invalid email or password: %w", apperrors.ErrUnauthorized)
	}

	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	r.mu.Lock()
	r.tokens[token] = email
	r.mu.Unlock()
	return Session{AccessToken: token, TokenType: "bearer", User: acct.user}, nil
}

// Logout ends a session. Unknown tokens are an error.
func (r *Registry) Logout(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; !ok {
		return fmt.Errorf("unknown session: %w", apperrors.ErrUnauthorized)
	}
	delete(r.tokens, token)
	return nil
}

// UserForToken resolves a bearer token.
func (r *Registry) UserForToken(token string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email, ok := r.tokens[token]
	if !ok {
		return User{}, fmt.Errorf("unknown session: %w", apperrors.ErrUnauthorized)
	}
	return r.accounts[email].user, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
