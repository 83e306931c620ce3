package auth

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// User is the identity owned by the external auth provider. This package
// only observes it; it never creates or destroys provider-side accounts.
type User struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// State is one auth-state-change event. User is nil when signed out.
type State struct {
	User *User
}

// Bridge reflects sign-in/sign-out transitions into the rest of the app.
// It is the single subscription point: components subscribe here instead
// of each talking to the provider directly.
type Bridge struct {
	fb *FirebaseClient

	mu    sync.Mutex
	creds *Credentials
	subs  []chan State
}

// NewBridge creates a Bridge. Call Resume to pick up a stored session.
func NewBridge(fb *FirebaseClient) *Bridge {
	return &Bridge{fb: fb}
}

// Resume loads stored credentials from disk, if any, and broadcasts the
// resulting state.
func (b *Bridge) Resume() error {
	creds, err := LoadCredentials()
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.creds = creds
	b.mu.Unlock()
	b.broadcast()
	return nil
}

// SignIn authenticates with the provider, persists credentials, and
// notifies subscribers.
func (b *Bridge) SignIn(ctx context.Context, email, password string) (*User, error) {
	creds, err := b.fb.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := SaveCredentials(creds); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.creds = creds
	b.mu.Unlock()
	b.broadcast()
	return b.CurrentUser(), nil
}

// SignUp creates an account, persists credentials, and notifies
// subscribers.
func (b *Bridge) SignUp(ctx context.Context, email, password string) (*User, error) {
	creds, err := b.fb.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := SaveCredentials(creds); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.creds = creds
	b.mu.Unlock()
	b.broadcast()
	return b.CurrentUser(), nil
}

// SignOut clears stored credentials and notifies subscribers.
func (b *Bridge) SignOut() error {
	if err := ClearCredentials(); err != nil {
		return err
	}
	b.mu.Lock()
	b.creds = nil
	b.mu.Unlock()
	b.broadcast()
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (b *Bridge) CurrentUser() *User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.creds == nil || b.creds.UID == "" {
		return nil
	}
	return &User{
		UID:         b.creds.UID,
		Email:       b.creds.Email,
		DisplayName: b.creds.DisplayName,
		PhotoURL:    b.creds.PhotoURL,
	}
}

// UserID returns the signed-in uid, or "anonymous".
func (b *Bridge) UserID() string {
	if u := b.CurrentUser(); u != nil {
		return u.UID
	}
	return "anonymous"
}

// Subscribe returns a channel of auth state changes. The current state is
// delivered immediately. Slow subscribers miss intermediate events rather
// than blocking the bridge.
func (b *Bridge) Subscribe() <-chan State {
	ch := make(chan State, 1)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	cur := b.stateLocked()
	b.mu.Unlock()
	ch <- cur
	return ch
}

func (b *Bridge) stateLocked() State {
	if b.creds == nil || b.creds.UID == "" {
		return State{}
	}
	return State{User: &User{
		UID:         b.creds.UID,
		Email:       b.creds.Email,
		DisplayName: b.creds.DisplayName,
		PhotoURL:    b.creds.PhotoURL,
	}}
}

func (b *Bridge) broadcast() {
	b.mu.Lock()
	state := b.stateLocked()
	subs := make([]chan State, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- state:
		default:
			// Drop the stale event and replace it with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

// Token returns a valid ID token for backend calls, refreshing through
// the provider when the stored one is expired. Returns "" when signed out.
func (b *Bridge) Token(ctx context.Context) (string, error) {
	b.mu.Lock()
	creds := b.creds
	b.mu.Unlock()

	if creds == nil || creds.RefreshToken == "" {
		return "", nil
	}
	if !creds.Expired() {
		return creds.IDToken, nil
	}
	if b.fb == nil {
		return "", fmt.Errorf("token expired and no auth provider configured")
	}

	idToken, refreshToken, expiry, err := b.fb.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refreshing session: %w", err)
	}

	b.mu.Lock()
	b.creds.IDToken = idToken
	b.creds.RefreshToken = refreshToken
	b.creds.TokenExpiry = expiry.Format(time.RFC3339)
	updated := *b.creds
	b.mu.Unlock()

	if err := SaveCredentials(&updated); err != nil {
		log.Printf("auth: persisting refreshed credentials: %v", err)
	}
	return idToken, nil
}
