// Package session tracks the signed-in identity-service session and tells
// subscribers when it changes.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/pkg/observable"
)

// EventType names a session change.
type EventType string

const (
	SignedIn         EventType = "SIGNED_IN"
	SignedOut        EventType = "SIGNED_OUT"
	UserUpdated      EventType = "USER_UPDATED"
	PasswordRecovery EventType = "PASSWORD_RECOVERY"
	TokenRefreshed   EventType = "TOKEN_REFRESHED"
)

// Event is delivered to subscribers after the change has been applied.
// Session is nil for SignedOut.
type Event struct {
	Type    EventType
	Session *models.Session
}

// Refresher exchanges a refresh token for a new session.
type Refresher func(ctx context.Context, refreshToken string) (*models.Session, error)

// Option configures a Manager.
type Option func(*Manager)

// WithRefresher makes the manager renew expired sessions through r.
// Without one an expired session is cleared.
func WithRefresher(r Refresher) Option {
	return func(m *Manager) {
		m.refresher = r
	}
}

// Manager holds the current session. Changes are serialized; listeners run
// after each change and must not change the session themselves.
type Manager struct {
	transition sync.Mutex
	mu         sync.RWMutex
	current    *models.Session
	events     observable.Emitter[Event]
	refresher  Refresher
	now        func() time.Time
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set replaces the current session and notifies subscribers with evt.
func (m *Manager) Set(evt EventType, s models.Session) {
	m.transition.Lock()
	defer m.transition.Unlock()
	m.apply(evt, s)
}

// Clear drops the session. Subscribers hear SignedOut only if one existed.
func (m *Manager) Clear() {
	m.transition.Lock()
	defer m.transition.Unlock()
	m.drop()
}

// Current returns the live session. An expired session is refreshed first;
// if that is not possible it is cleared and Current reports false.
func (m *Manager) Current() (models.Session, bool) {
	return m.CurrentContext(context.Background())
}

// CurrentContext is Current with ctx bounding the refresh call.
func (m *Manager) CurrentContext(ctx context.Context) (models.Session, bool) {
	m.mu.RLock()
	cur := m.current
	expired := cur != nil && cur.Expired(m.now())
	m.mu.RUnlock()

	switch {
	case cur == nil:
		return models.Session{}, false
	case !expired:
		return *cur, true
	}
	return m.renew(ctx)
}

// Authenticated is the boolean gate screens use to decide what is reachable.
func (m *Manager) Authenticated() bool {
	_, ok := m.Current()
	return ok
}

// Subscribe registers fn for session changes. The returned function removes
// it; see package observable for the exact unsubscribe guarantees.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.events.Subscribe(fn)
}

func (m *Manager) renew(ctx context.Context) (models.Session, bool) {
	m.transition.Lock()
	defer m.transition.Unlock()

	// another caller may have renewed or cleared it while we waited
	m.mu.RLock()
	cur := m.current
	m.mu.RUnlock()
	if cur == nil {
		return models.Session{}, false
	}
	if !cur.Expired(m.now()) {
		return *cur, true
	}

	if m.refresher != nil && cur.RefreshToken != "" {
		next, err := m.refresher(ctx, cur.RefreshToken)
		if err == nil && next != nil && next.AccessToken != "" && !next.Expired(m.now()) {
			if next.User.ID == "" {
				next.User = cur.User
			}
			m.apply(TokenRefreshed, *next)
			return *next, true
		}
	}

	m.drop()
	return models.Session{}, false
}

func (m *Manager) apply(evt EventType, s models.Session) {
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()

	snapshot := s
	m.events.Emit(Event{Type: evt, Session: &snapshot})
}

func (m *Manager) drop() {
	m.mu.Lock()
	had := m.current != nil
	m.current = nil
	m.mu.Unlock()

	if had {
		m.events.Emit(Event{Type: SignedOut})
	}
}
