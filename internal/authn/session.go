package authn

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultSessionCookie = "printdesk_session"
)

// Session is one signed-in client session. Its gate is the live state
// machine deciding what the connected client may do; the session token
// returned at sign-in identifies the user to other services, while the
// session id in the cookie binds the browser to this store.
type Session struct {
	ID        string
	UserID    string
	Gate      *Gate
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore holds active sessions in memory. Sessions do not survive
// a restart; clients simply sign in again.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	store := &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}

	go store.cleanup()

	return store
}

// Create registers a session for a user whose identity check just
// succeeded, so the gate resolves straight to authenticated.
func (s *SessionStore) Create(userID string) *Session {
	gate := NewGate()
	gate.Resolve(true)

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Gate:      gate,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

func (s *SessionStore) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, errors.New("session expired")
	}

	return session, nil
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
}

func (s *SessionStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, session := range s.sessions {
			if now.After(session.ExpiresAt) {
				delete(s.sessions, id)
			}
		}
		s.mu.Unlock()
	}
}

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFrom returns the session the guard stored on the request
// context, or nil outside a guarded route.
func SessionFrom(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}

// Guard protects routes behind a live session. RequireSession rejects
// requests without a valid session cookie; RequireScreen additionally
// moves the session gate onto the screen the route group serves, so a
// session that cannot show that screen cannot reach its routes.
type Guard struct {
	sessions *SessionStore
	config   *apt.Config
	logger   apt.Logger
}

func NewGuard(sessions *SessionStore, config *apt.Config, logger apt.Logger) *Guard {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Guard{
		sessions: sessions,
		config:   config,
		logger:   logger,
	}
}

func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName(g.config))
		if err != nil {
			apt.RespondError(w, http.StatusUnauthorized, "Sign in required")
			return
		}

		session, err := g.sessions.Get(cookie.Value)
		if err != nil {
			apt.RespondError(w, http.StatusUnauthorized, "Sign in required")
			return
		}

		if session.Gate.State() != GateAuthenticated {
			apt.RespondError(w, http.StatusUnauthorized, "Sign in required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) RequireScreen(screen Screen) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFrom(r.Context())
			if session == nil || !session.Gate.ShowScreen(screen) {
				apt.RespondError(w, http.StatusForbidden, "Not available for this session")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionCookieName(config *apt.Config) string {
	if config != nil {
		if name, _ := config.GetString("auth.session.name"); name != "" {
			return name
		}
	}
	return DefaultSessionCookie
}
