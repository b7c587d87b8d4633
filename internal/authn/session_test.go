package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
)

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := NewSessionStore(time.Hour)

	created := store.Create("user-1")
	if created.ID == "" {
		t.Fatal("Create() returned session without id")
	}
	if created.Gate.State() != GateAuthenticated {
		t.Errorf("new session gate state = %s, want %s", created.Gate.State(), GateAuthenticated)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("Get() user = %q, want user-1", got.UserID)
	}

	if _, err := store.Get("nope"); err == nil {
		t.Error("Get() unknown id succeeded, want error")
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(time.Hour)

	session := store.Create("user-1")
	session.ExpiresAt = time.Now().Add(-time.Minute)

	if _, err := store.Get(session.ID); err == nil {
		t.Error("Get() expired session succeeded, want error")
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore(time.Hour)

	session := store.Create("user-1")
	store.Delete(session.ID)

	if _, err := store.Get(session.ID); err == nil {
		t.Error("Get() deleted session succeeded, want error")
	}
}

func TestGuardRequireSession(t *testing.T) {
	store := NewSessionStore(time.Hour)
	guard := NewGuard(store, apt.NewConfig(), nil)

	live := store.Create("user-1")
	signedOut := store.Create("user-2")
	signedOut.Gate.SignOut()

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
	}{
		{
			name:       "noCookie",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknownSession",
			cookie:     "not-a-session",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "signedOutGate",
			cookie:     signedOut.ID,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "liveSession",
			cookie:     live.ID,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sawSession bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				sawSession = SessionFrom(r.Context()) != nil
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/orders/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			guard.RequireSession(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && !sawSession {
				t.Error("guarded handler ran without session in context")
			}
		})
	}
}

func TestGuardRequireScreen(t *testing.T) {
	store := NewSessionStore(time.Hour)
	guard := NewGuard(store, apt.NewConfig(), nil)

	session := store.Create("user-1")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := guard.RequireSession(guard.RequireScreen(ScreenInvites)(next))

	req := httptest.NewRequest(http.MethodGet, "/invites/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: session.ID})
	rec := httptest.NewRecorder()

	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if session.Gate.Screen() != ScreenInvites {
		t.Errorf("gate screen = %s, want %s", session.Gate.Screen(), ScreenInvites)
	}
}

func TestGuardRequireScreenWithoutSession(t *testing.T) {
	guard := NewGuard(NewSessionStore(time.Hour), apt.NewConfig(), nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// RequireScreen applied without RequireSession in front finds no
	// session on the context and refuses.
	req := httptest.NewRequest(http.MethodGet, "/invites/", nil)
	rec := httptest.NewRecorder()

	guard.RequireScreen(ScreenInvites)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAuthHandlerSignOutEndsSession(t *testing.T) {
	store := NewSessionStore(time.Hour)
	handler := NewAuthHandler(nil, nil, store, apt.NewConfig(), nil)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	session := store.Create("user-1")

	req := httptest.NewRequest(http.MethodPost, "/authn/signout", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: session.ID})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if session.Gate.State() != GateUnauthenticated {
		t.Errorf("gate state after signout = %s, want %s", session.Gate.State(), GateUnauthenticated)
	}
	if _, err := store.Get(session.ID); err == nil {
		t.Error("session survived signout")
	}

	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == DefaultSessionCookie && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("signout did not clear the session cookie")
	}
}
