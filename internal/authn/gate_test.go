package authn

import (
	"errors"
	"testing"
)

func TestGateStartsLoading(t *testing.T) {
	g := NewGate()
	if g.State() != GateLoading {
		t.Errorf("State() = %q, want loading", g.State())
	}
	if g.Screen() != ScreenBoard {
		t.Errorf("Screen() = %q, want board", g.Screen())
	}
}

func TestGateResolve(t *testing.T) {
	tests := []struct {
		name       string
		hasSession bool
		want       GateState
	}{
		{name: "sessionAuthenticates", hasSession: true, want: GateAuthenticated},
		{name: "noSessionDoesNot", hasSession: false, want: GateUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate()
			if !g.Resolve(tt.hasSession) {
				t.Fatal("Resolve() rejected while loading")
			}
			if g.State() != tt.want {
				t.Errorf("State() = %q, want %q", g.State(), tt.want)
			}

			// Resolving is a one-shot transition.
			if g.Resolve(!tt.hasSession) {
				t.Error("Resolve() accepted twice")
			}
		})
	}
}

func TestGateFailIsTerminal(t *testing.T) {
	g := NewGate()
	cause := errors.New("identity check unreachable")

	if !g.Fail(cause) {
		t.Fatal("Fail() rejected while loading")
	}
	if g.State() != GateError {
		t.Errorf("State() = %q, want error", g.State())
	}
	if g.Err() != cause {
		t.Errorf("Err() = %v, want the failure cause", g.Err())
	}

	if g.Resolve(true) {
		t.Error("Resolve() accepted from error state")
	}
	if g.SignIn() {
		t.Error("SignIn() accepted from error state")
	}
	if g.Fail(errors.New("again")) {
		t.Error("Fail() accepted twice")
	}
}

func TestGateSignInSignOut(t *testing.T) {
	g := NewGate()
	g.Resolve(false)

	if !g.SignIn() {
		t.Fatal("SignIn() rejected while unauthenticated")
	}
	if g.State() != GateAuthenticated {
		t.Errorf("State() = %q, want authenticated", g.State())
	}
	if g.SignIn() {
		t.Error("SignIn() accepted while already authenticated")
	}

	if !g.SignOut() {
		t.Fatal("SignOut() rejected while authenticated")
	}
	if g.State() != GateUnauthenticated {
		t.Errorf("State() = %q, want unauthenticated", g.State())
	}
	if g.SignOut() {
		t.Error("SignOut() accepted while already signed out")
	}
}

func TestGateShowScreen(t *testing.T) {
	g := NewGate()
	g.Resolve(false)

	if g.ShowScreen(ScreenInvites) {
		t.Error("ShowScreen() accepted while unauthenticated")
	}

	g.SignIn()
	if !g.ShowScreen(ScreenInvites) {
		t.Fatal("ShowScreen() rejected while authenticated")
	}
	if g.Screen() != ScreenInvites {
		t.Errorf("Screen() = %q, want invites", g.Screen())
	}
	if g.ShowScreen("settings") {
		t.Error("ShowScreen() accepted an unknown screen")
	}

	// Signing out resets the screen for the next session.
	g.SignOut()
	g.SignIn()
	if g.Screen() != ScreenBoard {
		t.Errorf("Screen() after fresh sign-in = %q, want board", g.Screen())
	}
}
