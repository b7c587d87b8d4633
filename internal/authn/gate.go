package authn

import "sync"

// GateState is the top-level session state a client moves through.
type GateState string

const (
	GateLoading         GateState = "loading"
	GateError           GateState = "error"
	GateUnauthenticated GateState = "unauthenticated"
	GateAuthenticated   GateState = "authenticated"
)

// Screen is the view shown while authenticated.
type Screen string

const (
	ScreenBoard   Screen = "board"
	ScreenInvites Screen = "invites"
)

// Gate is the session state machine: it starts loading, resolves to
// error, unauthenticated, or authenticated once the identity check
// completes, and only ever leaves authenticated through a sign-out.
// Error is fatal for the session. The board/invites screen toggle lives
// inside authenticated and never leaves it.
type Gate struct {
	mu     sync.Mutex
	state  GateState
	screen Screen
	err    error
}

func NewGate() *Gate {
	return &Gate{
		state:  GateLoading,
		screen: ScreenBoard,
	}
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) Screen() Screen {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.screen
}

func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Fail moves the gate to the terminal error state. Only the initial
// loading check can fail the session.
func (g *Gate) Fail(err error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateLoading {
		return false
	}
	g.state = GateError
	g.err = err
	return true
}

// Resolve completes the identity check: a present session authenticates,
// an absent one does not.
func (g *Gate) Resolve(hasSession bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateLoading {
		return false
	}
	if hasSession {
		g.state = GateAuthenticated
	} else {
		g.state = GateUnauthenticated
	}
	return true
}

// SignIn moves an unauthenticated session to authenticated.
func (g *Gate) SignIn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateUnauthenticated {
		return false
	}
	g.state = GateAuthenticated
	g.screen = ScreenBoard
	return true
}

// SignOut returns an authenticated session to unauthenticated.
func (g *Gate) SignOut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateAuthenticated {
		return false
	}
	g.state = GateUnauthenticated
	g.screen = ScreenBoard
	return true
}

// ShowScreen toggles between the board and the invite administration
// view; it is only available while authenticated.
func (g *Gate) ShowScreen(screen Screen) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateAuthenticated {
		return false
	}
	if screen != ScreenBoard && screen != ScreenInvites {
		return false
	}
	g.screen = screen
	return true
}
