package authn

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
)

const AuthMaxBodyBytes = 1 << 20

// SignUpRequest represents the registration payload. Registration
// requires a valid single-use invite code.
type SignUpRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode"`
}

// SignInRequest represents the signin payload.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents a successful authentication response.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token,omitempty"`
}

type AuthHandler struct {
	repo     UserRepo
	invites  InviteConsumer
	sessions *SessionStore
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
}

func NewAuthHandler(repo UserRepo, invites InviteConsumer, sessions *SessionStore, config *apt.Config, logger apt.Logger) *AuthHandler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &AuthHandler{
		repo:     repo,
		invites:  invites,
		sessions: sessions,
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
	}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/authn", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.Post("/signout", h.SignOut)
	})
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AuthHandler.SignUp")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req SignUpRequest
	if !h.decode(w, r, &req, log) {
		return
	}

	user, token, err := SignUpUser(ctx, h.repo, h.invites, h.config, req.Email, req.Password, req.InviteCode)
	if err != nil {
		h.respondIdentityError(w, log, err, "Could not create account")
		return
	}

	h.startSession(w, user)

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, AuthResponse{User: user, Token: token})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AuthHandler.SignIn")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req SignInRequest
	if !h.decode(w, r, &req, log) {
		return
	}

	user, token, err := SignInUser(ctx, h.repo, h.config, req.Email, req.Password)
	if err != nil {
		h.respondIdentityError(w, log, err, "Authentication failed")
		return
	}

	h.startSession(w, user)

	apt.RespondSuccess(w, AuthResponse{User: user, Token: token})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AuthHandler.SignOut")
	defer finish()

	log := h.log(r)

	h.endSession(w, r)

	log.Debug("user signed out")
	w.WriteHeader(http.StatusNoContent)
}

// startSession opens a server-side session and hands the browser its id
// in a cookie. The guard on the board and invite routes checks that
// cookie against the store.
func (h *AuthHandler) startSession(w http.ResponseWriter, user *User) {
	if h.sessions == nil {
		return
	}

	session := h.sessions.Create(user.ID.String())
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName(h.config),
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) endSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		return
	}

	name := sessionCookieName(h.config)
	if cookie, err := r.Cookie(name); err == nil {
		if session, err := h.sessions.Get(cookie.Value); err == nil {
			session.Gate.SignOut()
		}
		h.sessions.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// respondIdentityError maps the identity error taxonomy onto stable
// user-facing messages. None of these crash the session.
func (h *AuthHandler) respondIdentityError(w http.ResponseWriter, log apt.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		log.Debug("invalid email")
		apt.RespondError(w, http.StatusBadRequest, "Enter a valid email address")
	case errors.Is(err, ErrWeakPassword):
		log.Debug("weak password")
		apt.RespondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
	case errors.Is(err, ErrEmailTaken):
		log.Debug("email already registered")
		apt.RespondError(w, http.StatusConflict, "Email is already registered")
	case errors.Is(err, ErrInvalidInvite):
		log.Debug("invalid invite code")
		apt.RespondError(w, http.StatusForbidden, "Invite code is invalid or already used")
	case errors.Is(err, ErrUnknownUser):
		log.Debug("unknown user")
		apt.RespondError(w, http.StatusUnauthorized, "No account found for this email")
	case errors.Is(err, ErrWrongPassword):
		log.Debug("wrong password")
		apt.RespondError(w, http.StatusUnauthorized, "Wrong password")
	default:
		log.Error("identity operation failed", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, out any, log apt.Logger) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, AuthMaxBodyBytes))
	if err != nil {
		log.Debug("cannot read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Cannot read request body")
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Debug("cannot decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *AuthHandler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
