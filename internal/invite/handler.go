package invite

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/printdesk/printdesk/internal/stream"
)

// Handler exposes the invite administration screen: generate, list,
// revoke, and a live socket that re-sends the invite list whenever the
// collection changes.
type Handler struct {
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
	service  *Service
	notifier *stream.Notifier
	upgrader websocket.Upgrader
	guards   []func(http.Handler) http.Handler
}

// NewHandler builds the invite handler. Guards wrap every invite route,
// the socket upgrade included.
func NewHandler(service *Service, notifier *stream.Notifier, config *apt.Config, logger apt.Logger, guards ...func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
		service:  service,
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		guards: guards,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/invites", func(r chi.Router) {
		r.Use(h.guards...)
		r.Post("/", h.Generate)
		r.Get("/", h.List)
		r.Get("/ws", h.InviteSocket)
		r.Delete("/{code}", h.Revoke)
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Generate")
	defer finish()

	log := h.log(r)

	inv, err := h.service.Generate(r.Context())
	if err != nil {
		log.Error("cannot generate invite", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not generate invite code")
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.List")
	defer finish()

	log := h.log(r)

	invites, err := h.service.List(r.Context())
	if err != nil {
		log.Error("cannot list invites", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list invite codes")
		return
	}

	apt.RespondSuccess(w, invites)
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Revoke")
	defer finish()

	log := h.log(r)
	code := chi.URLParam(r, "code")

	if err := h.service.Revoke(r.Context(), code); err != nil {
		log.Error("cannot revoke invite", "code", code, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not revoke invite code")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type inviteSnapshot struct {
	Type    string    `json:"type"`
	Invites []*Invite `json:"invites"`
}

// InviteSocket pushes the full invite list on connect and again on every
// change event. The administration screen is read-mostly, so unlike the
// board socket there is no per-client session state.
func (h *Handler) InviteSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("cannot upgrade invite connection: %v", err)
		return
	}
	defer conn.Close()

	subID, ticks := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(subID)

	// Reader goroutine only surfaces disconnects.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !h.sendSnapshot(r, conn) {
		return
	}

	for {
		select {
		case <-disconnected:
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			if !h.sendSnapshot(r, conn) {
				return
			}
		}
	}
}

func (h *Handler) sendSnapshot(r *http.Request, conn *websocket.Conn) bool {
	invites, err := h.service.List(r.Context())
	if err != nil {
		h.log(r).Error("cannot list invites for snapshot", "error", err)
		return true
	}

	payload, err := json.Marshal(inviteSnapshot{Type: "snapshot", Invites: invites})
	if err != nil {
		h.log(r).Error("cannot marshal invite snapshot", "error", err)
		return true
	}

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, payload) == nil
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
