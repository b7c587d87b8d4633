package board

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 20

// Handler exposes the board over HTTP: the creation form, the one-shot
// actions, and the live board socket. Listing applies the same
// projection the socket uses, driven by query parameters.
type Handler struct {
	logger  apt.Logger
	config  *apt.Config
	tlm     *telemetry.HTTP
	cache   *OrderStateCache
	actions *Actions
	hub     *BoardHub
	guards  []func(http.Handler) http.Handler
}

type HandlerDeps struct {
	Cache   *OrderStateCache
	Actions *Actions
	Hub     *BoardHub

	// Guards wrap every board route, the socket upgrade included.
	Guards []func(http.Handler) http.Handler
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:  logger,
		config:  config,
		tlm:     telemetry.NewHTTP(),
		cache:   hd.Cache,
		actions: hd.Actions,
		hub:     hd.Hub,
		guards:  hd.Guards,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(h.guards...)
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/ws", h.BoardSocket)
		r.Delete("/{id}", h.DeleteOrder)
		r.Patch("/{id}", h.UpdateOrderField)
		r.Patch("/{id}/stage", h.SetStage)
		r.Patch("/{id}/urgency", h.ToggleUrgency)
		r.Patch("/{id}/technology", h.ToggleTechnology)
	})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)

	var req CreateOrderRequest
	if !h.decode(w, r, &req, log) {
		return
	}

	order, err := h.actions.CreateOrder(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidOrder) {
			log.Debug("invalid create order request", "error", err)
			apt.RespondError(w, http.StatusBadRequest, "Order number, client name, at least one technology and a valid delivery date are required")
			return
		}
		log.Error("cannot create order", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not create order")
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	sortState := DefaultSort()
	if column := r.URL.Query().Get("sort"); column != "" {
		sortState.Column = SortColumn(column)
	}
	if asc := r.URL.Query().Get("asc"); asc != "" {
		sortState.Ascending, _ = strconv.ParseBool(asc)
	}

	orders := Project(h.cache.Snapshot(), r.URL.Query().Get("q"), sortState)
	apt.RespondSuccess(w, orders)
}

func (h *Handler) BoardSocket(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteOrder")
	defer finish()

	log := h.log(r)
	id := chi.URLParam(r, "id")

	if _, ok := h.cache.Order(id); !ok {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	if err := h.actions.DeleteOrder(r.Context(), id); err != nil {
		log.Error("cannot delete order", "order_id", id, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *Handler) UpdateOrderField(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderField")
	defer finish()

	log := h.log(r)
	id := chi.URLParam(r, "id")

	var req updateFieldRequest
	if !h.decode(w, r, &req, log) {
		return
	}

	if !EditableField(req.Field) {
		apt.RespondError(w, http.StatusBadRequest, "Field is not editable")
		return
	}

	if err := h.actions.UpdateField(r.Context(), id, req.Field, req.Value); err != nil {
		log.Error("cannot update order field", "order_id", id, "field", req.Field, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setStageRequest struct {
	Stage string `json:"stage"`
}

func (h *Handler) SetStage(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetStage")
	defer finish()

	log := h.log(r)
	id := chi.URLParam(r, "id")

	var req setStageRequest
	if !h.decode(w, r, &req, log) {
		return
	}

	stage, ok := ParseStage(req.Stage)
	if !ok {
		apt.RespondError(w, http.StatusBadRequest, "Unknown stage")
		return
	}

	if err := h.actions.SetStage(r.Context(), id, stage); err != nil {
		log.Error("cannot set order stage", "order_id", id, "stage", req.Stage, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleUrgency(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ToggleUrgency")
	defer finish()

	log := h.log(r)
	id := chi.URLParam(r, "id")

	if err := h.actions.ToggleUrgency(r.Context(), id); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			apt.RespondError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error("cannot toggle urgency", "order_id", id, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type toggleTechnologyRequest struct {
	Technology string `json:"technology"`
}

func (h *Handler) ToggleTechnology(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ToggleTechnology")
	defer finish()

	log := h.log(r)
	id := chi.URLParam(r, "id")

	var req toggleTechnologyRequest
	if !h.decode(w, r, &req, log) {
		return
	}

	if err := h.actions.ToggleTechnology(r.Context(), id, Technology(req.Technology)); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			apt.RespondError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, ErrInvalidTech):
			apt.RespondError(w, http.StatusBadRequest, "Unknown technology")
		default:
			log.Error("cannot toggle technology", "order_id", id, "error", err)
			apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, out any, log apt.Logger) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
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

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
