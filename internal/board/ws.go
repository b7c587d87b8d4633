package board

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/gorilla/websocket"

	"github.com/printdesk/printdesk/internal/stream"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// clientMessage is one interaction from a connected board.
type clientMessage struct {
	Action     string          `json:"action"`
	OrderID    string          `json:"orderId,omitempty"`
	Field      string          `json:"field,omitempty"`
	Value      string          `json:"value,omitempty"`
	Stage      string          `json:"stage,omitempty"`
	Technology string          `json:"technology,omitempty"`
	Column     string          `json:"column,omitempty"`
	Term       string          `json:"term,omitempty"`
	Order      json.RawMessage `json:"order,omitempty"`
}

type serverMessage struct {
	Type    string    `json:"type"`
	Orders  []*Order  `json:"orders,omitempty"`
	Search  string    `json:"search,omitempty"`
	Sort    SortState `json:"sort"`
	Message string    `json:"message,omitempty"`
}

// BoardHub upgrades board connections and owns the shared collaborators
// every client session needs.
type BoardHub struct {
	cache    *OrderStateCache
	stream   *stream.Notifier
	actions  *Actions
	logger   apt.Logger
	upgrader websocket.Upgrader
}

func NewBoardHub(cache *OrderStateCache, stream *stream.Notifier, actions *Actions, logger apt.Logger) *BoardHub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BoardHub{
		cache:   cache,
		stream:  stream,
		actions: actions,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeWS upgrades the connection and runs one board client session. The
// session holds this client's search term, sort state, and edit session;
// every change event and every local interaction pushes a freshly
// projected snapshot back down.
func (h *BoardHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("cannot upgrade board connection: %v", err)
		return
	}

	subID, ticks := h.stream.Subscribe()
	client := &boardClient{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 16),
		session: NewEditSession(h.actions, h.logger),
		sort:    DefaultSort(),
		subID:   subID,
		ticks:   ticks,
		done:    make(chan struct{}),
	}

	go client.writePump()
	client.pushSnapshot()
	client.readPump(r.Context())
}

type boardClient struct {
	hub   *BoardHub
	conn  *websocket.Conn
	send  chan []byte
	subID string
	ticks <-chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	session *EditSession
	search  string
	sort    SortState
}

func (c *boardClient) readPump(ctx context.Context) {
	defer func() {
		c.hub.stream.Unsubscribe(c.subID)
		close(c.done)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("board client read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug("invalid board message", "error", err)
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *boardClient) handle(ctx context.Context, msg clientMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "search":
		c.search = msg.Term
	case "sort":
		c.sort = c.sort.Toggle(SortColumn(msg.Column))
	case "begin":
		c.session.Begin(msg.OrderID, msg.Field, msg.Value)
	case "scratch":
		c.session.SetScratch(msg.Value)
		return
	case "commit":
		c.session.Commit(ctx)
	case "blur":
		c.session.Blur(ctx)
	case "cancel":
		c.session.Cancel()
	case "stage":
		stage, ok := ParseStage(msg.Stage)
		if !ok {
			return
		}
		if err := c.hub.actions.SetStage(ctx, msg.OrderID, stage); err != nil {
			c.hub.logger.Errorf("cannot set stage for order %s: %v", msg.OrderID, err)
		}
	case "urgency":
		if err := c.hub.actions.ToggleUrgency(ctx, msg.OrderID); err != nil {
			c.hub.logger.Errorf("cannot toggle urgency for order %s: %v", msg.OrderID, err)
		}
	case "technology":
		if err := c.hub.actions.ToggleTechnology(ctx, msg.OrderID, Technology(msg.Technology)); err != nil {
			c.hub.logger.Errorf("cannot toggle technology for order %s: %v", msg.OrderID, err)
		}
	case "create":
		var req CreateOrderRequest
		if err := json.Unmarshal(msg.Order, &req); err != nil {
			c.notice("Order could not be created")
			return
		}
		if _, err := c.hub.actions.CreateOrder(ctx, req); err != nil {
			c.hub.logger.Errorf("cannot create order: %v", err)
			c.notice("Order could not be created")
		}
	case "delete":
		order, ok := c.hub.cache.Order(msg.OrderID)
		if !ok {
			return
		}
		id := order.ID
		requested := c.session.RequestConfirmation(
			fmt.Sprintf("Delete order %s for %s?", order.OrderNumber, order.ClientName),
			func(ctx context.Context) error {
				return c.hub.actions.DeleteOrder(ctx, id)
			},
		)
		if requested {
			c.prompt(c.session.Pending().Message)
		}
		return
	case "confirm":
		if err := c.session.Confirm(ctx); err != nil {
			c.hub.logger.Errorf("confirmed action failed: %v", err)
			c.notice("Order could not be deleted")
		}
	case "dismiss":
		c.session.Dismiss()
	default:
		c.hub.logger.Debug("unknown board action", "action", msg.Action)
		return
	}

	c.pushSnapshotLocked()
}

// pushSnapshot projects the cached order set through this client's
// search and sort state and enqueues it.
func (c *boardClient) pushSnapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushSnapshotLocked()
}

func (c *boardClient) pushSnapshotLocked() {
	orders := Project(c.hub.cache.Snapshot(), c.search, c.sort)
	c.enqueue(serverMessage{Type: "snapshot", Orders: orders, Search: c.search, Sort: c.sort})
}

func (c *boardClient) notice(message string) {
	c.enqueue(serverMessage{Type: "notice", Message: message})
}

func (c *boardClient) prompt(message string) {
	c.enqueue(serverMessage{Type: "confirm", Message: message})
}

func (c *boardClient) enqueue(msg serverMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Errorf("cannot marshal board message: %v", err)
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.logger.Debug("board client send buffer full, dropping message")
	}
}

func (c *boardClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case _, ok := <-c.ticks:
			if !ok {
				return
			}
			c.pushSnapshot()
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
