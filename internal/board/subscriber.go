package board

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/printdesk/printdesk/internal/stream"
	"github.com/printdesk/printdesk/pkg"
)

// OrderChangeSubscriber keeps the cached projection fresh: every change
// event re-fetches the touched document through the cache and nudges the
// board stream so connected clients re-project. Subscription errors
// degrade to a stale view; nothing retries automatically.
type OrderChangeSubscriber struct {
	subscriber events.Subscriber
	cache      *OrderStateCache
	stream     *stream.Notifier
	logger     apt.Logger
}

func NewOrderChangeSubscriber(sub events.Subscriber, cache *OrderStateCache, logger apt.Logger) *OrderChangeSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OrderChangeSubscriber{
		subscriber: sub,
		cache:      cache,
		logger:     logger,
	}
}

// SetStream wires the broadcast target notified after every applied change.
func (s *OrderChangeSubscriber) SetStream(stream *stream.Notifier) {
	s.stream = stream
}

func (s *OrderChangeSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting order change subscriber", "topic", pkg.OrdersTopic)
	if s.cache != nil {
		if err := s.cache.Warm(ctx); err != nil {
			s.logger.Info("order cache warmup failed", "error", err)
		}
	}
	if s.subscriber == nil {
		return fmt.Errorf("order change subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, pkg.OrdersTopic, s.handleEvent)
}

func (s *OrderChangeSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var event pkg.ChangeEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		s.logger.Info("invalid order change event", "error", err)
		return nil
	}
	if event.DocumentID == "" {
		s.logger.Info("order change event without document id")
		return nil
	}

	if event.EventType == pkg.EventDeleted {
		s.cache.Drop(event.DocumentID)
	} else if err := s.cache.Refresh(ctx, event.DocumentID); err != nil {
		s.logger.Info("cannot refresh order", "order_id", event.DocumentID, "error", err)
		return nil
	}

	if s.stream != nil {
		s.stream.Broadcast()
	}
	s.logger.Debug("order change applied", "order_id", event.DocumentID, "event_type", event.EventType)
	return nil
}
