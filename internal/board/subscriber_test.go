package board

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/appetiteclub/apt/events"

	"github.com/printdesk/printdesk/internal/stream"
	"github.com/printdesk/printdesk/pkg"
)

// mockSubscriber captures the handler so tests can feed events directly.
type mockSubscriber struct {
	topic   string
	handler events.HandlerFunc
}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	m.topic = topic
	m.handler = handler
	return nil
}

func startSubscriber(t *testing.T, repo *MockOrderRepo) (*mockSubscriber, *OrderStateCache, *stream.Notifier) {
	t.Helper()
	sub := &mockSubscriber{}
	cache := NewOrderStateCache(repo, nil)
	notifier := stream.NewNotifier(nil)

	s := NewOrderChangeSubscriber(sub, cache, nil)
	s.SetStream(notifier)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sub.topic != pkg.OrdersTopic {
		t.Fatalf("subscribed to %q, want %q", sub.topic, pkg.OrdersTopic)
	}
	return sub, cache, notifier
}

func deliver(t *testing.T, sub *mockSubscriber, eventType, id string) {
	t.Helper()
	msg, err := json.Marshal(pkg.NewChangeEvent(eventType, "orders", id))
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := sub.handler(context.Background(), msg); err != nil {
		t.Fatalf("handler error = %v", err)
	}
}

func TestOrderChangeSubscriberRefreshesCache(t *testing.T) {
	repo := NewMockOrderRepo()
	sub, cache, notifier := startSubscriber(t, repo)

	_, ticks := notifier.Subscribe()

	repo.Seed("o1", map[string]any{"clientName": "Acme"})
	deliver(t, sub, pkg.EventCreated, "o1")

	if _, ok := cache.Order("o1"); !ok {
		t.Error("created order not cached")
	}
	select {
	case <-ticks:
	default:
		t.Error("change did not tick the stream")
	}

	repo.Seed("o1", map[string]any{"clientName": "Renamed"})
	deliver(t, sub, pkg.EventUpdated, "o1")
	if o, _ := cache.Order("o1"); o.ClientName != "Renamed" {
		t.Errorf("ClientName = %q, want Renamed", o.ClientName)
	}

	deliver(t, sub, pkg.EventDeleted, "o1")
	if _, ok := cache.Order("o1"); ok {
		t.Error("deleted order still cached")
	}
}

func TestOrderChangeSubscriberWarmsOnStart(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.Seed("o1", map[string]any{"clientName": "Acme"})

	_, cache, _ := startSubscriber(t, repo)

	if _, ok := cache.Order("o1"); !ok {
		t.Error("existing orders should be cached at startup")
	}
}

func TestOrderChangeSubscriberIgnoresMalformedEvents(t *testing.T) {
	repo := NewMockOrderRepo()
	sub, _, _ := startSubscriber(t, repo)

	if err := sub.handler(context.Background(), []byte("not json")); err != nil {
		t.Errorf("malformed event returned error %v, want nil", err)
	}
	if err := sub.handler(context.Background(), []byte(`{"eventType":"updated"}`)); err != nil {
		t.Errorf("event without document id returned error %v, want nil", err)
	}
}
