package invite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/printdesk/printdesk/internal/stream"
	"github.com/printdesk/printdesk/pkg"
)

// ChangeSubscriber nudges connected administration screens whenever the
// invites collection changes. Invites are cheap to list, so there is no
// cached projection: subscribers re-fetch on every tick.
type ChangeSubscriber struct {
	subscriber events.Subscriber
	notifier   *stream.Notifier
	logger     apt.Logger
}

func NewChangeSubscriber(sub events.Subscriber, notifier *stream.Notifier, logger apt.Logger) *ChangeSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &ChangeSubscriber{
		subscriber: sub,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *ChangeSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting invite change subscriber", "topic", pkg.InvitesTopic)
	if s.subscriber == nil {
		return fmt.Errorf("invite change subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, pkg.InvitesTopic, s.handleEvent)
}

func (s *ChangeSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var event pkg.ChangeEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		s.logger.Info("invalid invite change event", "error", err)
		return nil
	}

	s.notifier.Broadcast()
	s.logger.Debug("invite change applied", "code", event.DocumentID, "event_type", event.EventType)
	return nil
}
