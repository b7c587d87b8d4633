package pkg

import "time"

const (
	OrdersTopic  = "printdesk.orders.changed"
	InvitesTopic = "printdesk.invites.changed"

	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ChangeEvent is published whenever a document in one of the tracked
// collections is written. Subscribers re-fetch the document by ID rather
// than trusting any payload carried here, so concurrent writers converge
// on whatever the store holds.
type ChangeEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
}

func NewChangeEvent(eventType, collection, documentID string) ChangeEvent {
	return ChangeEvent{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Collection: collection,
		DocumentID: documentID,
	}
}
