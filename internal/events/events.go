package events

import "context"

// Stream carrying change-request and bulk events.
const StreamCatalog = "events:catalog"

// Event types
const (
	EventChangeRequestSubmitted = "change_request_submitted"
	EventChangeRequestReviewed  = "change_request_reviewed"
	EventChangeApplied          = "change_applied"
	EventBulkApplied            = "bulk_applied"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// RequesterID returns the requester_id payload field, or "" when absent.
func (e Event) RequesterID() string {
	id, _ := e.Payload["requester_id"].(string)
	return id
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops every event. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
