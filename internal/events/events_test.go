package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventRequesterID(t *testing.T) {
	assert.Equal(t, "u-1", Event{Payload: map[string]any{"requester_id": "u-1"}}.RequesterID())
	assert.Equal(t, "", Event{Payload: map[string]any{"requester_id": 42}}.RequesterID())
	assert.Equal(t, "", Event{}.RequesterID())
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), StreamCatalog, Event{Type: EventBulkApplied}))
}
