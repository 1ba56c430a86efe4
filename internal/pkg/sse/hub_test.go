package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishesToTopicSubscribers(t *testing.T) {
	h := NewHub()

	a, cleanupA := h.Subscribe("sync")
	b, cleanupB := h.Subscribe("sync")
	other, cleanupOther := h.Subscribe("other")
	defer cleanupOther()

	require.Equal(t, 2, h.SubscriberCount("sync"))

	h.Publish(Event{Topic: "sync", Event: "sync.started", Data: "sync-1"})

	assert.Equal(t, "sync.started", (<-a).Event)
	assert.Equal(t, "sync-1", (<-b).Data)
	assert.Empty(t, other)

	cleanupA()
	cleanupA()
	assert.Equal(t, 1, h.SubscriberCount("sync"))
	_, open := <-a
	assert.False(t, open)

	cleanupB()
	assert.Zero(t, h.SubscriberCount("sync"))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("sync")
	defer cleanup()

	for i := 0; i < h.buffer+5; i++ {
		h.Publish(Event{Topic: "sync", Event: "tick"})
	}
	assert.Len(t, ch, h.buffer)
}

func TestNilHubPublish(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() { h.Publish(Event{Topic: "sync"}) })
}
