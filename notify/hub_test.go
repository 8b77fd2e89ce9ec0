package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPushReachesAllUserStreams(t *testing.T) {
	hub := NewHub()

	first, cancelFirst := hub.Subscribe(7)
	second, cancelSecond := hub.Subscribe(7)
	defer cancelFirst()
	defer cancelSecond()
	other, cancelOther := hub.Subscribe(8)
	defer cancelOther()

	hub.Push(7, Event{Name: "unread", Data: 3})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Len(t, other, 0)

	event := <-first
	assert.Equal(t, "unread", event.Name)
	assert.Equal(t, 3, event.Data)
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe(7)
	assert.Equal(t, 1, hub.SubscriberCount(7))

	cancel()
	assert.Equal(t, 0, hub.SubscriberCount(7))

	// Pushing to a user with no streams is a no-op.
	hub.Push(7, Event{Name: "unread", Data: 1})
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.SubscribeBroadcast()
	b, cancelB := hub.SubscribeBroadcast()
	defer cancelA()
	defer cancelB()
	user, cancelUser := hub.Subscribe(7)
	defer cancelUser()

	hub.Broadcast(Event{Name: "report_created"})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Len(t, user, 0)
}

func TestHubSlowConsumerDoesNotBlock(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe(7)
	defer cancel()

	// Overfill the buffer; the surplus must be dropped, not block.
	for i := 0; i < 50; i++ {
		hub.Push(7, Event{Name: "unread", Data: i})
	}
	assert.Equal(t, cap(events), len(events))
}
