package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	require.NoError(t, hub.Publish(context.Background(), Event{
		Type:    EventPostCreated,
		Payload: PostCreatedPayload{PostID: 3, UserID: 1, Username: "alice", Title: "Hi"},
	}))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			assert.JSONEq(t, `{"type":"post_created","payload":{"post_id":3,"user_id":1,"username":"alice","title":"Hi"}}`, string(msg))
		default:
			t.Fatalf("client %d received nothing", c.UserID)
		}
	}
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.Equal(t, 0, hub.Count())

	_, open := <-c.Send
	assert.False(t, open)

	// sending to a closed client is recovered, not a panic
	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(9, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(9, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(10, nil)
	assert.NoError(t, err)
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Count())

	_, err = hub.Register(2, nil)
	assert.ErrorIs(t, err, ErrHubShutdown)

	hub.UnregisterClient(c)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	c.TrySend([]byte("overflow"))

	assert.Len(t, c.Send, sendBuffer)
	for i := 0; i < sendBuffer; i++ {
		assert.Equal(t, "x", string(<-c.Send))
	}
}
