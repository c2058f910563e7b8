package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{Send: make(chan []byte, 4)}
}

func TestPublishFansOut(t *testing.T) {
	hub := NewQueueHub()
	a := newTestClient()
	b := newTestClient()
	hub.Register(a)
	hub.Register(b)
	require.Equal(t, 2, hub.ClientCount())

	hub.Publish(map[string]int{"total": 3})

	for _, c := range []*Client{a, b} {
		var msg struct {
			Type  string          `json:"type"`
			Queue json.RawMessage `json:"queue"`
		}
		require.NoError(t, json.Unmarshal(<-c.Send, &msg))
		assert.Equal(t, "queue", msg.Type)
		assert.JSONEq(t, `{"total":3}`, string(msg.Queue))
	}
}

func TestRegisterReplaysLastSnapshot(t *testing.T) {
	hub := NewQueueHub()
	hub.Publish(map[string]int{"total": 1})

	late := newTestClient()
	hub.Register(late)

	select {
	case data := <-late.Send:
		assert.Contains(t, string(data), `"total":1`)
	default:
		t.Fatal("late subscriber got no snapshot replay")
	}
}

func TestSlowClientDoesNotBlockPublish(t *testing.T) {
	hub := NewQueueHub()
	slow := &Client{Send: make(chan []byte)} // unbuffered, nobody reading
	hub.Register(slow)

	done := make(chan struct{})
	go func() {
		hub.Publish(map[string]int{"total": 2})
		close(done)
	}()
	<-done
}

func TestPublishRacesClose(t *testing.T) {
	// clients disconnecting mid-broadcast must drop the message, not panic
	// the publisher
	for i := 0; i < 50; i++ {
		hub := NewQueueHub()
		clients := make([]*Client, 8)
		for j := range clients {
			clients[j] = newTestClient()
			hub.Register(clients[j])
		}

		var wg sync.WaitGroup
		for k := 0; k < 4; k++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				hub.Publish(map[string]int{"total": n})
			}(k)
		}
		for _, c := range clients {
			wg.Add(1)
			go func(c *Client) {
				defer wg.Done()
				c.Close()
			}(c)
		}
		wg.Wait()
		assert.Equal(t, 0, hub.ClientCount())
	}
}

func TestCloseUnregisters(t *testing.T) {
	hub := NewQueueHub()
	c := newTestClient()
	hub.Register(c)
	require.Equal(t, 1, hub.ClientCount())

	c.Close()
	assert.Equal(t, 0, hub.ClientCount())

	// double close is safe
	c.Close()

	hub.Publish(map[string]int{"total": 9})
}
