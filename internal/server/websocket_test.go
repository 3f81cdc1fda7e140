package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/quill/internal/index"
)

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(5000, nil)

	testCases := []struct {
		name     string
		host     string
		origin   string
		expected bool
	}{
		{"same host", "blog.example:8080", "https://blog.example:8080", true},
		{"localhost on port", "127.0.0.1:5000", "http://localhost:5000", true},
		{"ipv6 loopback", "localhost:5000", "http://[::1]:5000", true},
		{"loopback other port", "localhost:5000", "http://localhost:3000", false},
		{"foreign host", "localhost:5000", "https://evil.example", false},
		{"bad scheme", "localhost:5000", "file://localhost:5000", false},
		{"missing origin", "localhost:5000", "", false},
		{"unparsable", "localhost:5000", "http://%zz", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			req.Host = tc.host
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.expected, hub.checkOrigin(req))
		})
	}
}

func TestServeHTTPForbiddenOrigin(t *testing.T) {
	hub := NewHub(5000, nil)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, 403, rec.Code)
}

func TestBroadcastDropsSlowClients(t *testing.T) {
	hub := NewHub(5000, nil)
	fast := &client{send: make(chan []byte, 1)}
	slow := &client{send: make(chan []byte)}
	hub.register(fast)
	hub.register(slow)

	hub.Broadcast([]byte("x"))

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, []byte("x"), <-fast.send)
	_, open := <-slow.send
	assert.False(t, open)

	// Unregistering twice must not close the queue again.
	assert.NotPanics(t, func() { hub.unregister(slow) })
}

func TestRunForwardsEventsAndClosesClients(t *testing.T) {
	hub := NewHub(5000, nil)
	c := &client{send: make(chan []byte, 4)}
	hub.register(c)

	events := make(chan index.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx, events)
		close(done)
	}()

	events <- index.Event{Type: index.EventTypeUpdated, Slug: "hello", Timestamp: time.Unix(0, 0).UTC()}

	select {
	case msg := <-c.send:
		assert.JSONEq(t, `{"type":"updated","slug":"hello","timestamp":"1970-01-01T00:00:00Z"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("no message broadcast")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	require.Equal(t, 0, hub.ClientCount())
	_, open := <-c.send
	assert.False(t, open)
}
