package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_NoClients(t *testing.T) {
	b := NewBroadcaster()

	// Must not panic or block with an empty client set.
	b.Broadcast(map[string]string{"type": "session.status"})
	assert.Equal(t, 0, b.ClientCount())
}

func TestBroadcast_DeliversToClient(t *testing.T) {
	b := NewBroadcaster()
	c := b.add()
	defer b.remove(c)

	b.Broadcast(map[string]interface{}{"sessionId": 1, "status": "describing"})

	select {
	case payload := <-c.ch:
		assert.Contains(t, string(payload), `"status":"describing"`)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBroadcast_DropsSlowClient(t *testing.T) {
	b := NewBroadcaster()
	c := b.add()

	for i := 0; i < clientBuffer+1; i++ {
		b.Broadcast(map[string]int{"seq": i})
	}

	assert.Equal(t, 0, b.ClientCount(), "client with a full buffer is dropped")

	// The channel was closed by the drop; draining must terminate.
	for range c.ch {
	}
}

func TestServeHTTP_StreamsEvents(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"type":"connected"`)

	// Wait for registration before publishing.
	require.Eventually(t, func() bool { return b.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	b.Broadcast(map[string]string{"status": "completed"})

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, "completed") {
			break
		}
	}

	cancel()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)
}
