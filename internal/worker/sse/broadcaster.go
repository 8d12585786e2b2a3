// Package sse streams session events to browsers over Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// clientBuffer is how many pending events a client may lag behind before it
// is dropped. Session workflows emit a handful of events, so a small buffer
// is plenty.
const clientBuffer = 16

type client struct {
	id string
	ch chan []byte
}

// Broadcaster fans session events out to connected SSE clients. Slow clients
// are disconnected rather than allowed to block the publisher.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*client)}
}

// Broadcast marshals data as JSON and queues it for every connected client.
// It never blocks: a client whose buffer is full is dropped.
func (b *Broadcaster) Broadcast(data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal SSE event")
		return
	}

	var dropped []*client

	b.mu.RLock()
	for _, c := range b.clients {
		select {
		case c.ch <- payload:
		default:
			dropped = append(dropped, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range dropped {
		log.Warn().Str("clientId", c.id).Msg("SSE client too slow, dropping")
		b.remove(c)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) add() *client {
	c := &client{
		id: uuid.NewString(),
		ch: make(chan []byte, clientBuffer),
	}

	b.mu.Lock()
	b.clients[c.id] = c
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", c.id).Int("totalClients", total).Msg("SSE client connected")
	return c
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	cur, ok := b.clients[c.id]
	if ok && cur == c {
		delete(b.clients, c.id)
	}
	total := len(b.clients)
	b.mu.Unlock()

	if ok {
		close(c.ch)
		log.Debug().Str("clientId", c.id).Int("totalClients", total).Msg("SSE client disconnected")
	}
}

// ServeHTTP handles one SSE connection, streaming queued events until the
// client goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	c := b.add()
	defer b.remove(c)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"clientId\":%q}\n\n", c.id)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
