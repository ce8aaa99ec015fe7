// Package sse streams note events to connected clients as Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout is the timeout for writing to SSE clients.
	WriteTimeout = 2 * time.Second

	// EventConnected is sent once when a client subscribes.
	EventConnected = "connected"
)

// Event is one message on the stream.
type Event struct {
	At     time.Time   `json:"at"`
	Data   interface{} `json:"data,omitempty"`
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
}

// Client represents a connected SSE client. A non-empty UserID limits it
// to that user's events plus events without an owner.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string
	UserID  string
	mu      sync.Mutex
	once    sync.Once
}

func (c *Client) wants(ev Event) bool {
	return c.UserID == "" || ev.UserID == "" || c.UserID == ev.UserID
}

// Broadcaster manages SSE client connections and message broadcasting.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
	now     func() time.Time
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
		now:     time.Now,
	}
}

// AddClient adds a new SSE client connection subscribed to userID ("" for all users).
func (b *Broadcaster) AddClient(w http.ResponseWriter, userID string) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		UserID:  userID,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[id] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", id).
		Str("userId", userID).
		Int("totalClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient removes a client connection.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	closeDone(client)

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", clientCount).
		Msg("SSE client disconnected")
}

func (b *Broadcaster) removeClientByID(id string) {
	b.mu.Lock()
	client, exists := b.clients[id]
	delete(b.clients, id)
	b.mu.Unlock()

	if exists {
		closeDone(client)
		log.Debug().Str("clientId", id).Msg("Dead SSE client removed")
	}
}

func closeDone(c *Client) {
	if c.Done == nil {
		return
	}
	c.once.Do(func() { close(c.Done) })
}

// Publish broadcasts a typed event owned by userID.
func (b *Broadcaster) Publish(event, userID string, payload interface{}) {
	b.Broadcast(Event{Type: event, UserID: userID, Data: payload, At: b.now().UTC()})
}

// Broadcast sends an event to every interested client. Slow or broken clients
// are dropped after WriteTimeout.
func (b *Broadcaster) Broadcast(ev Event) {
	message, err := encode(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("Failed to marshal SSE event")
		return
	}

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		if client.wants(ev) {
			clients = append(clients, client)
		}
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	deadClientsCh := make(chan string, len(clients))
	var wg sync.WaitGroup
	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
			wg.Add(1)
			go func(c *Client) {
				defer wg.Done()
				b.writeToClient(c, message, deadClientsCh)
			}(client)
		}
	}
	wg.Wait()
	close(deadClientsCh)

	for clientID := range deadClientsCh {
		b.removeClientByID(clientID)
	}
}

func encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)), nil
}

func (b *Broadcaster) writeToClient(client *Client, message []byte, deadCh chan<- string) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		client.mu.Lock()
		defer client.mu.Unlock()
		if _, err := client.Writer.Write(message); err != nil {
			log.Debug().Str("clientId", client.ID).Err(err).Msg("Failed to write to SSE client, marking for removal")
			deadCh <- client.ID
			return
		}
		client.Flusher.Flush()
	}()

	select {
	case <-done:
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("clientId", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out, marking client for removal")
		deadCh <- client.ID
	case <-client.Done:
	}
}

// Close disconnects every client so their handlers return.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, c := range clients {
		closeDone(c)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// HandleSSE serves GET /events?user_id= until the client goes away. A stream only
// carries events of its user, so user_id is required.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	hello, err := encode(Event{Type: EventConnected, UserID: userID, At: b.now().UTC()})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(hello)
	flusher.Flush()

	client, err := b.AddClient(w, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}
