package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
	"github.com/rs/zerolog"
)

// Event types broadcast to connected clients.
const (
	EventCreated    = "submission.created"
	EventTransition = "submission.status"
	EventUpdated    = "submission.updated"
	EventDeleted    = "submission.deleted"
)

const (
	sendBuffer   = 32
	writeTimeout = 2 * time.Second
)

// Event describes a change to a submission.
type Event struct {
	Type         string        `json:"type"`
	SubmissionID int64         `json:"submission"`
	AuthorID     int64         `json:"author,omitempty"`
	From         models.Status `json:"from_status,omitempty"`
	To           models.Status `json:"to_status,omitempty"`
	At           time.Time     `json:"at"`
}

// visibleTo applies the submission visibility rules to the event. Only
// events that leave the record PUBLISHED are public.
func (ev Event) visibleTo(actor lifecycle.Actor) bool {
	return lifecycle.CanView(actor, &models.Submission{ID: ev.SubmissionID, AuthorID: ev.AuthorID, Status: ev.To})
}

// Publisher receives submission events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

// client is a websocket subscriber. Its writer goroutine is the only code
// that writes to conn.
type client struct {
	conn       *websocket.Conn
	actor      lifecycle.Actor
	submission int64
	send       chan []byte
}

func (c *client) wants(ev Event) bool {
	if c.submission != 0 && c.submission != ev.SubmissionID {
		return false
	}
	return ev.visibleTo(c.actor)
}

func (c *client) writeLoop(log zerolog.Logger) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Err(err).Msg("Websocket write failed")
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub fans events out to websocket subscribers.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	published uint64
	dropped   uint64
	log       zerolog.Logger
}

// Stats is a snapshot of hub activity.
type Stats struct {
	WSClients int    `json:"ws_clients"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// register subscribes ws on behalf of actor and starts its writer. greeting,
// when set, is the first message the client receives. A non-zero submission
// limits delivery to events about that submission.
func (h *Hub) register(ws *websocket.Conn, actor lifecycle.Actor, submission int64, greeting []byte) *client {
	c := &client{conn: ws, actor: actor, submission: submission, send: make(chan []byte, sendBuffer)}
	if greeting != nil {
		c.send <- greeting
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop(h.log)
	return c
}

// unregister removes c and stops its writer. Safe to call more than once.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Publish queues ev for every subscriber allowed to see it. It never waits
// on a connection; a client whose queue is full is disconnected.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("type", ev.Type).Msg("Failed to encode event")
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	h.published++
	for c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.send <- b:
		default:
			h.dropped++
			h.log.Warn().Int64("user_id", c.actor.UserID).Msg("Dropping slow websocket client")
			h.removeLocked(c)
		}
	}
}

// Stats returns the current client count and event counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{WSClients: len(h.clients), Published: h.published, Dropped: h.dropped}
}
