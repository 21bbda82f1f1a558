package ws

import (
	"context"
	"encoding/json"

	"robot-training-hub/core/models"

	log "github.com/sirupsen/logrus"
)

// Observer is notified of hub activity, used for metrics
type Observer interface {
	SetClients(n int)
	MessageDropped()
}

// Relay forwards encoded events to other instances. Events published through a relay
// come back to every instance, this one included, via Hub.Deliver.
type Relay interface {
	Publish(ctx context.Context, msg Envelope) error
}

// Envelope is an encoded event together with the job it concerns
type Envelope struct {
	JobID   int64           `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub fans events out to connected websocket clients. The client set is owned by Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Envelope
	direct     chan directMessage
	done       chan struct{}

	clients  map[*Client]struct{}
	observer Observer
	relay    Relay
}

// NewHub creates a hub; observer may be nil
func NewHub(observer Observer) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Envelope, 256),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		observer:   observer,
	}
}

// SetRelay routes published events through r instead of delivering them locally.
// It must be called before Run.
func (h *Hub) SetRelay(r Relay) {
	h.relay = r
}

// Run owns the client set until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.reportClients()
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.reportClients()
			log.WithField("client_id", c.id).Debug("websocket client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.reportClients()
				log.WithField("client_id", c.id).Debug("websocket client disconnected")
			}

		case env := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(env.JobID) {
					continue
				}
				h.trySend(c, env.Payload)
			}

		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				h.trySend(msg.client, msg.payload)
			}
		}
	}
}

// trySend queues payload for c, skipping it when the client's buffer is full
func (h *Hub) trySend(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		log.WithField("client_id", c.id).Debug("websocket send buffer full, dropping message")
		if h.observer != nil {
			h.observer.MessageDropped()
		}
	}
}

func (h *Hub) reportClients() {
	if h.observer != nil {
		h.observer.SetClients(len(h.clients))
	}
}

// Publish encodes event and broadcasts it. It never blocks on slow clients.
func (h *Hub) Publish(event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).WithField("type", event.EventType()).Error("failed to encode event")
		return
	}
	env := Envelope{JobID: event.EventJobID(), Payload: payload}

	if h.relay != nil {
		err := h.relay.Publish(context.Background(), env)
		if err == nil {
			return
		}
		log.WithError(err).Warn("event relay failed, delivering locally")
	}
	h.Deliver(env)
}

// Deliver hands an encoded event to the run loop for local fan-out
func (h *Hub) Deliver(env Envelope) {
	select {
	case h.broadcast <- env:
	case <-h.done:
	}
}

func (h *Hub) sendTo(c *Client, payload []byte) {
	select {
	case h.direct <- directMessage{client: c, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
