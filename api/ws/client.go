package ws

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the dashboard has no authentication and may be served from another origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection registered with a hub
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// jobFilter narrows delivery to one job when non-zero
	jobFilter atomic.Int64
}

type clientMessage struct {
	Type  string `json:"type"`
	JobID *int64 `json:"jobId,omitempty"`
}

type subscribedAck struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	JobID   *int64 `json:"jobId,omitempty"`
}

var subscriptionChannels = map[string]string{
	"subscribe_training": "training",
	"subscribe_logs":     "logs",
}

func (c *Client) wants(jobID int64) bool {
	filter := c.jobFilter.Load()
	return filter == 0 || filter == jobID
}

// ServeWS upgrades the request and registers the connection with the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if !h.add(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump handles subscription messages until the connection fails
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("client_id", c.id).Debug("websocket read failed")
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	logger := log.WithField("client_id", c.id)

	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.WithError(err).Debug("ignoring malformed websocket message")
		return
	}

	channel, ok := subscriptionChannels[msg.Type]
	if !ok {
		logger.WithField("type", msg.Type).Debug("ignoring unknown websocket message")
		return
	}
	if msg.JobID != nil && *msg.JobID > 0 {
		c.jobFilter.Store(*msg.JobID)
	}

	ack, err := json.Marshal(subscribedAck{Type: "subscribed", Channel: channel, JobID: msg.JobID})
	if err != nil {
		return
	}
	c.hub.sendTo(c, ack)
}

// writePump drains the send queue and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
