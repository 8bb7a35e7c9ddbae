package websocket

import (
	"context"
	"time"

	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	queueSize = 256
	sendSize  = 32
)

// Hub keeps client's registry and handle messages broadcasting
type Hub struct {
	// Registered clients, grouped by topic (a city for offer events).
	clients map[string]map[*Client]bool
	// Outbound messages for a topic
	broadcast chan *Message
	// Register requests from the clients.
	register chan *Client
	// Unregister requests from clients.
	unregister      chan *Client
	InboundMessages chan *ClientMessage // listened to by module-specific handlers (e.g, offer handler)
	// Replies addressed to a single client
	direct chan *directMessage
	// clientCount answers ClientCount from inside the Run loop
	clientCount chan chan int
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The topic this client is subscribed to.
	Topic string
	// Unique identifier for the client
	ID string
	// Greeting, when set, is queued as the first message once the hub
	// registers the client.
	Greeting []byte
}

type Message struct {
	Topic string
	Data  []byte
}

type directMessage struct {
	client *Client
	data   []byte
}

// ClientMessage is used for wraping the client and data message received.
// is used to send inbound messages from the client to the hub handlers
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, queueSize),
		register:        make(chan *Client, queueSize),
		unregister:      make(chan *Client, queueSize),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, queueSize),
		direct:          make(chan *directMessage, queueSize),
		clientCount:     make(chan chan int),
	}
}

// NewClient builds a client for topic with a fresh id. conn may be nil in
// tests that only exercise the hub.
func (h *Hub) NewClient(conn *websocket.Conn, topic string) *Client {
	return &Client{
		Hub:   h,
		Conn:  conn,
		Send:  make(chan []byte, sendSize),
		Topic: topic,
		ID:    uuid.NewString(),
	}
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation")
			for topic, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, topic)
			}
			return
		case client := <-h.register:
			if _, ok := h.clients[client.Topic]; !ok {
				h.clients[client.Topic] = make(map[*Client]bool)
			}
			h.clients[client.Topic][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("topic", client.Topic),
				zap.Int("total_clients", h.total()),
			)
			if client.Greeting != nil {
				h.deliver(client, client.Greeting)
			}

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			clients, ok := h.clients[message.Topic]
			if !ok {
				continue
			}
			log.Debug("Broadcasting message to topic", zap.String("topic", message.Topic), zap.Int("clients", len(clients)))
			for client := range clients {
				h.deliver(client, message.Data)
			}

		case m := <-h.direct:
			if !h.clients[m.client.Topic][m.client] {
				// unregistered clients have a closed Send
				log.Debug("Client not registered, direct message dropped", zap.String("clientID", m.client.ID))
				continue
			}
			h.deliver(m.client, m.data)

		case reply := <-h.clientCount:
			reply <- h.total()
		}
	}
}

// deliver queues data on a registered client, dropping the client when
// its buffer is full. Only Run may call it, since Run owns Send.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		// slow or gone client
		log.Warn("Failed to Send message to client, unregistering",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	log.Info("Client unregistered",
		zap.String("clientID", client.ID),
		zap.String("topic", client.Topic),
		zap.Int("total_clients", h.total()),
	)
	if len(clients) == 0 {
		delete(h.clients, client.Topic)
		log.Debug("Topic group removed as empty", zap.String("topic", client.Topic))
	}
}

func (h *Hub) total() int {
	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// ClientCount returns the number of registered clients. It must only be
// called while Run is active.
func (h *Hub) ClientCount(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.clientCount <- reply:
		return <-reply
	case <-ctx.Done():
		return 0
	}
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		log.Debug("Client queued for registration", zap.String("clientID", client.ID), zap.String("topic", client.Topic))
		return true
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
		return false
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
		log.Debug("Client queued for unregistration", zap.String("clientID", client.ID), zap.String("topic", client.Topic))
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
	}
}

// Broadcast sends data to every client subscribed to topic.
func (h *Hub) Broadcast(topic string, data []byte) {
	select {
	case h.broadcast <- &Message{Topic: topic, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("topic", topic))
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("topic", topic))
	}
}

// SendTo queues data for a single client. The message is dropped if the
// client is no longer registered when the hub handles it.
func (h *Hub) SendTo(client *Client, data []byte) bool {
	select {
	case h.direct <- &directMessage{client: client, data: data}:
		return true
	default:
		log.Error("Direct channel is full, message dropped", zap.String("clientID", client.ID))
		return false
	}
}

// ReadPump reads client frames and hands them to the hub InboundMessages
// channel. Run one per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("ReadPump stopped for client", zap.String("clientID", c.ID), zap.String("topic", c.Topic))
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			log.Info("ReadPump context cancelled for client", zap.String("clientID", c.ID), zap.String("topic", c.Topic))
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("topic", c.Topic),
					zap.String("remote_addr", c.Conn.RemoteAddr().String()),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer", zap.String("clientID", c.ID), zap.String("topic", c.Topic), zap.Error(err))
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("topic", c.Topic),
				zap.ByteString("message", message),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// A goroutine running WritePump is started for each connection, so there
// is at most one writer per connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("WritePump stopped for client", zap.String("clientID", c.ID), zap.String("topic", c.Topic))
	}()

	for {
		select {
		case <-ctx.Done():
			err := c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			if err != nil {
				log.Error("Failed to send close control message", zap.String("clientID", c.ID), zap.Error(err))
			}
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per frame
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client", zap.String("clientID", c.ID), zap.String("topic", c.Topic), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error("Failed to write ping message to client", zap.String("clientID", c.ID), zap.Error(err))
				return
			}
		}
	}
}
