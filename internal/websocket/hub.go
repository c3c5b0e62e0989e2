package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/session"
)

const (
	channelPrefix = "studio_events:"
	writeTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser resolves the token query parameter to an identity.
type TokenParser interface {
	ParseToken(token string) (session.Identity, error)
}

// client serialises writes to one connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub pushes studio events to the websocket connections of each user. With a
// Redis client, events go through pub/sub so every server instance delivers
// them to its own connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*client
	redisClient *redis.Client
	tokens      TokenParser
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(redisClient *redis.Client, tokens TokenParser) *Hub {
	return &Hub{
		connections: make(map[string][]*client),
		redisClient: redisClient,
		tokens:      tokens,
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	userKey := id.String()
	c := &client{conn: conn}
	h.registerConnection(userKey, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(userKey, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Publish delivers msg to every connection of userKey.
func (h *Hub) Publish(userKey string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket event %s not encodable: %v", msg.Type, err)
		return
	}

	if h.redisClient == nil {
		h.broadcast(userKey, data)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.redisClient.Publish(ctx, channelPrefix+userKey, data).Err(); err != nil {
		log.Printf("Redis publish failed for %s, delivering locally: %v", userKey, err)
		h.broadcast(userKey, data)
	}
}

func (h *Hub) registerConnection(userKey string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userKey] = append(h.connections[userKey], c)

	// Start pub/sub subscription if this is the first connection for this user
	if h.redisClient != nil && len(h.connections[userKey]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userKey] = cancel
		go h.subscribeToPubSub(ctx, userKey)
	}

	log.Printf("WebSocket connected: %s (total: %d)", userKey, len(h.connections[userKey]))
}

func (h *Hub) unregisterConnection(userKey string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[userKey]
	for i, existing := range conns {
		if existing == c {
			h.connections[userKey] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[userKey]) == 0 {
		delete(h.connections, userKey)
		if cancel, ok := h.cancelFuncs[userKey]; ok {
			cancel()
			delete(h.cancelFuncs, userKey)
		}
	}

	log.Printf("WebSocket disconnected: %s", userKey)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userKey string) {
	pubsub := h.redisClient.Subscribe(ctx, channelPrefix+userKey)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userKey, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(userKey string, data []byte) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[userKey]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write failed for %s: %v", userKey, err)
		}
	}
}

// ConnectionCount reports the open connections of userKey.
func (h *Hub) ConnectionCount(userKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userKey])
}
