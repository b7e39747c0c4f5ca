package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

const hubWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // OnlyAllowLocal middleware already restricts to localhost
	},
}

// hubConn serializes writes, gorilla connections allow one concurrent writer.
type hubConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Hub holds WebSocket connections and broadcasts notifications to all clients.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]*hubConn
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]*hubConn),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = &hubConn{conn: conn}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Clients returns the number of connected WebSocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send broadcasts the notification as JSON to all registered connections.
// Clients that cannot be written to are dropped.
func (h *Hub) Send(notification *types.Notification) error {
	if notification == nil {
		return nil
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*hubConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.mu.Unlock()
		if err != nil {
			tool.DefaultLogger.Debugf("[NotifyHub] dropping client: %v", err)
			h.Unregister(c.conn)
			_ = c.conn.Close()
		}
	}
	return nil
}

// HandleWS upgrades the request to WebSocket and registers the connection with the hub.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h.Register(conn)
	defer h.Unregister(conn)

	// Read loop to detect client close and keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
