package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/denmalbas007/draw-together/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Conn adapts a gorilla websocket to domain.Connection. Outbound events go
// through a buffered channel drained by the write pump, so broadcasters never
// block on a slow socket; a full buffer counts as a connection failure.
type Conn struct {
	userID   string
	nickname string
	room     string
	ws       *websocket.Conn
	send     chan []byte
	registry domain.Registry
	handler  domain.MessageHandler
}

func NewConn(userID, nickname, room string, ws *websocket.Conn, registry domain.Registry, handler domain.MessageHandler) *Conn {
	return &Conn{
		userID:   userID,
		nickname: nickname,
		room:     room,
		ws:       ws,
		send:     make(chan []byte, 256),
		registry: registry,
		handler:  handler,
	}
}

func (c *Conn) UserID() string   { return c.userID }
func (c *Conn) Nickname() string { return c.nickname }
func (c *Conn) Room() string     { return c.room }

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Start joins the room and runs the pumps. The write pump is started first so
// the init (or error) event the registry sends during Connect gets flushed.
// On a rejected connect the send channel is closed, which lets the write pump
// drain the pending error event before closing the socket.
func (c *Conn) Start(password string) {
	go c.writePump()

	if err := c.registry.Connect(c, password); err != nil {
		close(c.send)
		return
	}
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.registry.Disconnect(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "room", c.room, "userId", c.userID, "error", err)
			}
			return
		}

		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
