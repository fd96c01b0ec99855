package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client. Each
// connection owns one blackjack session.
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
	session     *Session
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 64),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection. A round in progress is forfeited so the
// transaction backend always sees exactly one record per round.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if sess := c.Session(); sess != nil {
			c.gameService.Close(context.Background(), sess)
		}
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Session returns the session bound to this connection, nil before join
func (c *Connection) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Connection) setSession(sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = sess
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel closed during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage routes one client message. Join binds the session; every
// other message requires one.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	if msg.Type == MessageTypeJoin {
		c.handleJoin(msg.Data)
		return
	}

	sess := c.Session()
	if sess == nil {
		c.sendError("not_joined", "Join before sending table actions")
		return
	}

	for _, out := range c.gameService.Apply(c.ctx, sess, msg.Type, msg.Data) {
		_ = c.SendMessage(out)
	}

	if msg.Type == MessageTypeLeave {
		_ = c.Close()
	}
}

func (c *Connection) handleJoin(data json.RawMessage) {
	if c.Session() != nil {
		c.sendError("already_joined", "Session already started")
		return
	}

	var d JoinData
	if err := json.Unmarshal(data, &d); err != nil || d.PlayerID == "" {
		c.sendError("invalid_message", "Failed to parse join data")
		return
	}

	points := d.Points
	if points <= 0 {
		points = c.gameService.defaultPoints()
	}

	sess := c.gameService.NewSession(d.PlayerID, points)
	c.setSession(sess)

	if msg, err := NewMessage(MessageTypeJoined, JoinedData{
		PlayerID: d.PlayerID,
		Points:   points,
		BetStep:  c.gameService.betStep,
	}); err == nil {
		_ = c.SendMessage(msg)
	}
	_ = c.SendMessage(c.gameService.stateMessage(sess))
}

func (c *Connection) sendError(code, text string) {
	_ = c.SendMessage(errorMessage(code, text))
}
