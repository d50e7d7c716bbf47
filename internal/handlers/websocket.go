package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/peer-signaling/config"
	"github.com/mossy-p/peer-signaling/internal/middleware"
	"github.com/mossy-p/peer-signaling/internal/relay"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Lifecycle receives connection events. *relay.Manager implements it.
type Lifecycle interface {
	OnOpen(conn relay.Conn)
	OnMessage(ctx context.Context, connID string, raw []byte)
	OnClose(connID string)
}

// SignalingServer accepts WebSocket connections and feeds their frames to
// the relay.
type SignalingServer struct {
	ctx       context.Context
	lifecycle Lifecycle
	cfg       config.RelayConfig
	upgrader  websocket.Upgrader
}

// NewSignalingServer creates a server whose connections are closed when
// ctx is done.
func NewSignalingServer(ctx context.Context, lifecycle Lifecycle, cfg config.RelayConfig) *SignalingServer {
	return &SignalingServer{
		ctx:       ctx,
		lifecycle: lifecycle,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is handled by middleware
				return true
			},
		},
	}
}

// Client is one WebSocket connection. It implements relay.Conn.
type Client struct {
	id    string
	token string
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
}

func (c *Client) ID() string    { return c.id }
func (c *Client) Token() string { return c.token }

// Send queues data for the write pump without blocking.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// HandleSignaling upgrades the request and serves the connection until it
// closes.
func (s *SignalingServer) HandleSignaling(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "handlers").Msg("failed to upgrade connection")
		return
	}

	client := &Client{
		id:    uuid.New().String(),
		token: c.GetString(middleware.TokenKey),
		conn:  conn,
		send:  make(chan []byte, s.cfg.SendBuffer),
		done:  make(chan struct{}),
	}

	s.lifecycle.OnOpen(client)

	go s.writePump(client)
	go func() {
		select {
		case <-s.ctx.Done():
			client.close()
		case <-client.done:
		}
	}()

	s.readPump(client)
}

func (s *SignalingServer) readPump(c *Client) {
	defer func() {
		c.close()
		s.lifecycle.OnClose(c.id)
	}()

	if s.cfg.ReadLimit > 0 {
		c.conn.SetReadLimit(s.cfg.ReadLimit)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info().Err(err).Str("module", "handlers").Str("connection", c.id).Msg("websocket read error")
			}
			return
		}
		// Frames from one connection are handled in arrival order.
		s.lifecycle.OnMessage(s.ctx, c.id, message)
	}
}

func (s *SignalingServer) writePump(c *Client) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(s.cfg.WriteWait))
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Info().Err(err).Str("module", "handlers").Str("connection", c.id).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
