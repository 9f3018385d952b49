// internal/app/features/livefeed/client.go
package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/app/system/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// envelope is every frame in either direction.
type envelope struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Topic    string `json:"topic,omitempty"`
	ThreadID string `json:"threadId,omitempty"`
	Category string `json:"category,omitempty"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
}

type subscription struct {
	topic  string
	cancel context.CancelFunc
}

type client struct {
	h      *Handler
	conn   *websocket.Conn
	userID string
	send   chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]subscription
	wg   sync.WaitGroup
}

func newClient(h *Handler, conn *websocket.Conn, userID string) *client {
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		h:      h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]subscription),
	}
}

// serve runs until the connection drops, then ends every subscription.
func (c *client) serve() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()
	c.readPump()

	c.cancel()
	c.wg.Wait()
	<-done
	_ = c.conn.Close()
}

func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.h.Log.Debug("live read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var req envelope
		if err := json.Unmarshal(raw, &req); err != nil {
			c.reply(envelope{Type: "error", Error: "invalid_json"})
			continue
		}
		switch req.Type {
		case "subscribe":
			c.subscribe(req)
		case "unsubscribe":
			if c.unsubscribe(req.ID) {
				c.reply(envelope{Type: "unsubscribed", ID: req.ID})
			} else {
				c.reply(envelope{Type: "error", ID: req.ID, Error: "unknown subscription"})
			}
		default:
			c.reply(envelope{Type: "error", ID: req.ID, Error: "unsupported_type"})
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.cancel()
				// unblock readPump
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (c *client) subscribe(req envelope) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	c.mu.Lock()
	_, dup := c.subs[req.ID]
	c.mu.Unlock()
	if dup {
		c.reply(envelope{Type: "error", ID: req.ID, Error: "duplicate subscription id"})
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.mu.Lock()
	c.subs[req.ID] = subscription{topic: req.Topic, cancel: cancel}
	c.wg.Add(1)
	c.mu.Unlock()

	// forward calls c.wg.Done when it ends; open failing means it never
	// started.
	if err := c.h.open(ctx, c, req); err != nil {
		cancel()
		c.mu.Lock()
		delete(c.subs, req.ID)
		c.mu.Unlock()
		c.wg.Done()
		c.reply(envelope{Type: "error", ID: req.ID, Topic: req.Topic, Error: err.Error()})
		return
	}
	c.reply(envelope{Type: "subscribed", ID: req.ID, Topic: req.Topic})
}

func (c *client) unsubscribe(id string) bool {
	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		sub.cancel()
	}
	return ok
}

// reply queues a frame unless the connection is closing.
func (c *client) reply(env envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		c.h.Log.Error("live marshal failed", zap.String("type", env.Type), zap.Error(err))
		return
	}
	select {
	case c.send <- b:
	case <-c.ctx.Done():
	}
}

// forward pushes each feed value to the client as a snapshot frame until
// the subscription is cancelled or the feed ends.
func forward[T any](ctx context.Context, c *client, req envelope, feed *live.Feed[T]) {
	defer c.wg.Done()
	defer feed.Close()

	metrics.LiveSubscriptions.WithLabelValues(req.Topic).Inc()
	defer metrics.LiveSubscriptions.WithLabelValues(req.Topic).Dec()

	for {
		v, ok := feed.Next(ctx)
		if !ok {
			if !errors.Is(ctx.Err(), context.Canceled) {
				c.h.Log.Debug("live feed ended", zap.String("topic", req.Topic), zap.String("id", req.ID))
			}
			return
		}
		b, err := json.Marshal(envelope{Type: "snapshot", ID: req.ID, Topic: req.Topic, Data: v})
		if err != nil {
			c.h.Log.Error("live marshal failed", zap.String("topic", req.Topic), zap.Error(err))
			continue
		}
		select {
		case c.send <- b:
		case <-ctx.Done():
			return
		}
	}
}
