package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"netsampler/internal/core/pubsub"
	"netsampler/internal/domain"
	"netsampler/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var (
	errClientClosed = errors.New("ws: client closed")
	errSendFull     = errors.New("ws: client send buffer full")
)

// Hub is the part of the publisher a connection needs.
type Hub interface {
	Subscribe(s pubsub.Subscriber) bool
	Unsubscribe(s pubsub.Subscriber) bool
}

// Client is one websocket connection. It receives samples only while subscribed.
type Client struct {
	ID string

	hub  Hub
	conn *websocket.Conn
	send chan []byte
	log  logger.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub Hub, conn *websocket.Conn, log logger.Logger) *Client {
	id := uuid.NewString()

	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		log:  log.With("client_id", id),
		done: make(chan struct{}),
	}
}

func (c *Client) HandleSample(s domain.Sample) error {
	return c.enqueue(domain.WsServerEvent{
		Event:   domain.WsEventSamplePublished,
		Payload: s,
	})
}

func (c *Client) HandleError(err error) {
	if sendErr := c.enqueue(domain.WsServerEvent{
		Event:   domain.WsEventSamplerFailed,
		Payload: domain.FailurePayload{Error: err.Error()},
	}); sendErr != nil {
		c.log.Warn("ws: failed to queue terminal error", "error", sendErr)
	}
}

func (c *Client) enqueue(event domain.WsServerEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- message:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errSendFull
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.Unsubscribe(c)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ws: client disconnected", "error", err)
			}
			return
		}

		var msg domain.WsClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.log.Error("ws: invalid json message", "error", err)
			continue
		}

		switch msg.Type {
		case domain.WsSubscribe:
			if c.hub.Subscribe(c) {
				c.log.Info("ws: client subscribed")
			}

		case domain.WsUnsubscribe:
			if c.hub.Unsubscribe(c) {
				c.log.Info("ws: client unsubscribed")
			}

		default:
			c.log.Warn("ws: unknown message type", "type", msg.Type)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
