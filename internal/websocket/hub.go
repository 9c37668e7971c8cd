package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sensor-platform/alert-engine/internal/logger"
	"github.com/sensor-platform/alert-engine/internal/models"
	"github.com/sensor-platform/alert-engine/internal/processor"
)

// ChannelNewAlert carries every fire/resolution; per-device traffic uses
// DeviceAlertChannel(id).
const ChannelNewAlert = "new_alert"

// ChannelNotifications carries in-app notification deliveries.
const ChannelNotifications = "notifications"

// DeviceAlertChannel returns the per-device alert channel name.
func DeviceAlertChannel(deviceID string) string {
	return fmt.Sprintf("device:%s:alert", deviceID)
}

// Message sent over WebSocket
type Message struct {
	Channel   string          `json:"channel"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client represents a WebSocket client with write synchronization. A client
// with no subscriptions receives every channel; subscribing narrows the feed.
type Client struct {
	conn          *websocket.Conn
	writeMu       sync.Mutex
	subMu         sync.RWMutex
	subscriptions map[string]bool
	hub           *Hub
}

// WriteJSON safely writes JSON to the WebSocket connection
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// WriteControl safely writes control message to the WebSocket connection
func (c *Client) WriteControl(messageType int, data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, data, deadline)
}

func (c *Client) subscribe(channel string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscriptions[channel] = true
}

func (c *Client) wants(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[channel]
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 500),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub goroutine
func (h *Hub) Run(ctx context.Context) {
	logger.Info().Msg("Starting WebSocket Hub")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info().Msg("WebSocket client registered")

		case client := <-h.unregister:
			h.removeClient(client)
			logger.Info().Msg("WebSocket client unregistered")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				if !client.wants(message.Channel) {
					continue
				}
				if err := client.WriteJSON(message); err != nil {
					logger.Error().Err(err).Msg("WebSocket write failed")
					// Drop the client here; sending to h.unregister from
					// this goroutine would block forever.
					h.removeClient(client)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.conn.Close()
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all subscribed clients
func (h *Hub) Broadcast(msg *Message) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn().Msg("Broadcast channel full")
	}
}

// OnAlertEvent implements processor.AlertObserver. Fires and resolutions go
// out on the new_alert channel and the matching per-device channel.
func (h *Hub) OnAlertEvent(ctx context.Context, event *processor.AlertEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal alert payload for WebSocket broadcast")
		return err
	}

	msgType := "alert"
	if event.Type == models.AlertEventResolved {
		msgType = "alert_resolved"
	}

	for _, channel := range []string{ChannelNewAlert, DeviceAlertChannel(event.Payload.DeviceID)} {
		h.Broadcast(&Message{
			Channel:   channel,
			Type:      msgType,
			Payload:   payload,
			Timestamp: time.Now(),
		})
	}
	return nil
}

// PublishNotification implements the in-app notification channel.
func (h *Hub) PublishNotification(req models.NotificationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	h.Broadcast(&Message{
		Channel:   ChannelNotifications,
		Type:      "notification",
		Payload:   payload,
		Timestamp: time.Now(),
	})
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		// Allow localhost for development
		return origin == "http://localhost:8080" ||
			origin == "http://localhost:3000" ||
			origin == "http://127.0.0.1:8080"
	},
}

// ServeWS handles WebSocket connections (goroutine per connection)
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		conn:          conn,
		subscriptions: make(map[string]bool),
		hub:           h,
	}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	h.register <- client

	go func() {
		defer func() {
			h.unregister <- client
		}()

		for {
			var msg map[string]interface{}
			err := conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Error().Err(err).Msg("WebSocket unexpected close")
				}
				break
			}

			msgType, _ := msg["type"].(string)
			switch msgType {
			case "ping":
				pongMsg := &Message{
					Type:      "pong",
					Payload:   json.RawMessage(`{}`),
					Timestamp: time.Now(),
				}
				if err := client.WriteJSON(pongMsg); err != nil {
					logger.Error().Err(err).Msg("Failed to send pong")
					return
				}

			case "subscribe":
				if channel, ok := msg["channel"].(string); ok && channel != "" {
					client.subscribe(channel)
				}
			}
		}
	}()

	ticker := time.NewTicker(45 * time.Second)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, exists := h.clients[client]
			h.mu.RUnlock()

			if !exists {
				return
			}

			if err := client.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				logger.Error().Err(err).Msg("Failed to send ping")
				return
			}
		}
	}()
}
