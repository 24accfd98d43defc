package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// clientFrame is one inbound JSON frame on the socket.
type clientFrame struct {
	Type     string  `json:"type"` // "session_start" | "text" | "button" | "location" | "cancel"
	Username string  `json:"username,omitempty"`
	Text     string  `json:"text,omitempty"`
	Data     string  `json:"data,omitempty"` // callback token for button frames
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
}

// serverEvent is one outbound JSON frame.
type serverEvent struct {
	Type    string   `json:"type"` // "message" | "location_request" | "info" | "error"
	Text    string   `json:"text,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

// Client is one WebSocket connection for a user. A user may hold several.
type Client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	send   chan serverEvent
}

// Hub tracks live connections by user and is the engine's Outbox: outbound
// directives fan out to every open connection the target has. An offline
// target is not an error; delivery to other users is best-effort.
type Hub struct {
	clientsByUser map[int64]map[*Client]bool
	mu            sync.RWMutex
	log           zerolog.Logger
}

func newHub(log zerolog.Logger) *Hub {
	return &Hub{
		clientsByUser: make(map[int64]map[*Client]bool),
		log:           log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientsByUser[c.userID] == nil {
		h.clientsByUser[c.userID] = make(map[*Client]bool)
	}
	h.clientsByUser[c.userID][c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clientsByUser[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clientsByUser, c.userID)
		}
	}
}

func (h *Hub) sendToUser(userID int64, evt serverEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clientsByUser[userID] {
		select {
		case c.send <- evt:
		default:
			// Drop if the client's buffer is full
		}
	}
}

// SendText implements Outbox.
func (h *Hub) SendText(_ context.Context, target int64, content string, choices []Choice) error {
	h.sendToUser(target, serverEvent{Type: "message", Text: content, Choices: choices})
	return nil
}

// RequestLocation implements Outbox.
func (h *Hub) RequestLocation(_ context.Context, target int64) error {
	h.sendToUser(target, serverEvent{Type: "location_request"})
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dev origins vary; the JWT is the actual gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsHandler(hub *Hub, engine *Engine, secret []byte, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := getUserIDFromRequest(r, secret)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("ws upgrade failed")
			return
		}

		client := &Client{
			id:     uuid.NewString(),
			userID: userID,
			conn:   conn,
			send:   make(chan serverEvent, 16),
		}
		hub.register(client)
		log.Info().Str("conn_id", client.id).Int64("user_id", userID).Msg("connected")

		client.send <- serverEvent{Type: "info", Text: "connected"}

		go clientWriter(client)
		clientReader(hub, engine, client, log)
	}
}

// getUserIDFromRequest authenticates the upgrade request: Authorization
// bearer first, then a token query param (browsers cannot set headers on a
// WebSocket handshake).
func getUserIDFromRequest(r *http.Request, secret []byte) (int64, bool) {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if id, ok := parseUserIDFromJWT(strings.TrimPrefix(auth, "Bearer "), secret); ok {
			return id, true
		}
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return parseUserIDFromJWT(q, secret)
	}
	return 0, false
}

func parseUserIDFromJWT(tokenStr string, secret []byte) (int64, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	// jwt.MapClaims stores numbers as float64 by default
	fv, ok := claims["user_id"].(float64)
	if !ok {
		return 0, false
	}
	return int64(fv), true
}

func signUserToken(secret []byte, userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"expires": time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(secret)
}

func clientReader(hub *Hub, engine *Engine, c *Client, log zerolog.Logger) {
	defer func() {
		hub.unregister(c)
		c.conn.Close()
		log.Info().Str("conn_id", c.id).Int64("user_id", c.userID).Msg("disconnected")
	}()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.send <- serverEvent{Type: "error", Text: "invalid message format"}
			continue
		}

		ev, ok := frameToEvent(c.userID, frame)
		if !ok {
			c.send <- serverEvent{Type: "error", Text: "unknown message type"}
			continue
		}

		if err := engine.Handle(context.Background(), ev); err != nil {
			// The engine has already answered the user; nothing more to relay.
			log.Debug().Err(err).Int64("user_id", c.userID).Msg("event handling failed")
		}
	}
}

func frameToEvent(userID int64, frame clientFrame) (Event, bool) {
	ev := Event{UserID: userID}
	switch frame.Type {
	case "session_start":
		ev.Kind = EventSessionStart
		ev.Username = frame.Username
	case "text":
		ev.Kind = EventText
		ev.Text = frame.Text
	case "button":
		ev.Kind = EventButton
		ev.Callback = frame.Data
	case "location":
		ev.Kind = EventLocation
		ev.Lat = frame.Lat
		ev.Lon = frame.Lon
	case "cancel":
		ev.Kind = EventCancel
	default:
		return Event{}, false
	}
	return ev, true
}

func clientWriter(c *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			// ping to keep the connection alive
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
