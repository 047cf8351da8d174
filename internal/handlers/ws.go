package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brandlover88/brandlover-backend/internal/realtime"
	"github.com/brandlover88/brandlover-backend/internal/utils"
)

// FeedHandler upgrades admin clients onto the product change feed.
type FeedHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
}

func NewFeedHandler(hub *realtime.Hub, secret string) *FeedHandler {
	return &FeedHandler{Hub: hub, JWTSecret: secret}
}

// WebSocketHandler authenticates via the token query param (cookies are not
// reliable across websocket clients), registers the client with the hub and
// pumps events until the connection drops. An invalid or expired token gets
// a SIGNED_OUT frame before the close, so the client can return to login.
func (h *FeedHandler) WebSocketHandler(c *websocket.Conn) {
	tokenStr := c.Query("token")
	claims := &utils.Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		_ = c.WriteJSON(map[string]string{"event": "SIGNED_OUT"})
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected to product feed\n", claims.UserID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", claims.UserID)
	}()

	// hub -> client
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	// client -> keepalive only
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
