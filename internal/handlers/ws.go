package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/felicity-dev/felicity/internal/realtime"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type clientMessage struct {
	Type string `json:"type"`
}

// TypingFrame is relayed to the rest of the room when a client types.
type TypingFrame struct {
	AccountID uint   `json:"account_id"`
	Name      string `json:"name"`
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.Origins() {
		if origin == allowed {
			return true
		}
	}
	return false
}

// EventSocket streams an event's discussion frames to an authorized viewer
// and relays the viewer's typing indicators to the room.
func (h *Handler) EventSocket(c *gin.Context) {
	eventID, err := utils.GetEventID(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	viewer, err := utils.GetCurrentAccount(c)
	if err != nil {
		unauthenticated(c)
		return
	}

	if err := h.discussion.CanView(c.Request.Context(), viewer, eventID); err != nil {
		h.respondError(c, err)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sub, err := h.hub.Subscribe(eventID, viewer.AccountID(), viewer.DisplayName())
	if err != nil {
		log.Printf("Failed to subscribe to event %d: %v", eventID, err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	// Set up connection parameters
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		h.hub.Unsubscribe(sub)
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	// Send welcome message
	if err := writeFrame(conn, realtime.Frame{
		Type:    types.FrameConnected,
		EventID: eventID,
		Data:    gin.H{"message": "WebSocket connection established"},
	}); err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		h.hub.Unsubscribe(sub)
		conn.Close()
		return
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pump(conn, sub, done)
	}()

	// Clean up when connection closes
	defer func() {
		close(done)
		wg.Wait()
		h.hub.Unsubscribe(sub)
		conn.Close()

		h.hub.PublishExcept(eventID, types.FrameUserStopTyping, TypingFrame{AccountID: sub.AccountID, Name: sub.Name}, sub)
		log.Printf("WebSocket connection closed for event %d", eventID)
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for event %d: %v", eventID, err)
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		typing := TypingFrame{AccountID: sub.AccountID, Name: sub.Name}
		switch msg.Type {
		case types.ClientTyping:
			h.hub.PublishExcept(eventID, types.FrameUserTyping, typing, sub)
		case types.ClientStopTyping:
			h.hub.PublishExcept(eventID, types.FrameUserStopTyping, typing, sub)
		}
	}
}

// pump is the connection's only writer: hub frames and pings.
func (h *Handler) pump(conn *websocket.Conn, sub *realtime.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.Frames():
			if !ok {
				// Dropped by the hub or shutting down; the client refetches
				// history after reconnecting.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				conn.Close()
				return
			}
			if err := writeFrame(conn, frame); err != nil {
				log.Printf("Failed to write frame for event %d: %v", sub.EventID, err)
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Failed to set write deadline for event %d: %v", sub.EventID, err)
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Ping failed for event %d: %v", sub.EventID, err)
				return
			}
		case <-done:
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame realtime.Frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
