package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/chat-auth/internal/model"
	"github.com/sakif/chat-auth/internal/service"
)

// MsgChatInternal is the 500 message for every chat endpoint.
const MsgChatInternal = "Chat: Internal server error"

// WebSocket timing. A ping goes out every pingPeriod; a connection that
// has not answered within pongWait is dropped.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ChatHandler serves the /api/chat endpoints.
//
//   - HandleList      → GET  /api/chat/messages
//   - HandlePost      → POST /api/chat/messages
//   - HandleSubscribe → GET  /api/chat/subscribe (WebSocket)
type ChatHandler struct {
	svc      *service.ChatService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewChatHandler creates a ChatHandler. allowedOrigin is the frontend's
// origin; WebSocket handshakes from any other origin are refused.
func NewChatHandler(svc *service.ChatService, allowedOrigin string, logger *slog.Logger) *ChatHandler {
	h := &ChatHandler{svc: svc, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigin),
	}
	return h
}

type messagesResponse struct {
	Messages []model.Message `json:"messages"`
}

type postResponse struct {
	ID string `json:"id"`
}

// HandleList returns the whole message list.
func (h *ChatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	messages, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err, MsgChatInternal)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: messages})
}

// HandlePost stores a message and returns its ID.
//
// HTTP: POST /api/chat/messages {user, nickname, content}
func (h *ChatHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	in := decodeBody[model.PostMessage](w, r)

	id, err := h.svc.Post(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err, MsgChatInternal)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{ID: id})
}

// HandleSubscribe upgrades to a WebSocket and streams {messages: [...]}
// frames: one right away, then one after every post.
//
// ONE WRITER:
// gorilla/websocket allows one concurrent writer and one concurrent reader.
// The request goroutine is the only writer (lists and pings). A second
// goroutine only reads, to process pongs and notice the client leaving.
func (h *ChatHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before upgrading so a failure can still be a JSON 500.
	updates, err := h.svc.Subscribe(ctx)
	if err != nil {
		writeError(w, h.logger, err, MsgChatInternal)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	go h.readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case list, ok := <-updates:
			if !ok {
				h.closeNormally(conn)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(messagesResponse{Messages: list}); err != nil {
				h.logger.Debug("subscriber write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and cancels the subscription when the
// connection fails or the client closes it.
func (h *ChatHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ChatHandler) closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// originChecker accepts handshakes without an Origin header (non-browser
// clients), from the configured frontend, and from the server's own host.
func originChecker(allowed string) func(*http.Request) bool {
	allowed = strings.TrimRight(allowed, "/")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if strings.EqualFold(strings.TrimRight(origin, "/"), allowed) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
