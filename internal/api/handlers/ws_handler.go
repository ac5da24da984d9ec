package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/applymint/applymint/internal/stream"
	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsMaxFrame  = 1 << 20
)

type WSHandler struct {
	streams  *StreamHandler
	upgrader websocket.Upgrader
}

// NewWSHandler accepts upgrades from the given origins; "*" allows any.
func NewWSHandler(streams *StreamHandler, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		streams: streams,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || slices.Contains(allowedOrigins, "*") {
					return true
				}
				if slices.Contains(allowedOrigins, origin) {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

type wsClientMsg struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// wsReply answers one client frame with the POST /stream envelope.
type wsReply struct {
	Type    string     `json:"type"`
	Command string     `json:"command"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
	Code    utils.Code `json:"code,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// SessionWS serves GET /ws?sessionId=. Stream events go out as JSON text
// frames; client frames are handled like POST /stream commands.
func (h *WSHandler) SessionWS(c *gin.Context) {
	const op = "WSHandler.SessionWS"

	caller, found := requireCaller(c)
	if !found {
		return
	}
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "sessionId is required", nil))
		return
	}
	if _, err := h.streams.sessions.GetOwned(c.Request.Context(), caller, sessionID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxFrame)

	log := h.streams.log.WithFields(logrus.Fields{"session_id": sessionID, "user_id": caller.ID})
	wc := &wsConn{c: conn}

	// The hijacked request context is not cancelled on close; the reader is.
	// Server shutdown still reaches it through the base context.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	h.streams.metrics.ChannelOpened(transportWS)
	defer h.streams.metrics.ChannelClosed(transportWS)

	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(wsReply{Type: "command_result", Error: "invalid json", Code: utils.CodeInvalidArgument})
				continue
			}

			out, derr := h.streams.dispatch(ctx, caller, CommandRequest{Type: msg.Type, Payload: msg.Payload, SessionID: sessionID})
			reply := wsReply{Type: "command_result", Command: msg.Type, Success: derr == nil, Data: out}
			if derr != nil {
				body := errorBody(derr)
				reply.Error, reply.Code = body.Error, body.Code
				log.WithError(derr).WithField("command", msg.Type).Warn("ws command failed")
			}
			if err := wc.writeJSON(reply); err != nil {
				return
			}
		}
	}()

	ch := h.streams.channel(caller, sessionID, transportWS)
	err = ch.Run(ctx, func(ev stream.Event) error {
		if ev.Type == stream.EventHeartbeat {
			if err := wc.ping(); err != nil {
				return err
			}
		}
		return wc.writeJSON(ev)
	})
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Warn("ws channel ended")
	}
}
