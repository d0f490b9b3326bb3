package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
)

var (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSHandler streams interview status events published by the services.
type WSHandler struct {
	interviews services.InterviewService
	redis      *redis.Client
	upgrader   websocket.Upgrader
}

func NewWSHandler(interviews services.InterviewService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		interviews: interviews,
		redis:      rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin once the web client domain is fixed
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (h *WSHandler) InterviewWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("interview_id")
	if interviewID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.InterviewWS", "missing interview_id", nil))
		return
	}
	// ownership check, foreign owners get NOT_FOUND
	if _, err := h.interviews.Get(c.Request.Context(), userID, interviewID); err != nil {
		writeError(c, err)
		return
	}

	if h.redis == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "WSHandler.InterviewWS", "status feed disabled", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, services.StatusChannel(interviewID))
	defer pubsub.Close()

	payloads := make(chan string)
	go func() {
		defer close(payloads)
		for m := range pubsub.Channel() {
			select {
			case payloads <- m.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	streamStatus(ctx, conn, payloads)
}

// streamStatus forwards payloads to conn until ctx ends, the source closes
// or the peer stops answering pings.
func streamStatus(ctx context.Context, conn *websocket.Conn, payloads <-chan string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wc := &wsConn{c: conn}

	// reader only tracks liveness, clients do not send commands
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		case p, ok := <-payloads:
			if !ok {
				return
			}
			if err := wc.writeText([]byte(p)); err != nil {
				return
			}
		}
	}
}
