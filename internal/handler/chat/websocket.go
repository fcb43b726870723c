package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/chat"
	"github.com/twocards/backoffice/pkg/utils"
)

const (
	defaultQueueSize = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 54 * time.Second
	maxMessageSize   = 64 << 10
)

var (
	errChannelClosed = errors.New("connection closed")
	errQueueFull     = errors.New("outbound queue full")
)

// wsChannel adapts a websocket connection to chatservice.Channel. Only the
// write loop touches the connection for writing.
type wsChannel struct {
	conn      *websocket.Conn
	queue     chan chat.Outbound
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func newWSChannel(conn *websocket.Conn, size int, logger *slog.Logger) *wsChannel {
	return &wsChannel{
		conn:   conn,
		queue:  make(chan chat.Outbound, size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send enqueues frame without blocking. A full queue drops the frame.
func (c *wsChannel) Send(_ context.Context, frame chat.Outbound) error {
	select {
	case <-c.done:
		return errChannelClosed
	default:
	}

	select {
	case c.queue <- frame:
		return nil
	case <-c.done:
		return errChannelClosed
	default:
		return errQueueFull
	}
}

// Close stops the write loop, which sends a close frame and closes the connection.
func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// writeLoop writes first, then drains the queue and pings until closed.
func (c *wsChannel) writeLoop(first ...chat.Outbound) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for _, frame := range first {
		if !c.write(frame) {
			return
		}
	}

	for {
		select {
		case frame := <-c.queue:
			if !c.write(frame) {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("websocket ping failed", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *wsChannel) write(frame chat.Outbound) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.logger.Debug("websocket write failed", "error", err)
		c.Close()
		return false
	}
	return true
}

// readLoop decodes inbound frames until the peer goes away or the read deadline passes.
func (h *Handler) readLoop(conn *websocket.Conn, onMessage func(content string)) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg chat.Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		onMessage(msg.Message)
	}
}

// handleStaffWebSocket 员工连接：令牌来自 Authorization 头或 token 查询参数
func (h *Handler) handleStaffWebSocket(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	staff, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := newWSChannel(conn, h.queueSize, h.logger)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ch.writeLoop()
	}()

	if prev := h.registry.AdmitStaff(staff.ID, ch); prev != nil {
		prev.Close()
	}
	h.logger.Info("staff connected", "user_id", staff.ID, "username", staff.Username)

	defer func() {
		h.registry.RemoveStaffIf(staff.ID, ch)
		ch.Close()
		<-writerDone
		h.logger.Info("staff disconnected", "user_id", staff.ID)
	}()

	origin := chat.StaffOrigin{UserID: staff.ID, Username: staff.Username}
	h.readLoop(conn, func(content string) {
		if _, err := h.broadcaster.FromStaff(r.Context(), origin, content); err != nil {
			h.sendError(ch, err)
		}
	})
}

// handleVisitorWebSocket 访客连接：无需登录，先收到 session 帧
func (h *Handler) handleVisitorWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := newWSChannel(conn, h.queueSize, h.logger)
	sessionID, err := h.registry.AdmitVisitor(ch)
	if err != nil {
		h.logger.Error("failed to admit visitor", "error", err)
		conn.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ch.writeLoop(chat.SessionHello(sessionID))
	}()

	origin := chat.VisitorOrigin{Name: r.URL.Query().Get("name"), SessionID: sessionID}
	h.logger.Info("visitor connected", "session_id", sessionID)

	defer func() {
		h.registry.RemoveVisitor(sessionID)
		ch.Close()
		<-writerDone
		h.logger.Info("visitor disconnected", "session_id", sessionID)
	}()

	h.readLoop(conn, func(content string) {
		if _, err := h.broadcaster.FromVisitor(r.Context(), origin, content); err != nil {
			h.sendError(ch, err)
		}
	})
}

func (h *Handler) sendError(ch *wsChannel, err error) {
	h.logger.Error("failed to deliver chat message", "error", err)
	_ = ch.Send(context.Background(), chat.Outbound{Type: "error", Message: "message could not be delivered"})
}
