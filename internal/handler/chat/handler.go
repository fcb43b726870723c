package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/chat"
	"github.com/twocards/backoffice/internal/model/user"
	chatservice "github.com/twocards/backoffice/internal/service/chat"
	"github.com/twocards/backoffice/pkg/utils"
)

// Authenticator 校验员工连接携带的令牌
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}

// Handler 客服聊天的HTTP与WebSocket处理器
type Handler struct {
	registry    *chatservice.Registry
	broadcaster *chatservice.Broadcaster
	history     *chatservice.History
	auth        Authenticator
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	queueSize   int
}

// New 创建聊天处理器
func New(registry *chatservice.Registry, broadcaster *chatservice.Broadcaster, history *chatservice.History, auth Authenticator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:    registry,
		broadcaster: broadcaster,
		history:     history,
		auth:        auth,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		queueSize: defaultQueueSize,
	}
}

// RegisterPublicRoutes 注册 WebSocket 路由，员工连接在握手时自行鉴权
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleStaffWebSocket)
	r.Get("/chat/ws/public", h.handleVisitorWebSocket)
}

// RegisterRoutes 注册需要登录的聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/history", h.handleHistory)
}

// handleHistory 按时间正序返回最近的消息
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondErr(w, r, apperr.Invalid("limit must be a positive integer"))
			return
		}
		limit = n
	}

	msgs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	records := make([]chat.Record, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, m.Record())
	}
	utils.RespondJSON(w, http.StatusOK, records)
}
