package integrations

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/gateway/status"
	"github.com/twocards/backoffice/internal/gateway/whatsapp"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/service/audit"
	"github.com/twocards/backoffice/pkg/utils"
)

// Messenger 发送 WhatsApp 模板消息
type Messenger interface {
	Send(ctx context.Context, t whatsapp.Template) (string, error)
}

// StatusCollector 汇总各集成的健康状态
type StatusCollector interface {
	Collect(ctx context.Context) []status.Result
}

// Handler 第三方集成的HTTP处理器
type Handler struct {
	messenger Messenger
	status    StatusCollector
	audit     audit.Sink
}

// New 创建集成处理器
func New(messenger Messenger, collector StatusCollector, sink audit.Sink) *Handler {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	return &Handler{messenger: messenger, status: collector, audit: sink}
}

// RegisterRoutes 注册集成路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/whatsapp/send", h.handleWhatsAppSend)
	r.Get("/system/status", h.handleSystemStatus)
}

func (h *Handler) handleWhatsAppSend(w http.ResponseWriter, r *http.Request) {
	var payload whatsapp.Template
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	id, err := h.messenger.Send(r.Context(), payload)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	h.audit.Record(r.Context(), audit.Entry{
		Action:  "whatsapp.send",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"to": payload.To, "template": payload.Name},
	})
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "sent", "id": id})
}

// handleSystemStatus 并发检查所有集成，单个失败不影响其他结果
func (h *Handler) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	results := h.status.Collect(r.Context())

	names := make([]string, 0, len(results))
	for _, res := range results {
		names = append(names, res.Name)
	}

	actor, _ := middleware.UserFrom(r.Context())
	h.audit.Record(r.Context(), audit.Entry{
		Action:  "system.status_checked",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"checks": names},
	})
	utils.RespondJSON(w, http.StatusOK, map[string]any{"services": results})
}
