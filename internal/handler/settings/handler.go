package settings

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/setting"
	"github.com/twocards/backoffice/internal/service/audit"
	settingsservice "github.com/twocards/backoffice/internal/service/settings"
	"github.com/twocards/backoffice/pkg/utils"
)

// Store 设置读写接口
type Store interface {
	Read(ctx context.Context, keys []string) (map[string]*string, error)
	Write(ctx context.Context, entries []settingsservice.Entry) (int, error)
}

// Handler 集成凭证设置的HTTP处理器，仅管理员可访问
type Handler struct {
	store Store
	audit audit.Sink
}

// New 创建设置处理器
func New(store Store, sink audit.Sink) *Handler {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	return &Handler{store: store, audit: sink}
}

// RegisterRoutes 注册设置路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/settings", h.handleRead)
		r.Post("/settings", h.handleWrite)
	})
}

type item struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// handleRead 按允许列表顺序返回所有键，未设置的值为 null
func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	values, err := h.store.Read(r.Context(), setting.AllowedKeys)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	items := make([]item, 0, len(setting.AllowedKeys))
	set := 0
	for _, k := range setting.AllowedKeys {
		items = append(items, item{Key: k, Value: values[k]})
		if values[k] != nil {
			set++
		}
	}

	actor, _ := middleware.UserFrom(r.Context())
	h.audit.Record(r.Context(), audit.Entry{
		Action:  "settings.read",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"count": set},
	})
	utils.RespondJSON(w, http.StatusOK, items)
}

type writeRequest struct {
	Values []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"values"`
}

// handleWrite 整批校验键名，任一键不在允许列表中则不写入任何值
func (h *Handler) handleWrite(w http.ResponseWriter, r *http.Request) {
	var payload writeRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	entries := make([]settingsservice.Entry, 0, len(payload.Values))
	keys := make([]string, 0, len(payload.Values))
	for _, v := range payload.Values {
		if !setting.Allowed(v.Key) {
			utils.RespondErr(w, r, apperr.Invalid(fmt.Sprintf("key %q is not allowed", v.Key)))
			return
		}
		entries = append(entries, settingsservice.Entry{Key: v.Key, Value: v.Value})
		keys = append(keys, v.Key)
	}

	n, err := h.store.Write(r.Context(), entries)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	h.audit.Record(r.Context(), audit.Entry{
		Action:  "settings.update",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"keys": keys},
	})
	utils.RespondJSON(w, http.StatusOK, map[string]int{"updated": n})
}
