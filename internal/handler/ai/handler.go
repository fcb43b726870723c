package ai

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/service/ai"
	"github.com/twocards/backoffice/internal/service/audit"
	"github.com/twocards/backoffice/pkg/utils"
)

const maxAuditedPrompt = 80

// Handler AI 文案与图片生成的HTTP处理器
type Handler struct {
	gen   ai.Generator
	audit audit.Sink
}

// New 创建AI处理器，gen 为 nil 时接口返回 503
func New(gen ai.Generator, sink audit.Sink) *Handler {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	return &Handler{gen: gen, audit: sink}
}

// RegisterRoutes 注册AI路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ai/description", h.handleDescription)
	r.Post("/ai/image", h.handleImage)
}

func (h *Handler) handleDescription(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai generation unavailable")
		return
	}

	var payload ai.DescriptionRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	description, err := h.gen.Describe(r.Context(), payload)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	h.audit.Record(r.Context(), audit.Entry{
		Action:  "ai.description",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"name_ar": payload.NameAR},
	})
	utils.RespondJSON(w, http.StatusOK, map[string]string{"description": description})
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai generation unavailable")
		return
	}

	var payload imageRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	if strings.TrimSpace(payload.Prompt) == "" {
		utils.RespondErr(w, r, apperr.Invalid("prompt is required"))
		return
	}

	url, err := h.gen.Image(r.Context(), payload.Prompt)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	h.audit.Record(r.Context(), audit.Entry{
		Action:  "ai.image",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"prompt": clip(payload.Prompt, maxAuditedPrompt)},
	})
	utils.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
