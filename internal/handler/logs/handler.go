package logs

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/apperr"
	auditlog "github.com/twocards/backoffice/internal/model/audit"
	"github.com/twocards/backoffice/pkg/utils"
)

const maxLimit = 1000

// Lister 审计日志查询接口
type Lister interface {
	List(ctx context.Context, filter auditlog.Filter) ([]auditlog.Log, error)
}

// Handler 审计日志的HTTP处理器
type Handler struct {
	logs Lister
}

// New 创建审计日志处理器
func New(logs Lister) *Handler {
	return &Handler{logs: logs}
}

// RegisterRoutes 注册日志查询路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/logs", h.handleList)
}

// handleList 支持 user_id、action、since、limit 查询参数
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	entries, err := h.logs.List(r.Context(), filter)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []auditlog.Log{}
	}
	utils.RespondJSON(w, http.StatusOK, entries)
}

func parseFilter(r *http.Request) (auditlog.Filter, error) {
	q := r.URL.Query()
	filter := auditlog.Filter{Action: q.Get("action")}

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperr.Invalid("user_id must be a number")
		}
		filter.UserID = &id
	}

	if raw := q.Get("since"); raw != "" {
		since, err := parseTime(raw)
		if err != nil {
			return filter, apperr.Invalid("since must be an ISO-8601 timestamp")
		}
		filter.Since = since
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, apperr.Invalid("limit must be a positive number")
		}
		filter.Limit = min(n, maxLimit)
	}
	return filter, nil
}

var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC 3339 and zone-less timestamps, which are read as UTC.
func parseTime(raw string) (time.Time, error) {
	var err error
	for _, layout := range sinceLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
