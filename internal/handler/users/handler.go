package users

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/user"
	usersservice "github.com/twocards/backoffice/internal/service/users"
	"github.com/twocards/backoffice/pkg/utils"
)

// Service 账号管理服务接口
type Service interface {
	List(ctx context.Context, actor user.User) ([]user.User, error)
	Create(ctx context.Context, actor user.User, in usersservice.CreateInput) (user.User, error)
	Update(ctx context.Context, actor user.User, id int64, in usersservice.UpdateInput) (user.User, error)
}

// Handler 账号管理的HTTP处理器
type Handler struct {
	svc Service
}

// New 创建账号处理器
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册账号相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Post("/users", h.handleCreate)
	r.Put("/users/{userID}", h.handleUpdate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.UserFrom(r.Context())
	list, err := h.svc.List(r.Context(), actor)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload usersservice.CreateInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	created, err := h.svc.Create(r.Context(), actor, payload)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		utils.RespondErr(w, r, apperr.Invalid("user id must be a number"))
		return
	}

	var payload usersservice.UpdateInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	updated, err := h.svc.Update(r.Context(), actor, id, payload)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}
