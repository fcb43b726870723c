package auth

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/pkg/utils"
)

// LoginService 登录所需的服务接口
type LoginService interface {
	Login(ctx context.Context, username, password, ip string) (string, user.User, error)
}

// Handler 认证相关的HTTP处理器
type Handler struct {
	svc LoginService
}

// New 创建认证处理器
func New(svc LoginService) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// RegisterRoutes 注册需要登录的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleLogin 校验用户名密码并签发令牌
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	if payload.Username == "" || payload.Password == "" {
		utils.RespondErr(w, r, apperr.Invalid("username and password are required"))
		return
	}

	token, _, err := h.svc.Login(r.Context(), payload.Username, payload.Password, clientIP(r))
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleMe 返回当前登录用户
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.RespondErr(w, r, apperr.ErrAuth)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"username":         u.Username,
		"role":             string(u.Role),
		"theme_preference": u.ThemePreference,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
