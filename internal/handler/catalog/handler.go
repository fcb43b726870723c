package catalog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/product"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/model/voucher"
	catalogservice "github.com/twocards/backoffice/internal/service/catalog"
)

// Service 商品与兑换码服务接口
type Service interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	CreateProduct(ctx context.Context, actor user.User, in catalogservice.ProductInput, opts catalogservice.CreateOptions) (product.Product, error)
	UpdateProduct(ctx context.Context, actor user.User, id int64, patch catalogservice.ProductPatch) (product.Product, error)
	PushProduct(ctx context.Context, actor user.User, id int64) (product.Product, error)
	ListVouchers(ctx context.Context, productID *int64) ([]voucher.Voucher, error)
	ImportVouchers(ctx context.Context, actor user.User, in catalogservice.ImportInput) ([]voucher.Voucher, error)
}

// Handler 商品目录的HTTP处理器
type Handler struct {
	svc Service
}

// New 创建商品目录处理器
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册商品与兑换码路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.handleListProducts)
	r.Post("/products", h.handleCreateProduct)
	r.Get("/products/{productID}", h.handleGetProduct)
	r.Put("/products/{productID}", h.handleUpdateProduct)
	r.Post("/products/{productID}/push", h.handlePushProduct)

	r.Get("/vouchers", h.handleListVouchers)
	r.Post("/vouchers/import", h.handleImportVouchers)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperr.Invalid(name + " must be a number")
	}
	return id, nil
}

// queryBool 解析布尔查询参数，缺省时返回 def
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Invalid(name + " must be true or false")
	}
	return v, nil
}
