package catalog

import (
	"net/http"

	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/product"
	catalogservice "github.com/twocards/backoffice/internal/service/catalog"
	"github.com/twocards/backoffice/pkg/utils"
)

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListProducts(r.Context())
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	if list == nil {
		list = []product.Product{}
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productID")
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

// handleCreateProduct 支持 auto_categories（默认 false）和 push_to_zid（默认 true）查询参数
func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	autoCategories, err := queryBool(r, "auto_categories", false)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	push, err := queryBool(r, "push_to_zid", true)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	var payload catalogservice.ProductInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	created, err := h.svc.CreateProduct(r.Context(), actor, payload, catalogservice.CreateOptions{
		AutoCategories: autoCategories,
		PushToZid:      push,
	})
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productID")
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	var patch catalogservice.ProductPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	updated, err := h.svc.UpdateProduct(r.Context(), actor, id, patch)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handlePushProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productID")
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	pushed, err := h.svc.PushProduct(r.Context(), actor, id)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, pushed)
}
