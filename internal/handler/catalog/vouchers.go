package catalog

import (
	"net/http"
	"strconv"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/voucher"
	catalogservice "github.com/twocards/backoffice/internal/service/catalog"
	"github.com/twocards/backoffice/pkg/utils"
)

func (h *Handler) handleListVouchers(w http.ResponseWriter, r *http.Request) {
	var productID *int64
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.RespondErr(w, r, apperr.Invalid("product_id must be a number"))
			return
		}
		productID = &id
	}

	list, err := h.svc.ListVouchers(r.Context(), productID)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	if list == nil {
		list = []voucher.Voucher{}
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleImportVouchers(w http.ResponseWriter, r *http.Request) {
	var payload catalogservice.ImportInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	imported, err := h.svc.ImportVouchers(r.Context(), actor, payload)
	if err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]int{"imported": len(imported)})
}
