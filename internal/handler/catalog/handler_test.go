package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/product"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/model/voucher"
	catalogservice "github.com/twocards/backoffice/internal/service/catalog"
)

type stubService struct {
	opts      catalogservice.CreateOptions
	created   catalogservice.ProductInput
	productID *int64
	imported  catalogservice.ImportInput
	pushErr   error
}

func (s *stubService) ListProducts(context.Context) ([]product.Product, error) { return nil, nil }

func (s *stubService) GetProduct(_ context.Context, id int64) (product.Product, error) {
	return product.Product{}, apperr.NotFound("product")
}

func (s *stubService) CreateProduct(_ context.Context, _ user.User, in catalogservice.ProductInput, opts catalogservice.CreateOptions) (product.Product, error) {
	s.created, s.opts = in, opts
	return product.Product{ID: 1, NameAR: in.NameAR, Price: in.Price, Currency: "SAR"}, nil
}

func (s *stubService) UpdateProduct(_ context.Context, _ user.User, id int64, _ catalogservice.ProductPatch) (product.Product, error) {
	return product.Product{ID: id}, nil
}

func (s *stubService) PushProduct(_ context.Context, _ user.User, id int64) (product.Product, error) {
	return product.Product{ID: id}, s.pushErr
}

func (s *stubService) ListVouchers(_ context.Context, productID *int64) ([]voucher.Voucher, error) {
	s.productID = productID
	return nil, nil
}

func (s *stubService) ImportVouchers(_ context.Context, _ user.User, in catalogservice.ImportInput) ([]voucher.Voucher, error) {
	s.imported = in
	return make([]voucher.Voucher, len(in.Codes)), nil
}

func serve(svc Service, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestCreateProductQueryOptions(t *testing.T) {
	svc := &stubService{}

	rec := serve(svc, http.MethodPost, "/products", `{"name_ar":"بطاقة","price":25}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, catalogservice.CreateOptions{AutoCategories: false, PushToZid: true}, svc.opts)
	assert.Equal(t, 25.0, svc.created.Price)

	rec = serve(svc, http.MethodPost, "/products?auto_categories=true&push_to_zid=false", `{"name_ar":"بطاقة"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, catalogservice.CreateOptions{AutoCategories: true, PushToZid: false}, svc.opts)

	rec = serve(svc, http.MethodPost, "/products?push_to_zid=maybe", `{"name_ar":"بطاقة"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductPathErrors(t *testing.T) {
	svc := &stubService{}

	assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/products/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(svc, http.MethodPut, "/products/abc", `{}`).Code)

	svc.pushErr = &apperr.GatewayError{Provider: "zid", Status: 500}
	rec := serve(svc, http.MethodPost, "/products/3/push", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "zid")
}

func TestVoucherRoutes(t *testing.T) {
	svc := &stubService{}

	rec := serve(svc, http.MethodGet, "/vouchers?product_id=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	require.NotNil(t, svc.productID)
	assert.Equal(t, int64(4), *svc.productID)

	rec = serve(svc, http.MethodPost, "/vouchers/import", `{"product_id":4,"codes":["A","B","C"],"also_push_to_zid":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"imported":3}`, rec.Body.String())
	assert.True(t, svc.imported.AlsoPushToZid)
}
