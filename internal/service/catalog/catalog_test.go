package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/product"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/audit"
	"github.com/twocards/backoffice/internal/store/sqlite"
)

type fakeStore struct {
	createErr error
	updateErr error
	importErr error
	imported  []string
	pushed    []int64
}

func (f *fakeStore) CreateProduct(_ context.Context, p product.Product) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "zid-1", nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, p product.Product) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.pushed = append(f.pushed, p.ID)
	return nil
}

func (f *fakeStore) ImportVouchers(_ context.Context, _ string, codes []string) error {
	if f.importErr != nil {
		return f.importErr
	}
	f.imported = append(f.imported, codes...)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	actions []string
}

func (s *recordingSink) Record(_ context.Context, e audit.Entry) {
	s.mu.Lock()
	s.actions = append(s.actions, e.Action)
	s.mu.Unlock()
}

var admin = user.User{ID: 1, Username: "admin", Role: user.RoleAdmin}

func newTestService(t *testing.T, store Storefront) (*Service, *recordingSink) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sink := &recordingSink{}
	return NewService(sqlite.NewProductRepo(db), sqlite.NewVoucherRepo(db), store, sink, nil), sink
}

func TestCreateWithAutoCategoriesAndPush(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t, &fakeStore{})

	p, err := svc.CreateProduct(ctx, admin, ProductInput{NameAR: "بطاقة iTunes", Price: 19}, CreateOptions{AutoCategories: true, PushToZid: true})
	require.NoError(t, err)
	assert.Equal(t, product.DefaultDenominations(), p.Categories)
	assert.Equal(t, "SAR", p.Currency)
	require.NotNil(t, p.ZidProductID)
	assert.Equal(t, "zid-1", *p.ZidProductID)
	assert.NotNil(t, p.LastSyncedAt)
	assert.Equal(t, []string{"zid.create_product", "products.create"}, sink.actions)
}

func TestCreateSurvivesStorefrontFailure(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t, &fakeStore{createErr: apperr.Gateway("zid", errors.New("down"))})

	p, err := svc.CreateProduct(ctx, admin, ProductInput{NameAR: "بطاقة"}, CreateOptions{PushToZid: true})
	require.NoError(t, err)
	assert.Nil(t, p.ZidProductID)
	assert.Contains(t, sink.actions, "zid.create_product.error")

	listed, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeStore{})

	_, err := svc.CreateProduct(ctx, admin, ProductInput{NameAR: "  "}, CreateOptions{})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = svc.CreateProduct(ctx, user.User{ID: 2, Role: user.RoleEmployee}, ProductInput{NameAR: "x"}, CreateOptions{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateAndPush(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc, _ := newTestService(t, store)

	p, err := svc.CreateProduct(ctx, admin, ProductInput{NameAR: "قديم"}, CreateOptions{})
	require.NoError(t, err)

	name := "جديد"
	price := 42.0
	updated, err := svc.UpdateProduct(ctx, admin, p.ID, ProductPatch{NameAR: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "جديد", updated.NameAR)
	assert.Equal(t, 42.0, updated.Price)

	_, err = svc.UpdateProduct(ctx, admin, 999, ProductPatch{NameAR: &name})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualError(t, err, "product not found")

	pushed, err := svc.PushProduct(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, pushed.LastSyncedAt)
	assert.Equal(t, []int64{p.ID}, store.pushed)

	store.updateErr = apperr.Gateway("zid", errors.New("timeout"))
	_, err = svc.PushProduct(ctx, admin, p.ID)
	assert.Equal(t, 502, apperr.Status(err))
}

func TestImportVouchers(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc, _ := newTestService(t, store)

	p, err := svc.CreateProduct(ctx, admin, ProductInput{NameAR: "بطاقة"}, CreateOptions{PushToZid: true})
	require.NoError(t, err)

	_, err = svc.ImportVouchers(ctx, admin, ImportInput{ProductID: 999, Codes: []string{"A"}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	created, err := svc.ImportVouchers(ctx, admin, ImportInput{ProductID: p.ID, Codes: []string{" A ", "", "B"}, AlsoPushToZid: true})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, []string{"A", "B"}, store.imported)

	_, err = svc.ImportVouchers(ctx, admin, ImportInput{ProductID: p.ID, Codes: []string{"C", "A"}})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.ImportVouchers(ctx, admin, ImportInput{ProductID: p.ID, Codes: []string{"D", "D"}})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	all, err := svc.ListVouchers(ctx, &p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
