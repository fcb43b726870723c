package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/ai"
	"github.com/twocards/backoffice/internal/service/audit"
)

type fakeGenerator struct {
	prompt string
}

func (f *fakeGenerator) Describe(_ context.Context, req ai.DescriptionRequest) (string, error) {
	return "وصف " + req.NameAR, nil
}

func (f *fakeGenerator) StreamDescribe(context.Context, ai.DescriptionRequest, func(string) error) error {
	return nil
}

func (f *fakeGenerator) Image(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return "https://img.example/1.png", nil
}

type recordingSink struct{ entries []audit.Entry }

func (s *recordingSink) Record(_ context.Context, e audit.Entry) { s.entries = append(s.entries, e) }

func post(h *Handler, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), user.User{ID: 7, Role: user.RoleEmployee}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDescription(t *testing.T) {
	sink := &recordingSink{}
	rec := post(New(&fakeGenerator{}, sink), "/ai/description", `{"name_ar":"بطاقة"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"description":"وصف بطاقة"}`, rec.Body.String())
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "ai.description", sink.entries[0].Action)
	assert.Equal(t, int64(7), *sink.entries[0].UserID)
}

func TestDescriptionValidation(t *testing.T) {
	sink := &recordingSink{}
	h := New(&fakeGenerator{}, sink)

	assert.Equal(t, http.StatusBadRequest, post(h, "/ai/description", `{"name_ar":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, "/ai/description", `{"name_ar":"x","tone":"angry"}`).Code)
	assert.Empty(t, sink.entries)
}

func TestImageClipsAuditedPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	sink := &recordingSink{}
	prompt := strings.Repeat("ب", 100)

	rec := post(New(gen, sink), "/ai/image", `{"prompt":"`+prompt+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://img.example/1.png"}`, rec.Body.String())
	assert.Equal(t, prompt, gen.prompt)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, strings.Repeat("ب", maxAuditedPrompt), sink.entries[0].Details["prompt"])
}

func TestImageRequiresPrompt(t *testing.T) {
	rec := post(New(&fakeGenerator{}, nil), "/ai/image", `{"prompt":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnavailableWithoutGenerator(t *testing.T) {
	h := New(nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, post(h, "/ai/description", `{"name_ar":"x"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, post(h, "/ai/image", `{"prompt":"x"}`).Code)
}
