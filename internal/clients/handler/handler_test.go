package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fixmate_backend/internal/clients/repository"
	"fixmate_backend/internal/clients/service"
	"fixmate_backend/internal/clients/transport"
	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/logger"
	"fixmate_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type fakeRepo struct {
	repository.Repository
	clients map[int64]*domain.Client
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) ([]domain.Client, int, error) {
	out := make([]domain.Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeRepo) SetAdmin(_ context.Context, id int64, isAdmin bool) error {
	c, ok := f.clients[id]
	if !ok {
		return apperr.NotFound("client not found")
	}
	c.IsAdmin = isAdmin
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.clients[id]; !ok {
		return apperr.NotFound("client not found")
	}
	delete(f.clients, id)
	return nil
}

func newTestRouter(repo *fakeRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(service.New(repo, logger.New("development")), validator.New())
	engine := gin.New()
	engine.GET("/clients", h.List)
	engine.PATCH("/clients/:id/admin", h.SetAdmin)
	engine.DELETE("/clients/:id", h.Delete)
	return engine
}

func TestPromoteAndDeleteClient(t *testing.T) {
	repo := &fakeRepo{clients: map[int64]*domain.Client{
		7: {ID: 7, PhoneNumber: "+27821234567", CreatedAt: time.Now()},
	}}
	engine := newTestRouter(repo)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/clients/7/admin", strings.NewReader(`{"isAdmin":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !repo.clients[7].IsAdmin {
		t.Fatalf("expected client to be promoted")
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients", nil))
	var list transport.ClientListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || list.PageSize != 20 || !list.Items[0].IsAdmin {
		t.Fatalf("unexpected list response %+v", list)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/clients/7", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/clients/7", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing client, got %d", rec.Code)
	}
}

func TestSetAdminRequiresFlag(t *testing.T) {
	engine := newTestRouter(&fakeRepo{clients: map[int64]*domain.Client{}})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/clients/7/admin", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/clients/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}
