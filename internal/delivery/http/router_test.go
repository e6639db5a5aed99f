package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-plugins/product-reviews/internal/config"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/handler"
	"github.com/storefront-plugins/product-reviews/internal/pkg/auth"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// newTestRouter builds the full route tree. Handlers carry nil
// collaborators; these tests only exercise routing and auth middleware,
// which resolve before any collaborator is touched.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	log := logger.New("test")
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
	tokens := auth.NewTokenService(config.AuthConfig{
		Secret: "test-secret",
		Issuer: "product-reviews",
	})

	storeHandler := handler.NewStoreReviewHandler(nil, nil, log)
	adminHandler := handler.NewAdminReviewHandler(nil, nil, nil, log)
	uploadHandler := handler.NewUploadHandler(nil, log)

	return NewRouter(storeHandler, adminHandler, uploadHandler, tokens, cfg, log).Setup()
}

func TestRouter_UploadRequiresNoAuth(t *testing.T) {
	router := newTestRouter(t)

	// No Authorization header: the request must reach the upload handler,
	// which rejects the empty body as a bad multipart request rather than
	// the middleware rejecting it as unauthenticated.
	req := httptest.NewRequest(http.MethodPost, "/store/product-reviews/upload", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_StoreWritesRequireCustomerAuth(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/store/product-reviews",
		"/store/product-reviews/3f0e7b42-8f36-4e8e-9a52-b4f1f6b4a111",
	} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "POST %s without token", path)
	}
}

func TestRouter_AdminRejectsCustomerScope(t *testing.T) {
	router := newTestRouter(t)

	tokens := auth.NewTokenService(config.AuthConfig{
		Secret: "test-secret",
		Issuer: "product-reviews",
	})
	token, err := tokens.Generate(uuid.New(), auth.ScopeCustomer, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/admin/product-reviews/3f0e7b42-8f36-4e8e-9a52-b4f1f6b4a111", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_HealthIsPublic(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
