package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abduss/backoffice/internal/access"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareRouter(t *testing.T, mw gin.HandlerFunc) (*gin.Engine, *access.Caller) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var seen access.Caller
	router := gin.New()
	router.GET("/probe", mw, func(c *gin.Context) {
		seen = Caller(c)
		c.Status(http.StatusOK)
	})
	return router, &seen
}

func issueToken(t *testing.T, service *Service) string {
	t.Helper()
	result, err := service.Register(context.Background(), registerInput())
	require.NoError(t, err)
	return result.Tokens.AccessToken
}

func probe(router *gin.Engine, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestOptionalAuthNeverRejects(t *testing.T) {
	service := NewService(newMemoryStore(), testConfig())
	router, seen := newMiddlewareRouter(t, OptionalAuth(service))

	assert.Equal(t, http.StatusOK, probe(router, ""))
	assert.Equal(t, access.Anonymous(), *seen)

	assert.Equal(t, http.StatusOK, probe(router, "Bearer garbage"))
	_, ok := seen.Identity()
	assert.False(t, ok)

	token := issueToken(t, service)
	assert.Equal(t, http.StatusOK, probe(router, "Bearer "+token))
	_, ok = seen.Identity()
	assert.True(t, ok)
	assert.NotEmpty(t, seen.OrganizationID)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	service := NewService(newMemoryStore(), testConfig())
	router, seen := newMiddlewareRouter(t, AuthMiddleware(service))

	assert.Equal(t, http.StatusUnauthorized, probe(router, ""))
	assert.Equal(t, http.StatusUnauthorized, probe(router, "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, probe(router, "Bearer garbage"))

	token := issueToken(t, service)
	assert.Equal(t, http.StatusOK, probe(router, "bearer "+token))
	assert.NotEmpty(t, seen.UserID)
}

func TestAuthMiddlewareRequiresOrganization(t *testing.T) {
	service := NewService(newMemoryStore(), testConfig())
	service.UseExternalVerifier(stubVerifier{claims: UserClaims{UserID: "kc-1"}})
	router, _ := newMiddlewareRouter(t, AuthMiddleware(service))

	assert.Equal(t, http.StatusUnauthorized, probe(router, "Bearer external"))

	optional, seen := newMiddlewareRouter(t, OptionalAuth(service))
	assert.Equal(t, http.StatusOK, probe(optional, "Bearer external"))
	assert.Equal(t, "kc-1", seen.UserID)
}
