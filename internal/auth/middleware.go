package auth

import (
	"net/http"
	"strings"

	"github.com/abduss/backoffice/internal/access"
	"github.com/gin-gonic/gin"
)

type contextKey string

const userContextKey contextKey = "backofficeUser"

// ContextUser represents the authenticated principal stored in the request context.
type ContextUser struct {
	ID             string
	OrganizationID string
	Email          string
	IsAdmin        bool
}

// AuthMiddleware validates bearer tokens and injects the authenticated user.
// Tokens without an organization are rejected, since every route behind it is
// tenant scoped.
func AuthMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := service.Authenticate(c.Request.Context(), token)
		if err != nil || claims.OrganizationID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		SetUser(c, contextUserFrom(claims))
		c.Next()
	}
}

// OptionalAuth injects the user when a valid bearer token is present. It never
// rejects the request; handlers decide what an anonymous caller may do.
func OptionalAuth(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
			if claims, err := service.Authenticate(c.Request.Context(), token); err == nil {
				SetUser(c, contextUserFrom(claims))
			}
		}
		c.Next()
	}
}

// SetUser stores the principal on the request context.
func SetUser(c *gin.Context, user ContextUser) {
	c.Set(string(userContextKey), user)
}

// CurrentUser extracts the authenticated user from the context.
func CurrentUser(c *gin.Context) (ContextUser, bool) {
	value, exists := c.Get(string(userContextKey))
	if !exists {
		return ContextUser{}, false
	}
	user, ok := value.(ContextUser)
	return user, ok
}

// RequireUser returns the authenticated user bound to an organization.
func RequireUser(c *gin.Context) (ContextUser, bool) {
	user, ok := CurrentUser(c)
	if !ok || user.ID == "" || user.OrganizationID == "" {
		return ContextUser{}, false
	}
	return user, true
}

// Caller returns the access control identity of the request, anonymous when
// no user is attached.
func Caller(c *gin.Context) access.Caller {
	user, ok := CurrentUser(c)
	if !ok {
		return access.Anonymous()
	}
	return access.Caller{UserID: user.ID, OrganizationID: user.OrganizationID}
}

func contextUserFrom(claims UserClaims) ContextUser {
	return ContextUser{
		ID:             claims.UserID,
		OrganizationID: claims.OrganizationID,
		Email:          claims.Email,
		IsAdmin:        claims.IsAdmin,
	}
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
