package organization

import (
	"errors"
	"net/http"

	"github.com/abduss/backoffice/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts organization endpoints onto the router.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/organization", handler.get)
	group.PATCH("/organization", handler.rename)
}

type httpHandler struct {
	service *Service
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *httpHandler) get(c *gin.Context) {
	orgID, _, ok := currentOrganization(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	org, err := h.service.Get(c.Request.Context(), orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch organization"})
		return
	}
	c.JSON(http.StatusOK, org)
}

func (h *httpHandler) rename(c *gin.Context) {
	orgID, user, ok := currentOrganization(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
		return
	}

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, err := h.service.Rename(c.Request.Context(), orgID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename organization"})
		}
		return
	}
	c.JSON(http.StatusOK, org)
}

func currentOrganization(c *gin.Context) (uuid.UUID, auth.ContextUser, bool) {
	user, ok := auth.RequireUser(c)
	if !ok {
		return uuid.Nil, auth.ContextUser{}, false
	}
	id, err := uuid.Parse(user.OrganizationID)
	if err != nil {
		return uuid.Nil, auth.ContextUser{}, false
	}
	return id, user, true
}
