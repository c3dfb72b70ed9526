package product

import (
	"errors"
	"net/http"

	"github.com/abduss/backoffice/internal/auth"
	"github.com/abduss/backoffice/internal/paging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts product endpoints onto the protected group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/products", handler.list)
	group.POST("/products", handler.create)
	group.GET("/products/:id", handler.get)
	group.PUT("/products/:id", handler.update)
	group.DELETE("/products/:id", handler.remove)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) list(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	params, err := paging.FromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := h.service.List(c.Request.Context(), orgID, params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *httpHandler) get(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	pr, err := h.service.Get(c.Request.Context(), orgID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

func (h *httpHandler) create(c *gin.Context) {
	if _, ok := organization(c); !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pr, err := h.service.Create(c.Request.Context(), auth.Caller(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pr)
}

func (h *httpHandler) update(c *gin.Context) {
	if _, ok := organization(c); !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pr, err := h.service.Update(c.Request.Context(), auth.Caller(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

func (h *httpHandler) remove(c *gin.Context) {
	if _, ok := organization(c); !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), auth.Caller(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func organization(c *gin.Context) (uuid.UUID, bool) {
	user, ok := auth.RequireUser(c)
	if ok {
		if id, err := uuid.Parse(user.OrganizationID); err == nil {
			return id, true
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	return uuid.Nil, false
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return uuid.Nil, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process product"})
	}
}
