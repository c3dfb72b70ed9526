package file

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/auth"
	"github.com/abduss/backoffice/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterPublicRoutes mounts fetch, upload and delete by grant id. The server
// mounts them under both /files and /api/file.
func RegisterPublicRoutes(group *gin.RouterGroup, service *Service, cacheMaxAge time.Duration, log *zap.Logger) {
	handler := newHandler(service, cacheMaxAge, log)
	group.GET("/:id", handler.fetch)
	group.PUT("/:id", handler.upload)
	group.DELETE("/:id", handler.remove)
}

// RegisterRoutes mounts the grant issuing endpoint.
func RegisterRoutes(group *gin.RouterGroup, service *Service, log *zap.Logger) {
	handler := newHandler(service, 0, log)
	group.POST("/files/presign", handler.presign)
}

type httpHandler struct {
	service     *Service
	cacheMaxAge time.Duration
	log         *zap.Logger
}

func newHandler(service *Service, cacheMaxAge time.Duration, log *zap.Logger) *httpHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if cacheMaxAge <= 0 {
		cacheMaxAge = 24 * time.Hour
	}
	return &httpHandler{service: service, cacheMaxAge: cacheMaxAge, log: log}
}

type presignRequest struct {
	Files  []Descriptor `json:"files"`
	Access string       `json:"access"`
}

func (h *httpHandler) presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	policy, ok := access.PolicyByName(req.Access)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown access policy %q", req.Access)})
		return
	}

	ids, err := h.service.Presign(c.Request.Context(), auth.Caller(c), req.Files, policy)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

func (h *httpHandler) upload(c *gin.Context) {
	reader := io.Reader(c.Request.Body)
	if limit := h.service.opts.MaxUploadBytes; limit > 0 {
		reader = io.LimitReader(reader, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	url, err := h.service.Upload(c.Request.Context(), auth.Caller(c), c.Param("id"), data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "url": url})
}

func (h *httpHandler) fetch(c *gin.Context) {
	if c.Query("redirect") == "true" {
		u, err := h.service.DownloadURL(c.Request.Context(), auth.Caller(c), c.Param("id"))
		switch {
		case err == nil:
			c.Header("Cache-Control", "no-store")
			c.Redirect(http.StatusFound, u)
			return
		case !errors.Is(err, ErrDirectUnsupported):
			h.writeError(c, err)
			return
		}
	}

	data, g, err := h.service.Fetch(c.Request.Context(), auth.Caller(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if c.Query("no_cache") != "true" {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.cacheMaxAge.Seconds())))
	}
	if g.FileName != "" {
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", g.FileName))
	}
	contentType := g.FileType
	if contentType == "" {
		contentType = defaultFileType
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *httpHandler) remove(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), auth.Caller(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *httpHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ErrRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "file rejected"})
	default:
		logger.FromContext(c.Request.Context(), h.log).Error("file request failed",
			zap.String("correlation_id", logger.CorrelationID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
