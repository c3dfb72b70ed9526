package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abduss/backoffice/internal/objectstore"
	"github.com/gin-gonic/gin"
)

const (
	readinessTimeout = 5 * time.Second
	readinessProbe   = ".health-probe"
)

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": "postgres",
					"error":     err.Error(),
				})
				return
			}
		}

		if err := checkObjectStore(ctx, deps.ObjectStore); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"component": "object_store",
				"error":     err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// checkObjectStore reads a key that normally does not exist; a not-found
// answer proves the backend is reachable.
func checkObjectStore(ctx context.Context, store objectstore.Store) error {
	if store == nil {
		return nil
	}
	_, _, err := store.Get(ctx, readinessProbe)
	if err == nil || errors.Is(err, objectstore.ErrObjectNotFound) {
		return nil
	}
	return err
}
