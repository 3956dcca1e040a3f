package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type DBPinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandler serves health and route introspection.
type SystemHandler struct {
	DB DBPinger
	// Redis is optional; nil skips the check.
	Redis  redis.UniversalClient
	Engine *gin.Engine
}

func (h SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true
	if h.DB == nil {
		checks["database"] = "not connected"
		healthy = false
	} else if err := h.DB.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "checks": checks})
}

func (h SystemHandler) Routes(c *gin.Context) {
	if h.Engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "router not ready"})
		return
	}
	routes := h.Engine.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": len(out), "data": gin.H{"routes": out}})
}
