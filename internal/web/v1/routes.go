package v1

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duynhne/user-management/middleware"
)

// UserRoutePrefixes are the path aliases that serve the same user handlers.
var UserRoutePrefixes = []string{"/api/users", "/users"}

// RegisterUserRoutes mounts the CRUD endpoints under every alias prefix.
func RegisterUserRoutes(r gin.IRouter, h *UserHandler) {
	for _, prefix := range UserRoutePrefixes {
		g := r.Group(prefix)
		g.GET("", h.ListUsers)
		g.GET("/:id", h.GetUser)
		g.POST("", h.CreateUser)
		g.PUT("/:id", h.UpdateUser)
		g.DELETE("/:id", h.DeleteUser)
	}
}

// TrimTrailingSlash routes /api/users/ and /api/users/1/ as their slash-less
// forms instead of answering with a redirect.
func TrimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if len(p) <= 1 || !strings.HasSuffix(p, "/") {
			next.ServeHTTP(w, r)
			return
		}

		r2 := new(http.Request)
		*r2 = *r
		u := *r.URL
		u.Path = strings.TrimRight(p, "/")
		if u.Path == "" {
			u.Path = "/"
		}
		u.RawPath = ""
		r2.URL = &u
		next.ServeHTTP(w, r2)
	})
}

// NotFound answers unmatched routes with the requested path.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{Success: false, Error: "Route not found", Path: c.Request.URL.Path})
}

// Recovery converts panics into the 500 envelope. The panic value is only
// included as message when exposeDetails is set (non-production).
func Recovery(exposeDetails bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		middleware.GetLoggerFromGinContext(c).Error("Unhandled panic",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)

		resp := Response{Success: false, Error: "Internal server error"}
		if exposeDetails {
			resp.Message = fmt.Sprint(recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	})
}

// SystemHandler serves the service index and the liveness/readiness probes.
type SystemHandler struct {
	name         string
	version      string
	startedAt    time.Time
	shuttingDown *atomic.Bool
}

// NewSystemHandler creates a handler; shuttingDown flips readiness to 503.
func NewSystemHandler(name, version string, shuttingDown *atomic.Bool) *SystemHandler {
	return &SystemHandler{
		name:         name,
		version:      version,
		startedAt:    time.Now(),
		shuttingDown: shuttingDown,
	}
}

// Register mounts /, /health and /ready.
func (s *SystemHandler) Register(r gin.IRouter) {
	r.GET("/", s.Index)
	r.GET("/health", s.Health)
	r.GET("/ready", s.Ready)
}

// Index describes the service and its endpoints.
func (s *SystemHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": s.name,
		"version": s.version,
		"endpoints": gin.H{
			"users":     "/users",
			"users_api": "/api/users",
			"health":    "/health",
		},
	})
}

// Health reports liveness and process uptime in seconds.
func (s *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}

// Ready returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
func (s *SystemHandler) Ready(c *gin.Context) {
	if s.shuttingDown != nil && s.shuttingDown.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
