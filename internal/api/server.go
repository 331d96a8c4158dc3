package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Server is the thin HTTP surface in front of the derived-view readers. It
// carries no auth/session middleware. Its only write route is the manual
// probe trigger, whose result is persisted like a scheduled probe's; every
// other route is a read.
type Server struct {
	router *gin.Engine
	http   *http.Server
}

// NewServer builds a gin router with the health check and status handlers
// wired, ready to ListenAndServe on addr.
func NewServer(addr string, releaseMode bool, statusHandlers *StatusHandlers, metricsHandler http.Handler) *Server {
	if releaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "statusmon-core",
		})
	})

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	statusHandlers.Register(router)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe starts the HTTP server. Returns http.ErrServerClosed on a
// clean Shutdown.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests within the bound of ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
