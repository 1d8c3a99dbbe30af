package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/actionsum/lastapp/internal/config"
	"github.com/actionsum/lastapp/internal/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
}

// NewRouter builds the gin engine serving h
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	h.Register(r)
	return r
}

func NewServer(cfg *config.Config, h *Handler, customPort int) *Server {
	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(h),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: h,
		server:  httpServer,
	}
}

// Start blocks serving requests; it returns http.ErrServerClosed after Shutdown
func (s *Server) Start(ctx context.Context) error {
	logger.Infof(ctx, "starting web server on http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.DebugKV(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
