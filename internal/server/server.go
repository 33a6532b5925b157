package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-service/internal/handler"
)

// Server wires the HTTP routes around the cleaning pipeline.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// NewServer builds the router and registers all routes.
func NewServer(h *handler.Handler, logger *zap.Logger) *Server {
	router := gin.Default()

	api := router.Group("/api/v1")
	{
		api.POST("/process", h.Process)
		api.GET("/artifacts", h.ListArtifacts)
		api.GET("/artifacts/:name", h.GetArtifact)
	}
	router.GET("/health", h.HealthCheck)

	return &Server{router: router, logger: logger}
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully, draining in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		s.logger.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Server shutdown failed", zap.Error(err))
		return
	}
	s.logger.Info("Server stopped")
}
