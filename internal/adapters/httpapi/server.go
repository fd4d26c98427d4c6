// Package httpapi exposes the resolver over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	DefaultAddr           = ":5001"
	DefaultMaxUploadBytes = 20 << 20

	requestIDHeader   = "X-Request-ID"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

type Resolver interface {
	Resolve(ctx context.Context, query application.Query) domain.ResolutionOutcome
}

type HistoryService interface {
	History(key string) application.SessionHistory
	Clear(key string) int
	Export(ctx context.Context, key string) (string, error)
}

type StatusService interface {
	Status(ctx context.Context, limit int) application.SystemStatus
}

type Config struct {
	UploadDir      string
	MaxUploadBytes int64
}

type Handlers struct {
	resolver Resolver
	history  HistoryService
	status   StatusService
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandlers(resolver Resolver, history HistoryService, status StatusService, config Config, logger *zap.Logger) *Handlers {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}

	return &Handlers{
		resolver: resolver,
		history:  history,
		status:   status,
		config:   config,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// NewRouter registers the API routes:
//
//	POST   /api/chat     resolve a question, JSON or multipart with a file
//	GET    /api/history  exchange log of a session
//	DELETE /api/history  clear one session, or all without session_id
//	GET    /api/export   write the exchange log to a JSON file
//	GET    /api/status   pool, sessions and available models
//	GET    /metrics      prometheus exposition
//	GET    /uploads/*    previously uploaded files
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	api := router.Group("/api")
	api.POST("/chat", h.HandleChat)
	api.GET("/history", h.HandleHistory)
	api.DELETE("/history", h.HandleClearHistory)
	api.GET("/export", h.HandleExport)
	api.GET("/status", h.HandleStatus)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if h.config.UploadDir != "" {
		router.Static("/uploads", h.config.UploadDir)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

func (h *Handlers) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := h.now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set("request_id", requestID)

		c.Next()

		h.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", h.now().Sub(start)),
		)
	}
}

// Server runs the router until its context is cancelled, then shuts down
// gracefully.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logging.OrNop(logger),
	}
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}
