// Package http provides the HTTP adapter for the application layer: a thin
// translation from requests to service calls and from typed errors to
// status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zhenghaoli/qacollab/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string
}

// Services bundles the application services the server exposes.
type Services struct {
	Tasks         service.TaskService
	Assignments   service.AssignmentService
	Drafts        service.DraftService
	Submissions   service.SubmissionService
	Progress      service.ProgressService
	Summaries     service.SummaryService
	Sessions      service.SessionService
	Notifications service.NotificationService
	Exports       service.ExportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	s.router.Use(cors.New(corsConfig))
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.services, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	api.Use(authMiddleware(s.config.JWTSecret))
	{
		tasks := api.Group("/tasks")
		{
			tasks.POST("", handlers.CreateTask)
			tasks.GET("", handlers.ListTasks)
			tasks.GET("/:id", handlers.GetTask)
			tasks.DELETE("/:id", handlers.DeleteTask)

			tasks.POST("/:id/assign", handlers.AssignTask)
			tasks.POST("/:id/submit", handlers.SubmitTask)
			tasks.POST("/:id/reject", handlers.RejectAssignment)
			tasks.POST("/:id/reopen", handlers.ReopenTask)
			tasks.POST("/:id/finalize", handlers.FinalizeTask)

			tasks.GET("/:id/records", handlers.GetWorkingRecords)
			tasks.PUT("/:id/records/:recordID/draft", handlers.SaveDraft)
			tasks.DELETE("/:id/records/:recordID/draft", handlers.DiscardDraft)
			tasks.DELETE("/:id/records/:recordID", handlers.MarkRecordDeleted)
			tasks.DELETE("/:id/drafts", handlers.DiscardAllDrafts)

			tasks.GET("/:id/progress", handlers.GetProgress)
			tasks.GET("/:id/participants", handlers.GetParticipants)

			tasks.GET("/:id/summary", handlers.GetSummary)
			tasks.GET("/:id/summary/stats", handlers.GetSummaryStats)
			tasks.PUT("/:id/summary/records/:recordID", handlers.EditSummaryRecord)

			tasks.GET("/:id/export", handlers.ExportTask)

			tasks.POST("/:id/session/start", handlers.StartSession)
			tasks.POST("/:id/session/heartbeat", handlers.SessionHeartbeat)
			tasks.POST("/:id/session/end", handlers.EndSession)
			tasks.GET("/:id/session", handlers.SessionStatus)
		}

		api.GET("/assignments/overdue", handlers.ListOverdue)

		notifications := api.Group("/notifications")
		{
			notifications.GET("", handlers.ListNotifications)
			notifications.POST("/:id/read", handlers.MarkNotificationRead)
			notifications.POST("/read-all", handlers.MarkAllNotificationsRead)
		}
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
