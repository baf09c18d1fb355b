package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finbot-ai/finbot-go/pkg/agent"
	"github.com/finbot-ai/finbot-go/pkg/registry"
	"github.com/finbot-ai/finbot-go/pkg/report"
	"github.com/finbot-ai/finbot-go/pkg/scheduler"
)

// Server exposes the tenant registry, report and chat surface over HTTP.
// Authentication is deliberately absent; deploy behind a gateway that has
// already authorized the caller.
type Server struct {
	Registry  *registry.Registry
	Reports   *report.Generator
	Runtime   *agent.Runtime
	Scheduler *scheduler.Service

	httpServer *http.Server
}

// NewServer wires the HTTP surface over the core services.
func NewServer(reg *registry.Registry, reports *report.Generator, runtime *agent.Runtime, sched *scheduler.Service) *Server {
	return &Server{
		Registry:  reg,
		Reports:   reports,
		Runtime:   runtime,
		Scheduler: sched,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/health", s.health)

		api.POST("/users", s.createUser)
		api.GET("/users", s.listUsers)
		api.GET("/users/:id", s.getUser)
		api.DELETE("/users/:id", s.deleteUser)
		api.PUT("/users/:id/watchlist", s.updateWatchlist)
		api.PUT("/users/:id/preferences", s.updatePreferences)

		api.POST("/users/:id/reports", s.generateReport)
		api.GET("/users/:id/reports", s.listReports)
		api.GET("/users/:id/reports/:reportID", s.getReport)
		api.GET("/users/:id/schedule", s.getSchedule)
		api.POST("/users/:id/chat", s.chat)
	}

	return router
}

// Start serves until Shutdown is called.
func (s *Server) Start(host string, port int) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.Router(),
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests with a short grace period.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
