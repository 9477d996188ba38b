package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Operational API
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.GET("/api/matches/:id/viewers", s.handleViewers)
	s.echo.GET("/api/matches/:id/snapshot", s.handleSnapshot)
	s.echo.POST("/api/matches/:id/poll", s.handleForcePoll)
	s.echo.POST("/api/matches/:id/poll/commentary", s.handleForcePollCommentary)

	// Viewer connections
	s.echo.GET("/ws/matches/:id", s.handleWebSocket)
}
