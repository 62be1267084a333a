// Package httpapi provides the HTTP API for atlasd.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/config"
	"github.com/fyrsmithlabs/atlasd/internal/tools"
)

// Asker answers questions. Implemented by the orchestrator.
type Asker interface {
	Ask(ctx context.Context, q answer.Question) answer.Envelope
}

// SchemaLister exposes the registered tool schemas for introspection.
type SchemaLister interface {
	Schemas() []tools.Schema
}

// Server provides HTTP endpoints for atlasd.
type Server struct {
	echo    *echo.Echo
	asker   Asker
	schemas SchemaLister
	logger  *zap.Logger
	config  config.ServerConfig
}

// NewServer creates the HTTP server.
func NewServer(asker Asker, schemas SchemaLister, logger *zap.Logger, cfg config.ServerConfig) (*Server, error) {
	if asker == nil {
		return nil, fmt.Errorf("asker cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		asker:   asker,
		schemas: schemas,
		logger:  logger,
		config:  cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/ask", s.handleAsk)
	v1.GET("/tools", s.handleTools)
}

// AskRequest is the request body for POST /api/v1/ask.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAsk answers one question. The response is the full answer envelope,
// evidence included, so callers can audit what the answer is based on.
func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ask request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}

	q := answer.NewQuestion(req.Question)
	q.ConversationID = req.ConversationID

	env := s.asker.Ask(c.Request().Context(), q)

	status := http.StatusOK
	if env.Err != "" && env.Answer == "" {
		status = http.StatusBadGateway
	}
	return c.JSON(status, env)
}

// ToolDescription is one entry in the GET /api/v1/tools response.
type ToolDescription struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Args        []ToolArg `json:"args,omitempty"`
}

// ToolArg describes one declared tool argument.
type ToolArg struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

func (s *Server) handleTools(c echo.Context) error {
	if s.schemas == nil {
		return c.JSON(http.StatusOK, []ToolDescription{})
	}
	schemas := s.schemas.Schemas()
	out := make([]ToolDescription, len(schemas))
	for i, sc := range schemas {
		args := make([]ToolArg, len(sc.Args))
		for j, a := range sc.Args {
			args[j] = ToolArg{
				Name:     a.Name,
				Type:     string(a.Type),
				Required: a.Required,
				Default:  a.Default,
			}
		}
		out[i] = ToolDescription{Name: sc.Name, Description: sc.Description, Args: args}
	}
	return c.JSON(http.StatusOK, out)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
