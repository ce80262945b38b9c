// Package httpapi exposes the prediction service over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stockForecaster/internal/adapters/logger"
	"stockForecaster/internal/domain"
	"stockForecaster/internal/ports"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
	shutdownTimeout = 10 * time.Second
)

// PredictionService is the application behaviour served over HTTP.
type PredictionService interface {
	Predict(ctx context.Context, ticker string, days int) (*domain.Prediction, error)
	History(ctx context.Context, ticker string, limit int) ([]*domain.Prediction, error)
}

// Config holds configuration for the HTTP server.
type Config struct {
	Addr  string
	Debug bool // Gin debug mode
}

// Server serves the JSON API.
type Server struct {
	cfg    Config
	svc    PredictionService
	logger ports.Logger
	engine *gin.Engine
}

// New creates a Server with its routes registered.
func New(cfg Config, svc PredictionService, logger ports.Logger) (*Server, error) {
	if svc == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for HTTP server")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, svc: svc, logger: logger, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.requestID(), s.accessLog())
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.POST("/predict", s.predict)
	api.GET("/predictions/:ticker", s.history)
	api.GET("/health", s.health)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", map[string]interface{}{"addr": s.cfg.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// requestID tags every request with an ID, reusing a sane incoming X-Request-ID.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "HTTP request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Ticker == "" || !req.Days.set || req.Days.value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing ticker or days"})
		return
	}

	prediction, err := s.svc.Predict(c.Request.Context(), req.Ticker, req.Days.value)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPredictionBody(prediction))
}

func (s *Server) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	predictions, err := s.svc.History(c.Request.Context(), c.Param("ticker"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	body := make([]predictionBody, len(predictions))
	for i, p := range predictions {
		body[i] = newPredictionBody(p)
	}
	c.JSON(http.StatusOK, gin.H{"ticker": c.Param("ticker"), "predictions": body})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ports.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, ports.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), err, "Request failed", map[string]interface{}{"path": c.FullPath()})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
