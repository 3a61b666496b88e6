package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/workflow"
	"github.com/quillflow/quillflow/pkg/logger"
)

const shutdownGrace = 10 * time.Second

// RunReader extends the orchestrator's store with run-result reads; both
// store implementations satisfy it.
type RunReader interface {
	workflow.Store
	GetRunResult(ctx context.Context, id core.ID) (*workflow.RunResult, error)
}

// Server is the HTTP surface: execute a workflow, poll a run, inspect a
// tool's derived signature.
type Server struct {
	addr         string
	store        RunReader
	orchestrator *workflow.Orchestrator
	http         *http.Server
}

func New(addr string, store RunReader, orchestrator *workflow.Orchestrator) *Server {
	return &Server{addr: addr, store: store, orchestrator: orchestrator}
}

// Router builds the gin engine. Exposed separately so tests can drive it
// without a listening socket.
func (s *Server) Router(ctx context.Context) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(ctx))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v0")
	api.POST("/workflows/:id/execute", s.executeWorkflow)
	api.GET("/workflows/:id", s.getWorkflow)
	api.GET("/runs/:id", s.getRun)
	api.GET("/tools/:id/signature", s.getToolSignature)
	return r
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", s.addr)
		errCh <- s.http.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		log.Info("http server shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

// requestLogger attaches a per-request logger carrying a request ID, so
// handlers and the engine below them log with consistent fields.
func requestLogger(base context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		log := logger.FromContext(base).With(
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		ctx := logger.ContextWithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		started := time.Now()
		c.Next()
		log.Info("request handled",
			"status", c.Writer.Status(), "duration", time.Since(started))
	}
}
