package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Server wraps the gin engine and the HTTP lifecycle. Route registration is
// left to the reporting layer; the server only owns /health and shutdown.
type Server struct {
	Engine *gin.Engine
	Addr   string

	rollupDB *sql.DB
}

func New(addr string, rollupDB *sql.DB, mode string) *Server {
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	s := &Server{
		Engine:   r,
		Addr:     addr,
		rollupDB: rollupDB,
	}

	r.GET("/health", s.healthHandler)

	return s
}

// Serving reports from a committed snapshot only needs the rollup store, so
// health tracks that connection. An unreachable upstream degrades refreshes,
// not reads, and surfaces through refresh status instead.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.rollupDB != nil {
		if err := s.rollupDB.PingContext(ctx); err != nil {
			slog.Error("Health check failed: rollup store unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "rollup store unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"rollup_store": "connected",
	})
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
