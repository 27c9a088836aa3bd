// Package control exposes a loopback HTTP API so hotkey daemons and
// scripts can drive the dictation session.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voxtype/voxtype/internal/session"
)

// Session is the slice of the orchestrator the control API needs.
type Session interface {
	Toggle(ctx context.Context) (session.State, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	CurrentState() session.State
}

// LevelReader reports the current capture loudness for meters.
type LevelReader interface {
	Level() float64
}

// Server is the loopback control API.
type Server struct {
	session Session
	levels  LevelReader
	logger  *slog.Logger
	router  *gin.Engine
	httpSrv *http.Server
}

// New creates a control server bound to the given session. levels may be
// nil; /state then omits the level field.
func New(sess Session, levels LevelReader, env string, logger *slog.Logger) *Server {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		session: sess,
		levels:  levels,
		logger:  logger,
		router:  router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/state", s.handleState)
	s.router.POST("/toggle", s.handleToggle)
	s.router.POST("/start", s.handleStart)
	s.router.POST("/stop", s.handleStop)
}

// Run serves the API on addr until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control API listening", "addr", addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleState(c *gin.Context) {
	body := gin.H{"state": s.session.CurrentState().String()}
	if s.levels != nil {
		body["level"] = s.levels.Level()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleToggle(c *gin.Context) {
	state, err := s.session.Toggle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"state": state.String(),
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state.String()})
}

func (s *Server) handleStart(c *gin.Context) {
	if err := s.session.Start(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"state": s.session.CurrentState().String(),
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.session.CurrentState().String()})
}

func (s *Server) handleStop(c *gin.Context) {
	if err := s.session.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"state": s.session.CurrentState().String(),
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.session.CurrentState().String()})
}
