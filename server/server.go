// Package server is the local control surface: the HTTP analogue of the
// panel the browser extension rendered. It triggers sync runs, reports
// status, and serves the export artifacts.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/chatporter/api"
	"github.com/hrygo/chatporter/capture"
	"github.com/hrygo/chatporter/daterange"
	"github.com/hrygo/chatporter/export"
	"github.com/hrygo/chatporter/internal/profile"
	"github.com/hrygo/chatporter/internal/version"
	"github.com/hrygo/chatporter/store"
	"github.com/hrygo/chatporter/syncer"
)

// Runner is the orchestrator surface the server drives.
type Runner interface {
	Run(ctx context.Context, interval daterange.Interval) (*syncer.Report, error)
	Status() syncer.Status
}

// Server hosts the control API.
type Server struct {
	e          *echo.Echo
	profile    *profile.Profile
	store      *store.Store
	runner     Runner
	captureLog *capture.Log
	metrics    *Metrics
	logger     *slog.Logger
}

// NewServer wires the control API. captureLog may be nil.
func NewServer(p *profile.Profile, st *store.Store, runner Runner, captureLog *capture.Log, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		e:          echo.New(),
		profile:    p,
		store:      st,
		runner:     runner,
		captureLog: captureLog,
		metrics:    NewMetrics(),
		logger:     logger,
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.e.Group("/api/v1")
	v1.POST("/sync", s.handleSync)
	v1.GET("/status", s.handleStatus)
	v1.GET("/export", s.handleExport)
	v1.GET("/capture", s.handleCapture)

	s.e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	s.e.GET("/healthz", s.handleHealth)
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shut down control server", "error", err)
		}
	}()
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	s.logger.Info("control server listening", "addr", addr)
	return s.e.Start(addr)
}

// handleSync starts a sync run in the background. Overlapping requests get
// 409 from the orchestrator's in-flight guard.
func (s *Server) handleSync(c echo.Context) error {
	interval, err := intervalFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	started := make(chan error, 1)
	go func() {
		report, runErr := s.runner.Run(context.Background(), interval)
		started <- runErr
		if runErr != nil {
			if !errors.Is(runErr, syncer.ErrRunInProgress) {
				s.metrics.RecordRun(report, runErr)
				s.logger.Error("sync run failed", "error", runErr)
			}
			return
		}
		s.metrics.RecordRun(report, nil)
	}()

	// Give the guard a chance to reject immediately so the caller learns
	// about an overlapping run; a slow first page means the run started.
	select {
	case runErr := <-started:
		if errors.Is(runErr, syncer.ErrRunInProgress) {
			return echo.NewHTTPError(http.StatusConflict, "a sync run is already in progress")
		}
		if runErr != nil {
			return echo.NewHTTPError(http.StatusBadGateway, runErr.Error())
		}
		return c.JSON(http.StatusOK, s.statusPayload())
	case <-time.After(100 * time.Millisecond):
		return c.JSON(http.StatusAccepted, s.statusPayload())
	}
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.statusPayload())
}

func (s *Server) handleExport(c echo.Context) error {
	interval, err := intervalFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doc, err := export.Project(s.store.Values(), interval)
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			return echo.NewHTTPError(http.StatusNotFound, "nothing to export for the selected range")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.metrics.RecordExport()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="conversations.json"`)
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleCapture(c echo.Context) error {
	if s.captureLog == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	snapshot := s.captureLog.Snapshot()
	if snapshot == nil {
		snapshot = []api.Exchange{}
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="capture.json"`)
	return c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

type statusResponse struct {
	Phase         string `json:"phase"`
	Message       string `json:"message"`
	Conversations int    `json:"conversations"`
	Captured      int    `json:"captured"`
}

func (s *Server) statusPayload() statusResponse {
	status := s.runner.Status()
	resp := statusResponse{
		Phase:         string(status.Phase),
		Message:       status.Message,
		Conversations: s.store.Len(),
	}
	if s.captureLog != nil {
		resp.Captured = s.captureLog.Len()
	}
	return resp
}

func intervalFromQuery(c echo.Context) (daterange.Interval, error) {
	preset := daterange.Preset(c.QueryParam("range"))
	return daterange.Resolve(preset, c.QueryParam("from"), c.QueryParam("to"), time.Now())
}
