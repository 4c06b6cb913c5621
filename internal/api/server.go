// Package api serves the compiler over HTTP.
package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/arbor/internal/compiler"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/logger"
	"github.com/samcharles93/arbor/internal/onnx"
)

// MaxModelBytes bounds the size of an uploaded model.
const MaxModelBytes = 64 << 20

type Server struct {
	cfg     compiler.Config
	log     logger.Logger
	store   *BuildStore
	version string
	clock   func() time.Time
}

// NewServer returns a server compiling with cfg unless a request overrides
// individual limits.
func NewServer(cfg compiler.Config, store *BuildStore, version string, log logger.Logger) *Server {
	if store == nil {
		store = NewBuildStore(0)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		cfg:     cfg,
		log:     logger.Stage(log, "api"),
		store:   store,
		version: version,
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)

	e.POST("/v1/compile", s.handleCompile)
	e.GET("/v1/builds/:id", s.handleGetBuild)
	e.GET("/v1/builds/:id/image", s.handleGetImage)
	e.DELETE("/v1/builds/:id", s.handleDeleteBuild)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Builds:  s.store.Len(),
	})
}

func (s *Server) handleCompile(c *echo.Context) error {
	cfg, err := configFor(c, s.cfg)
	if err != nil {
		return writeBadRequest(c, err.Error(), invalidParam(err))
	}
	seed, check, err := checkSeed(c)
	if err != nil {
		return writeBadRequest(c, err.Error(), invalidParam(err))
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxModelBytes+1))
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("read body: %v", err), "")
	}
	if len(body) == 0 {
		return writeBadRequest(c, "request body must be an ONNX model", "")
	}
	if len(body) > MaxModelBytes {
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error",
			fmt.Sprintf("model exceeds %d bytes", MaxModelBytes), "", "")
	}

	m, err := onnx.Parse(body)
	if err != nil {
		return writeBadRequest(c, err.Error(), "")
	}
	g, err := graph.FromONNX(m)
	if err != nil {
		return writeBadRequest(c, err.Error(), "")
	}

	art, err := compiler.Compile(g, cfg, s.log)
	if err != nil {
		s.log.Warn("compile failed", "graph", g.Name, "error", err)
		return writeCompileError(c, err)
	}
	manifest, err := art.Manifest(s.version, "upload")
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}

	var report *compiler.Report
	if check {
		r, err := art.Check(seed)
		if err != nil {
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
		}
		report = &r
	}

	resp := s.store.Create(manifest.BuildID, art, report, s.clock())
	s.log.Info("build stored", "id", resp.ID, "graph", resp.Graph, "instructions", resp.Stats.Instructions)
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleGetBuild(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "build not found")
	}
	return writeJSON(c, http.StatusOK, rec.Response)
}

func (s *Server) handleGetImage(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "build not found")
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, rec.Image)
}

func (s *Server) handleDeleteBuild(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "build not found")
	}
	return writeJSON(c, http.StatusOK, DeleteBuildResponse{
		ID:      id,
		Object:  "build",
		Deleted: true,
	})
}
