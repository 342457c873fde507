// Package server exposes the pipeline and the mapping API over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formpipe/formpipe/internal/export"
	"github.com/formpipe/formpipe/internal/mapping"
	"github.com/formpipe/formpipe/internal/pipeline"
	"github.com/formpipe/formpipe/internal/repository"
)

type Server struct {
	processor *pipeline.Processor
	mapper    *mapping.Mapper
	exporter  *export.Service
	db        *repository.DB
	logger    *slog.Logger

	// MaxUploadBytes bounds document uploads; 0 means the default 32 MiB.
	MaxUploadBytes int64
}

func NewServer(processor *pipeline.Processor, mapper *mapping.Mapper, exporter *export.Service, db *repository.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		processor:      processor,
		mapper:         mapper,
		exporter:       exporter,
		db:             db,
		logger:         logger,
		MaxUploadBytes: 32 << 20,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/documents/process", s.ProcessDocument)
		v1.GET("/mappings", s.ListMappings)
		v1.GET("/mappings/resolve", s.ResolveMapping)
		v1.POST("/mappings/outcome", s.RecordMappingOutcome)
		v1.GET("/export/mappings", s.ExportMappings)
	}

	return r
}

func (s *Server) Health(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			s.logger.Warn("health.db_ping_failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
