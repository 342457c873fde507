package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ResolveMapping resolves one detected field name for a form family.
// Consumed by the mapping editor UI and the submission workflow.
func (s *Server) ResolveMapping(c *gin.Context) {
	field := c.Query("field")
	if field == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field is required"})
		return
	}
	family := c.Query("family")

	res := s.mapper.Resolve(c.Request.Context(), family, field)
	c.JSON(http.StatusOK, res)
}

type outcomeRequest struct {
	DetectedField  string `json:"detected_field" binding:"required"`
	CanonicalField string `json:"canonical_field" binding:"required"`
	FormFamily     string `json:"form_family"`
	Accepted       bool   `json:"accepted"`
}

// RecordMappingOutcome feeds a user decision back into the learned store.
func (s *Server) RecordMappingOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "detected_field and canonical_field are required"})
		return
	}

	rec, err := s.mapper.RecordOutcome(c.Request.Context(),
		req.FormFamily, req.DetectedField, req.CanonicalField, req.Accepted)
	if err != nil {
		s.logger.Error("server.mapping_outcome.failed", "detected", req.DetectedField, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record outcome failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListMappings returns a form family's learned records.
func (s *Server) ListMappings(c *gin.Context) {
	family := c.Query("family")

	records, err := s.mapper.Records(c.Request.Context(), family)
	if err != nil {
		s.logger.Error("server.list_mappings.failed", "family", family, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list mappings failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": records})
}

// ExportMappings streams the family's mapping records as an XLSX workbook.
func (s *Server) ExportMappings(c *gin.Context) {
	family := c.Query("family")

	out, err := s.exporter.ExportMappingsXLSX(c.Request.Context(), family)
	if err != nil {
		s.logger.Error("server.export_mappings.failed", "family", family, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("mappings-%s-%s.xlsx", family, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", out)
}
