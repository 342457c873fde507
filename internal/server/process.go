package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/entity"
)

// ProcessDocument accepts a multipart upload (file, form_type, form_family)
// and runs the full pipeline. The response is either the complete-or-
// degraded processed result or an explicit failure; never an ambiguous
// partial.
func (s *Server) ProcessDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if s.MaxUploadBytes > 0 && fileHeader.Size > s.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	if len(content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty file"})
		return
	}

	doc := &entity.Document{
		ID:         uuid.New(),
		Content:    content,
		FormType:   c.PostForm("form_type"),
		FormFamily: c.PostForm("form_family"),
		SourceName: fileHeader.Filename,
		ReceivedAt: time.Now().UTC(),
	}

	ctx := common.WithRequestID(c.Request.Context(), doc.ID.String())
	ctx = common.WithFormFamily(ctx, doc.FormFamily)
	result, err := s.processor.Process(ctx, doc)
	if err != nil {
		s.logger.Error("server.process.failed", "doc_id", doc.ID, "error", err)
		if errors.Is(err, common.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, common.ErrExtractionFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
