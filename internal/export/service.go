// Package export produces XLSX workbooks for downstream review tooling.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/formpipe/formpipe/internal/entity"
	"github.com/formpipe/formpipe/internal/mapping"
)

// Service is a tiny façade over the mapper that produces XLSX bytes for
// exports.
type Service struct {
	mapper *mapping.Mapper
	logger *slog.Logger
}

func NewService(mapper *mapping.Mapper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{mapper: mapper, logger: logger}
}

// ExportMappingsXLSX returns a workbook of the form family's learned
// mapping records for the mapping editor.
func (s *Service) ExportMappingsXLSX(ctx context.Context, family string) ([]byte, error) {
	start := time.Now()

	records, err := s.mapper.Records(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("query mapping records: %w", err)
	}

	headers := []string{
		"Detected Field",
		"Canonical Field",
		"Confidence",
		"Frequency",
		"Last Used",
		"First Seen",
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{
			rec.DetectedField,
			rec.CanonicalField,
			rec.Confidence,
			rec.Frequency,
			rec.LastUsedAt.Format(time.RFC3339),
			rec.CreatedAt.Format(time.RFC3339),
		})
	}

	out, err := buildWorkbook("Mappings", headers, rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.mappings.ok",
		"family", family, "records", len(records),
		"bytes", len(out), "elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ExportFieldsXLSX returns a workbook of one processed result's fields for
// manual triage.
func (s *Service) ExportFieldsXLSX(result *entity.ProcessedResult) ([]byte, error) {
	headers := []string{
		"Field Name",
		"Canonical Name",
		"Field Type",
		"Value",
		"Confidence",
		"Band",
		"Cluster",
		"Page",
	}
	rows := make([][]any, 0, len(result.FormFields))
	for _, f := range result.FormFields {
		rows = append(rows, []any{
			f.FieldName,
			f.CanonicalName,
			f.FieldType,
			f.FieldValue,
			f.ConfidenceScore,
			f.ConfidenceBand,
			f.Cluster,
			f.Page,
		})
	}
	return buildWorkbook("Fields", headers, rows)
}

func buildWorkbook(sheet string, headers []string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	// Drop the default sheet when we created our own.
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
