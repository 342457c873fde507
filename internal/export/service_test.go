package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/entity"
	"github.com/formpipe/formpipe/internal/mapping"
)

type fixedStore struct {
	records []entity.MappingRecord
}

func (s *fixedStore) Get(context.Context, string, string, string) (*entity.MappingRecord, error) {
	return nil, common.ErrNotFound
}

func (s *fixedStore) ListByDetected(context.Context, string, string) ([]entity.MappingRecord, error) {
	return nil, nil
}

func (s *fixedStore) ListByFamily(context.Context, string) ([]entity.MappingRecord, error) {
	return s.records, nil
}

func (s *fixedStore) Upsert(context.Context, *entity.MappingRecord) error {
	return nil
}

func openWorkbook(t *testing.T, out []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportFieldsXLSX(t *testing.T) {
	svc := NewService(nil, nil)

	result := &entity.ProcessedResult{
		FormFields: []entity.FieldCandidate{
			{
				FieldName:       "full_name",
				CanonicalName:   "applicant_name",
				FieldType:       "text",
				FieldValue:      "Jane Doe",
				ConfidenceScore: 0.9,
				ConfidenceBand:  "high",
				Cluster:         0,
				Page:            1,
			},
			{
				FieldName:       "signature",
				ConfidenceScore: 0.5,
				ConfidenceBand:  "needs_verification",
				Cluster:         entity.UnclusteredLabel,
			},
		},
	}

	out, err := svc.ExportFieldsXLSX(result)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	f := openWorkbook(t, out)
	assert.Equal(t, []string{"Fields"}, f.GetSheetList())

	header, err := f.GetCellValue("Fields", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Field Name", header)

	name, err := f.GetCellValue("Fields", "A2")
	require.NoError(t, err)
	assert.Equal(t, "full_name", name)

	canonical, err := f.GetCellValue("Fields", "B2")
	require.NoError(t, err)
	assert.Equal(t, "applicant_name", canonical)

	second, err := f.GetCellValue("Fields", "A3")
	require.NoError(t, err)
	assert.Equal(t, "signature", second)
}

func TestExportFieldsXLSXEmptyResult(t *testing.T) {
	svc := NewService(nil, nil)

	out, err := svc.ExportFieldsXLSX(&entity.ProcessedResult{})
	require.NoError(t, err)

	f := openWorkbook(t, out)
	header, err := f.GetCellValue("Fields", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Field Name", header)

	empty, err := f.GetCellValue("Fields", "A2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestExportMappingsXLSX(t *testing.T) {
	now := time.Now().UTC()
	store := &fixedStore{records: []entity.MappingRecord{
		{
			FormFamily:     "generic",
			DetectedField:  "dob",
			CanonicalField: "date_of_birth",
			Confidence:     0.8,
			Frequency:      3,
			LastUsedAt:     now,
			CreatedAt:      now,
		},
	}}
	svc := NewService(mapping.NewMapper(nil, store, nil, nil), nil)

	out, err := svc.ExportMappingsXLSX(context.Background(), "generic")
	require.NoError(t, err)

	f := openWorkbook(t, out)
	assert.Equal(t, []string{"Mappings"}, f.GetSheetList())

	detected, err := f.GetCellValue("Mappings", "A2")
	require.NoError(t, err)
	assert.Equal(t, "dob", detected)

	canonical, err := f.GetCellValue("Mappings", "B2")
	require.NoError(t, err)
	assert.Equal(t, "date_of_birth", canonical)
}
