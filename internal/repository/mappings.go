package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/entity"
)

// MappingRepository persists learned mapping records. Writes are
// last-write-wins: concurrent pipelines may race, and a lost heuristic
// update is acceptable.
type MappingRepository interface {
	Get(ctx context.Context, family, detected, canonical string) (*entity.MappingRecord, error)
	ListByDetected(ctx context.Context, family, detected string) ([]entity.MappingRecord, error)
	ListByFamily(ctx context.Context, family string) ([]entity.MappingRecord, error)
	Upsert(ctx context.Context, rec *entity.MappingRecord) error
}

type mappingRepo struct {
	db  *DB
	log *slog.Logger
}

func NewMappingRepository(db *DB, log *slog.Logger) MappingRepository {
	if log == nil {
		log = slog.Default()
	}
	return &mappingRepo{db: db, log: log}
}

const mappingColumns = `form_family, detected_field, canonical_field, confidence, frequency, last_used_at, created_at`

func scanMappingRecord(row interface{ Scan(...any) error }) (*entity.MappingRecord, error) {
	var rec entity.MappingRecord
	var lastUsed, created int64
	if err := row.Scan(&rec.FormFamily, &rec.DetectedField, &rec.CanonicalField,
		&rec.Confidence, &rec.Frequency, &lastUsed, &created); err != nil {
		return nil, err
	}
	rec.LastUsedAt = time.Unix(lastUsed, 0).UTC()
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return &rec, nil
}

func (r *mappingRepo) Get(ctx context.Context, family, detected, canonical string) (*entity.MappingRecord, error) {
	query := r.db.Rebind(`SELECT ` + mappingColumns + ` FROM mapping_records
		WHERE form_family = ? AND detected_field = ? AND canonical_field = ?`)
	rec, err := scanMappingRecord(r.db.QueryRowContext(ctx, query, family, detected, canonical))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.log.Error("mapping_records get failed", "family", family, "detected", detected, "err", err)
		return nil, common.WrapError(err, "get mapping record")
	}
	return rec, nil
}

func (r *mappingRepo) ListByDetected(ctx context.Context, family, detected string) ([]entity.MappingRecord, error) {
	query := r.db.Rebind(`SELECT ` + mappingColumns + ` FROM mapping_records
		WHERE form_family = ? AND detected_field = ?
		ORDER BY frequency * confidence DESC`)
	return r.list(ctx, query, family, detected)
}

func (r *mappingRepo) ListByFamily(ctx context.Context, family string) ([]entity.MappingRecord, error) {
	query := r.db.Rebind(`SELECT ` + mappingColumns + ` FROM mapping_records
		WHERE form_family = ?
		ORDER BY detected_field, canonical_field`)
	return r.list(ctx, query, family)
}

func (r *mappingRepo) list(ctx context.Context, query string, args ...any) ([]entity.MappingRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("mapping_records query failed", "err", err)
		return nil, common.WrapError(err, "list mapping records")
	}
	defer rows.Close()

	var records []entity.MappingRecord
	for rows.Next() {
		rec, err := scanMappingRecord(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan mapping record")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate mapping records")
	}
	return records, nil
}

func (r *mappingRepo) Upsert(ctx context.Context, rec *entity.MappingRecord) error {
	query := r.db.Rebind(`INSERT INTO mapping_records (` + mappingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (form_family, detected_field, canonical_field) DO UPDATE SET
			confidence = excluded.confidence,
			frequency = excluded.frequency,
			last_used_at = excluded.last_used_at`)
	_, err := r.db.ExecContext(ctx, query,
		rec.FormFamily, rec.DetectedField, rec.CanonicalField,
		rec.Confidence, rec.Frequency,
		rec.LastUsedAt.Unix(), rec.CreatedAt.Unix())
	if err != nil {
		r.log.Error("mapping_records upsert failed",
			"family", rec.FormFamily, "detected", rec.DetectedField, "err", err)
		return common.WrapError(err, "upsert mapping record")
	}
	return nil
}
