package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/formpipe/formpipe/internal/common"
)

// CacheRow is one persisted fingerprint entry. Payload is the JSON-encoded
// processed result, replaced wholesale on every write.
type CacheRow struct {
	Fingerprint string
	FormType    string
	Payload     []byte
	CreatedAt   time.Time
}

// CacheRepository persists processed results keyed by content fingerprint.
// TTL semantics live above this layer; rows are returned regardless of age.
type CacheRepository interface {
	Get(ctx context.Context, fingerprint string) (*CacheRow, error)
	Put(ctx context.Context, row *CacheRow) error
}

type cacheRepo struct {
	db  *DB
	log *slog.Logger
}

func NewCacheRepository(db *DB, log *slog.Logger) CacheRepository {
	if log == nil {
		log = slog.Default()
	}
	return &cacheRepo{db: db, log: log}
}

func (r *cacheRepo) Get(ctx context.Context, fingerprint string) (*CacheRow, error) {
	query := r.db.Rebind(`SELECT fingerprint, form_type, payload, created_at
		FROM cache_entries WHERE fingerprint = ?`)
	var row CacheRow
	var payload string
	var created int64
	err := r.db.QueryRowContext(ctx, query, fingerprint).
		Scan(&row.Fingerprint, &row.FormType, &payload, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.log.Error("cache_entries get failed", "fingerprint", fingerprint, "err", err)
		return nil, common.NewAppError("CACHE_IO", "get cache entry", errors.Join(common.ErrCacheIO, err))
	}
	row.Payload = []byte(payload)
	row.CreatedAt = time.Unix(created, 0).UTC()
	return &row, nil
}

func (r *cacheRepo) Put(ctx context.Context, row *CacheRow) error {
	query := r.db.Rebind(`INSERT INTO cache_entries (fingerprint, form_type, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			form_type = excluded.form_type,
			payload = excluded.payload,
			created_at = excluded.created_at`)
	_, err := r.db.ExecContext(ctx, query,
		row.Fingerprint, row.FormType, string(row.Payload), row.CreatedAt.Unix())
	if err != nil {
		r.log.Error("cache_entries put failed", "fingerprint", row.Fingerprint, "err", err)
		return common.NewAppError("CACHE_IO", "put cache entry", errors.Join(common.ErrCacheIO, err))
	}
	return nil
}
