package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, pool, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.Nil(t, pool)
	require.Equal(t, DialectSQLite, db.Dialect)
	t.Cleanup(func() { _ = db.DB.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestRebind(t *testing.T) {
	sqlite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, "SELECT ? WHERE a = ?", sqlite.Rebind("SELECT ? WHERE a = ?"))

	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "SELECT $1 WHERE a = $2", pg.Rebind("SELECT ? WHERE a = ?"))
}

func TestMappingRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewMappingRepository(db, nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "generic", "dob", "date_of_birth")
	assert.ErrorIs(t, err, common.ErrNotFound)

	now := time.Now().Truncate(time.Second).UTC()
	rec := &entity.MappingRecord{
		FormFamily:     "generic",
		DetectedField:  "dob",
		CanonicalField: "date_of_birth",
		Confidence:     0.8,
		Frequency:      1,
		LastUsedAt:     now,
		CreatedAt:      now,
	}
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, "generic", "dob", "date_of_birth")
	require.NoError(t, err)
	assert.Equal(t, rec.Confidence, got.Confidence)
	assert.Equal(t, rec.Frequency, got.Frequency)
	assert.Equal(t, now, got.LastUsedAt)
	assert.Equal(t, now, got.CreatedAt)
}

func TestMappingRepositoryUpsertReplaces(t *testing.T) {
	db := openTestDB(t)
	repo := NewMappingRepository(db, nil)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	rec := &entity.MappingRecord{
		FormFamily: "generic", DetectedField: "dob", CanonicalField: "date_of_birth",
		Confidence: 0.8, Frequency: 1, LastUsedAt: now, CreatedAt: now,
	}
	require.NoError(t, repo.Upsert(ctx, rec))

	rec.Confidence = 0.97
	rec.Frequency = 2
	rec.LastUsedAt = now.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, "generic", "dob", "date_of_birth")
	require.NoError(t, err)
	assert.Equal(t, 0.97, got.Confidence)
	assert.Equal(t, 2, got.Frequency)
	assert.Equal(t, now.Add(time.Hour), got.LastUsedAt)
	// created_at is set once and never updated.
	assert.Equal(t, now, got.CreatedAt)
}

func TestMappingRepositoryListByDetectedOrdering(t *testing.T) {
	db := openTestDB(t)
	repo := NewMappingRepository(db, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := func(canonical string, confidence float64, frequency int) {
		require.NoError(t, repo.Upsert(ctx, &entity.MappingRecord{
			FormFamily: "generic", DetectedField: "dob", CanonicalField: canonical,
			Confidence: confidence, Frequency: frequency, LastUsedAt: now, CreatedAt: now,
		}))
	}
	seed("document_date", 0.5, 3)  // weight 1.5
	seed("date_of_birth", 0.9, 12) // weight 10.8
	seed("filing_date", 0.8, 2)    // weight 1.6

	records, err := repo.ListByDetected(ctx, "generic", "dob")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "date_of_birth", records[0].CanonicalField)
	assert.Equal(t, "filing_date", records[1].CanonicalField)
	assert.Equal(t, "document_date", records[2].CanonicalField)
}

func TestMappingRepositoryListByFamilyScoped(t *testing.T) {
	db := openTestDB(t)
	repo := NewMappingRepository(db, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, family := range []string{"generic", "tax"} {
		require.NoError(t, repo.Upsert(ctx, &entity.MappingRecord{
			FormFamily: family, DetectedField: "dob", CanonicalField: "date_of_birth",
			Confidence: 0.8, Frequency: 1, LastUsedAt: now, CreatedAt: now,
		}))
	}

	records, err := repo.ListByFamily(ctx, "generic")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "generic", records[0].FormFamily)
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewCacheRepository(db, nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "deadbeef")
	assert.ErrorIs(t, err, common.ErrNotFound)

	now := time.Now().Truncate(time.Second).UTC()
	row := &CacheRow{
		Fingerprint: "deadbeef",
		FormType:    "intake",
		Payload:     []byte(`{"form_fields":[]}`),
		CreatedAt:   now,
	}
	require.NoError(t, repo.Put(ctx, row))

	got, err := repo.Get(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "intake", got.FormType)
	assert.Equal(t, row.Payload, got.Payload)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCacheRepositoryTagsIOErrors(t *testing.T) {
	db := openTestDB(t)
	repo := NewCacheRepository(db, nil)
	ctx := context.Background()

	// Closing the handle makes every statement fail at the driver level.
	require.NoError(t, db.DB.Close())

	_, err := repo.Get(ctx, "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCacheIO)
	assert.NotErrorIs(t, err, common.ErrNotFound)

	err = repo.Put(ctx, &CacheRow{Fingerprint: "deadbeef", FormType: "intake",
		Payload: []byte(`{}`), CreatedAt: time.Now()})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCacheIO)
}

func TestCacheRepositoryPutReplacesWholesale(t *testing.T) {
	db := openTestDB(t)
	repo := NewCacheRepository(db, nil)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	require.NoError(t, repo.Put(ctx, &CacheRow{
		Fingerprint: "deadbeef", FormType: "intake",
		Payload: []byte(`{"v":1}`), CreatedAt: now,
	}))
	require.NoError(t, repo.Put(ctx, &CacheRow{
		Fingerprint: "deadbeef", FormType: "tax",
		Payload: []byte(`{"v":2}`), CreatedAt: now.Add(time.Minute),
	}))

	got, err := repo.Get(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "tax", got.FormType)
	assert.Equal(t, []byte(`{"v":2}`), got.Payload)
	assert.Equal(t, now.Add(time.Minute), got.CreatedAt)
}
