package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stores-service/internal/models"
)

func newMockRepository(t *testing.T) (*StoresRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewStoresRepository(db, nil, nil), mock
}

func importRecord(name string) models.NormalizedStoreRecord {
	lat, lng := 39.78, -89.65
	return models.NormalizedStoreRecord{
		Name:      name,
		Address:   "1 Main St",
		City:      "Springfield",
		Postcode:  "62704",
		Country:   "United States",
		Region:    "AMER",
		Status:    "Open",
		Latitude:  &lat,
		Longitude: &lng,
	}
}

// expectRowInsert sets up the statement flow for one freshly inserted
// record: savepoint, natural-key lookup miss, insert
func expectRowInsert(mock sqlmock.Sqlmock) {
	mock.ExpectExec("SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "stores"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "stores"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(uuid.NewString(), "Open"))
}

func TestBulkUpsertStoresInsertsNewRows(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectRowInsert(mock)
	expectRowInsert(mock)
	mock.ExpectCommit()

	summary, rowErrors, err := repo.BulkUpsertStores(context.Background(), "tenant-1", "user-1",
		[]models.NormalizedStoreRecord{importRecord("Acme Downtown"), importRecord("Acme Uptown")})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, rowErrors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStoresUpdatesExistingRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	existingID := uuid.NewString()
	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "stores"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "city", "country"}).
			AddRow(existingID, "tenant-1", "Acme Downtown", "Springfield", "United States"))
	mock.ExpectExec(`UPDATE "stores" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, rowErrors, err := repo.BulkUpsertStores(context.Background(), "tenant-1", "user-1",
		[]models.NormalizedStoreRecord{importRecord("Acme Downtown")})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Zero(t, summary.Inserted)
	assert.Empty(t, rowErrors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStoresIsolatesFailedRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	// The middle row hits a unique violation: its savepoint rolls back,
	// the two neighbours still commit
	mock.ExpectBegin()
	expectRowInsert(mock)
	mock.ExpectExec("SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "stores"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "stores"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectExec("ROLLBACK TO SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	expectRowInsert(mock)
	mock.ExpectCommit()

	summary, rowErrors, err := repo.BulkUpsertStores(context.Background(), "tenant-1", "user-1",
		[]models.NormalizedStoreRecord{importRecord("Store A"), importRecord("Store B"), importRecord("Store C")})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 1, rowErrors[0].Row)
	assert.Equal(t, "DUPLICATE_KEY", rowErrors[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStoresReportsGenericRowFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "stores"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "stores"`).
		WillReturnError(errors.New("value too long for type character varying"))
	mock.ExpectExec("ROLLBACK TO SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	summary, rowErrors, err := repo.BulkUpsertStores(context.Background(), "tenant-1", "user-1",
		[]models.NormalizedStoreRecord{importRecord("Store A")})

	require.NoError(t, err)
	assert.Zero(t, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, "PERSIST_FAILED", rowErrors[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStoresNullsInvalidCoordinates(t *testing.T) {
	repo, mock := newMockRepository(t)

	record := importRecord("Acme Downtown")
	badLat := 95.0
	record.Latitude = &badLat

	mock.ExpectBegin()
	expectRowInsert(mock)
	mock.ExpectCommit()

	summary, rowErrors, err := repo.BulkUpsertStores(context.Background(), "tenant-1", "user-1",
		[]models.NormalizedStoreRecord{record})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.PendingGeocode)
	assert.Empty(t, rowErrors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStoresChunks(t *testing.T) {
	repo, mock := newMockRepository(t)

	records := make([]models.NormalizedStoreRecord, UpsertChunkSize+10)
	for i := range records {
		records[i] = importRecord(fmt.Sprintf("Store %03d", i))
	}

	// One transaction per chunk
	mock.ExpectBegin()
	for i := 0; i < UpsertChunkSize; i++ {
		expectRowInsert(mock)
	}
	mock.ExpectCommit()
	mock.ExpectBegin()
	for i := 0; i < 10; i++ {
		expectRowInsert(mock)
	}
	mock.ExpectCommit()

	summary, _, err := repo.BulkUpsertStores(context.Background(), "tenant-1", "user-1", records)

	require.NoError(t, err)
	assert.Equal(t, UpsertChunkSize+10, summary.Inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStoresCommitFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectRowInsert(mock)
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, _, err := repo.BulkUpsertStores(context.Background(), "tenant-1", "user-1",
		[]models.NormalizedStoreRecord{importRecord("Acme Downtown")})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStoresCancelledContext(t *testing.T) {
	repo, mock := newMockRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := repo.BulkUpsertStores(ctx, "tenant-1", "user-1",
		[]models.NormalizedStoreRecord{importRecord("Acme Downtown")})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, optionalString(""))

	got := optionalString("value")
	assert.NotNil(t, got)
	assert.Equal(t, "value", *got)
}

func TestRegionPtr(t *testing.T) {
	assert.Nil(t, regionPtr(""))

	got := regionPtr("EMEA")
	assert.NotNil(t, got)
	assert.Equal(t, models.RegionEMEA, *got)
}

func TestStoreStatusDefaultsToOpen(t *testing.T) {
	assert.Equal(t, models.StoreStatusOpen, storeStatus(""))
	assert.Equal(t, models.StoreStatusClosed, storeStatus("Closed"))
	assert.Equal(t, models.StoreStatusPlanned, storeStatus("Planned"))
}
