package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockRawDocumentRepository creates a GormRawDocumentRepository with a mocked SQL connection
func newMockRawDocumentRepository(t *testing.T) (*GormRawDocumentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormRawDocumentRepository(gormDB), mock, mockDB
}

func TestGormRawDocumentRepository_FindByTransactionID(t *testing.T) {
	t.Run("finds record by transaction", func(t *testing.T) {
		repo, mock, mockDB := newMockRawDocumentRepository(t)
		defer mockDB.Close()

		transactionID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "transaction_id", "declared_lines", "stored_lines", "parsed_lines", "status", "postable"}).
			AddRow(uuid.New(), transactionID, 87, 87, 87, "match", true)

		mock.ExpectQuery(`SELECT \* FROM "raw_documents" WHERE transaction_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(transactionID, 1).
			WillReturnRows(rows)

		record, err := repo.FindByTransactionID(context.Background(), transactionID)

		require.NoError(t, err)
		assert.Equal(t, 87, record.DeclaredLines)
		assert.Equal(t, intake.ReconciliationMatch, record.Status)
		assert.True(t, record.Postable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for unknown transaction", func(t *testing.T) {
		repo, mock, mockDB := newMockRawDocumentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "raw_documents" WHERE transaction_id = \$1 ORDER BY .* LIMIT .*`).
			WillReturnError(gorm.ErrRecordNotFound)

		record, err := repo.FindByTransactionID(context.Background(), uuid.New())

		assert.Nil(t, record)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormRawDocumentRepository_Save(t *testing.T) {
	t.Run("upserts a reconciled record", func(t *testing.T) {
		repo, mock, mockDB := newMockRawDocumentRepository(t)
		defer mockDB.Close()

		record, err := intake.NewRawDocumentRecord(uuid.New(), 87)
		require.NoError(t, err)
		require.NoError(t, record.RecordCounts(87, 87))
		require.NoError(t, record.ApplyReconciliation(intake.ReconcileCounts(87, 87, 87)))

		mock.ExpectExec(`INSERT INTO "raw_documents" .* ON CONFLICT \("transaction_id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Save(context.Background(), record)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormRawDocumentRepository_StoreUnits(t *testing.T) {
	t.Run("replaces previous units and reports persisted count", func(t *testing.T) {
		repo, mock, mockDB := newMockRawDocumentRepository(t)
		defer mockDB.Close()

		transactionID := uuid.New()
		units := []string{"header", "row 1", "row 2"}

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "raw_units" WHERE transaction_id = \$1`).
			WithArgs(transactionID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// auto-increment key makes GORM insert with RETURNING
		mock.ExpectQuery(`INSERT INTO "raw_units"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))
		mock.ExpectCommit()

		stored, err := repo.StoreUnits(context.Background(), transactionID, units)

		require.NoError(t, err)
		assert.Equal(t, 3, stored)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty unit list only clears old units", func(t *testing.T) {
		repo, mock, mockDB := newMockRawDocumentRepository(t)
		defer mockDB.Close()

		transactionID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "raw_units" WHERE transaction_id = \$1`).
			WithArgs(transactionID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		stored, err := repo.StoreUnits(context.Background(), transactionID, nil)

		require.NoError(t, err)
		assert.Equal(t, 0, stored)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the insert fails", func(t *testing.T) {
		repo, mock, mockDB := newMockRawDocumentRepository(t)
		defer mockDB.Close()

		transactionID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "raw_units" WHERE transaction_id = \$1`).
			WithArgs(transactionID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO "raw_units"`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		stored, err := repo.StoreUnits(context.Background(), transactionID, []string{"header"})

		assert.Error(t, err)
		assert.Zero(t, stored)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormRawDocumentRepository_CountUnits(t *testing.T) {
	t.Run("counts persisted units", func(t *testing.T) {
		repo, mock, mockDB := newMockRawDocumentRepository(t)
		defer mockDB.Close()

		transactionID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "raw_units" WHERE transaction_id = \$1`).
			WithArgs(transactionID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(87))

		count, err := repo.CountUnits(context.Background(), transactionID)

		require.NoError(t, err)
		assert.Equal(t, 87, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
