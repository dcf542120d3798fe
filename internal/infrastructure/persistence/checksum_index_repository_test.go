package persistence

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
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

// newMockChecksumIndex creates a GormChecksumIndex with a mocked SQL connection
func newMockChecksumIndex(t *testing.T) (*GormChecksumIndex, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormChecksumIndex(gormDB), mock, mockDB
}

func testChecksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestGormChecksumIndex_FindActive(t *testing.T) {
	t.Run("finds active artifact", func(t *testing.T) {
		repo, mock, mockDB := newMockChecksumIndex(t)
		defer mockDB.Close()

		checksum := testChecksum("statement content")
		transactionID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "checksum", "transaction_id", "canonical_key", "backup_key", "file_size", "revoked"}).
			AddRow(uuid.New(), checksum, transactionID, "documents/ab/abc/statement.csv", "backup/ab/abc/statement.csv", int64(2048), false)

		mock.ExpectQuery(`SELECT \* FROM "checksum_index" WHERE checksum = \$1 AND revoked = false ORDER BY .* LIMIT .*`).
			WithArgs(checksum, 1).
			WillReturnRows(rows)

		artifact, err := repo.FindActive(context.Background(), checksum)

		require.NoError(t, err)
		assert.Equal(t, checksum, artifact.Checksum)
		assert.Equal(t, transactionID, artifact.TransactionID)
		assert.False(t, artifact.Revoked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when checksum is unseen or revoked", func(t *testing.T) {
		repo, mock, mockDB := newMockChecksumIndex(t)
		defer mockDB.Close()

		checksum := testChecksum("never ingested")

		mock.ExpectQuery(`SELECT \* FROM "checksum_index" WHERE checksum = \$1 AND revoked = false ORDER BY .* LIMIT .*`).
			WithArgs(checksum, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		artifact, err := repo.FindActive(context.Background(), checksum)

		assert.Nil(t, artifact)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormChecksumIndex_Register(t *testing.T) {
	t.Run("registers a new artifact", func(t *testing.T) {
		repo, mock, mockDB := newMockChecksumIndex(t)
		defer mockDB.Close()

		artifact, err := intake.NewArtifact(
			testChecksum("statement content"), uuid.New(),
			"documents/ab/abc/statement.csv", "backup/ab/abc/statement.csv", 2048,
		)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "checksum_index" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Register(context.Background(), artifact)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loser of a concurrent registration gets ErrDuplicateContent", func(t *testing.T) {
		repo, mock, mockDB := newMockChecksumIndex(t)
		defer mockDB.Close()

		artifact, err := intake.NewArtifact(
			testChecksum("statement content"), uuid.New(),
			"documents/ab/abc/statement.csv", "backup/ab/abc/statement.csv", 2048,
		)
		require.NoError(t, err)

		// conflict with the winner's row affects zero rows
		mock.ExpectExec(`INSERT INTO "checksum_index" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Register(context.Background(), artifact)

		assert.Equal(t, shared.ErrDuplicateContent, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormChecksumIndex_Revoke(t *testing.T) {
	t.Run("revokes the active artifact", func(t *testing.T) {
		repo, mock, mockDB := newMockChecksumIndex(t)
		defer mockDB.Close()

		checksum := testChecksum("statement content")

		mock.ExpectExec(`UPDATE "checksum_index" SET .* WHERE checksum = \$\d+ AND revoked = false`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Revoke(context.Background(), checksum)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when nothing is active", func(t *testing.T) {
		repo, mock, mockDB := newMockChecksumIndex(t)
		defer mockDB.Close()

		checksum := testChecksum("statement content")

		mock.ExpectExec(`UPDATE "checksum_index" SET .* WHERE checksum = \$\d+ AND revoked = false`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Revoke(context.Background(), checksum)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
