package integration

import (
	"context"
	"os"
	"testing"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/domain/shared"
	"github.com/docintake/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before any tests and handles cleanup
func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

// TestTransactionRepository_Integration tests the transaction repository
// against a real PostgreSQL database
func TestTransactionRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormTransactionRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Save and FindByID", func(t *testing.T) {
		tx, err := intake.NewUploadTransaction("source-a", "invoice.json", 2048, "quarantine/invoice.json")
		require.NoError(t, err)

		err = repo.Save(ctx, tx)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, tx.ID, found.ID)
		assert.Equal(t, "source-a", found.SourceID)
		assert.Equal(t, "invoice.json", found.FileName)
		assert.Equal(t, intake.StatusReceived, found.Status)
	})

	t.Run("FindByID not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Save persists state transitions", func(t *testing.T) {
		tx, err := intake.NewUploadTransaction("source-b", "receipt.json", 512, "quarantine/receipt.json")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, tx))

		_, err = tx.TransitionTo(intake.StatusPendingChecksum, "content received", nil)
		require.NoError(t, err)
		require.NoError(t, tx.SetChecksum("aabbccdd"))
		require.NoError(t, repo.Save(ctx, tx))

		found, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.StatusPendingChecksum, found.Status)
		require.NotNil(t, found.Checksum)
		assert.Equal(t, "aabbccdd", *found.Checksum)
		assert.Equal(t, tx.Version, found.Version)
	})

	t.Run("FindAll filters by source and status", func(t *testing.T) {
		for _, sourceID := range []string{"filter-src", "filter-src", "other-src"} {
			tx, err := intake.NewUploadTransaction(sourceID, "f.json", 100, "quarantine/f.json")
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, tx))
		}

		sourceID := "filter-src"
		page, err := repo.FindAll(ctx, intake.TransactionFilter{SourceID: &sourceID}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		for _, item := range page.Items {
			assert.Equal(t, "filter-src", item.SourceID)
		}

		status := intake.StatusStorageComplete
		page, err = repo.FindAll(ctx, intake.TransactionFilter{Status: &status}, 1, 10)
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})
}

// TestStateChangeRepository_Integration verifies append-only semantics and
// sequence ordering of the audit log
func TestStateChangeRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)
	logRepo := persistence.NewGormStateChangeRepository(testDB.DB)
	ctx := context.Background()

	tx, err := intake.NewUploadTransaction("source-a", "doc.json", 64, "quarantine/doc.json")
	require.NoError(t, err)
	require.NoError(t, txRepo.Save(ctx, tx))

	t.Run("Append and History ordering", func(t *testing.T) {
		entry1, err := tx.TransitionTo(intake.StatusPendingChecksum, "content received", nil)
		require.NoError(t, err)
		entry2, err := tx.TransitionTo(intake.StatusPendingParse, "checksum recorded", nil)
		require.NoError(t, err)

		// Append out of order; History must still come back by sequence
		require.NoError(t, logRepo.Append(ctx, entry2))
		require.NoError(t, logRepo.Append(ctx, entry1))

		history, err := logRepo.History(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, entry1.Sequence, history[0].Sequence)
		assert.Equal(t, intake.StatusReceived, history[0].FromStatus)
		assert.Equal(t, intake.StatusPendingChecksum, history[0].ToStatus)
		assert.Equal(t, intake.StatusPendingParse, history[1].ToStatus)
	})

	t.Run("Duplicate sequence is rejected", func(t *testing.T) {
		dup := intake.NewStateChangeEntry(tx.ID, 2, intake.StatusReceived, intake.StatusFailed, "replayed entry", nil, nil)
		err := logRepo.Append(ctx, dup)
		assert.Error(t, err)
	})

	t.Run("History for unknown transaction is empty", func(t *testing.T) {
		history, err := logRepo.History(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

// TestRawDocumentRepository_Integration covers unit storage and the counts
// used by reconciliation
func TestRawDocumentRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)
	repo := persistence.NewGormRawDocumentRepository(testDB.DB)
	ctx := context.Background()

	tx, err := intake.NewUploadTransaction("source-a", "lines.json", 256, "quarantine/lines.json")
	require.NoError(t, err)
	require.NoError(t, txRepo.Save(ctx, tx))

	t.Run("Save and FindByTransactionID", func(t *testing.T) {
		record, err := intake.NewRawDocumentRecord(tx.ID, 3)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByTransactionID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, found.DeclaredLines)
		assert.Equal(t, intake.ReconciliationPending, found.Status)
		assert.False(t, found.Postable)
	})

	t.Run("StoreUnits and CountUnits agree", func(t *testing.T) {
		units := []string{"line one", "line two", "line three"}
		stored, err := repo.StoreUnits(ctx, tx.ID, units)
		require.NoError(t, err)
		assert.Equal(t, 3, stored)

		count, err := repo.CountUnits(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("Reconciliation verdict round-trips", func(t *testing.T) {
		record, err := repo.FindByTransactionID(ctx, tx.ID)
		require.NoError(t, err)
		require.NoError(t, record.RecordCounts(3, 3))
		require.NoError(t, record.ApplyReconciliation(intake.ReconciliationResult{
			Status:  intake.ReconciliationMatch,
			CanPost: true,
		}))
		require.NoError(t, repo.Save(ctx, record))

		found, err := repo.FindByTransactionID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.ReconciliationMatch, found.Status)
		assert.True(t, found.Postable)
		assert.Equal(t, 3, found.StoredLines)
		assert.Equal(t, 3, found.ParsedLines)
	})
}

// TestChecksumIndex_Integration exercises the partial unique index that
// enforces at most one active artifact per checksum
func TestChecksumIndex_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)
	index := persistence.NewGormChecksumIndex(testDB.DB)
	ctx := context.Background()

	newTx := func(name string) *intake.UploadTransaction {
		tx, err := intake.NewUploadTransaction("source-a", name, 128, "quarantine/"+name)
		require.NoError(t, err)
		require.NoError(t, txRepo.Save(ctx, tx))
		return tx
	}

	t.Run("Register and FindActive", func(t *testing.T) {
		tx := newTx("a.json")
		artifact, err := intake.NewArtifact("sum-1", tx.ID, "canonical/a.json", "backup/a.json", 128)
		require.NoError(t, err)
		require.NoError(t, index.Register(ctx, artifact))

		found, err := index.FindActive(ctx, "sum-1")
		require.NoError(t, err)
		assert.Equal(t, tx.ID, found.TransactionID)
		assert.Equal(t, "canonical/a.json", found.CanonicalKey)
	})

	t.Run("Second registration of same checksum is a duplicate", func(t *testing.T) {
		tx := newTx("b.json")
		artifact, err := intake.NewArtifact("sum-1", tx.ID, "canonical/b.json", "backup/b.json", 128)
		require.NoError(t, err)
		err = index.Register(ctx, artifact)
		assert.ErrorIs(t, err, shared.ErrDuplicateContent)
	})

	t.Run("Revoke frees the checksum for re-registration", func(t *testing.T) {
		require.NoError(t, index.Revoke(ctx, "sum-1"))

		_, err := index.FindActive(ctx, "sum-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		tx := newTx("c.json")
		artifact, err := intake.NewArtifact("sum-1", tx.ID, "canonical/c.json", "backup/c.json", 128)
		require.NoError(t, err)
		require.NoError(t, index.Register(ctx, artifact))

		found, err := index.FindActive(ctx, "sum-1")
		require.NoError(t, err)
		assert.Equal(t, tx.ID, found.TransactionID)
	})

	t.Run("Revoke without active entry", func(t *testing.T) {
		err := index.Revoke(ctx, "sum-missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// TestExceptionRepository_Integration covers the review queue persistence
func TestExceptionRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	txRepo := persistence.NewGormTransactionRepository(testDB.DB)
	repo := persistence.NewGormExceptionRepository(testDB.DB)
	ctx := context.Background()

	tx, err := intake.NewUploadTransaction("source-a", "odd.json", 64, "quarantine/odd.json")
	require.NoError(t, err)
	require.NoError(t, txRepo.Save(ctx, tx))

	record, err := intake.NewExceptionRecord(
		tx.ID,
		intake.ExceptionReview,
		intake.SeverityMedium,
		intake.ReasonAttributionLowConfidence,
		"best candidate scored below the confidence floor",
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, record))

	t.Run("FindUnresolved lists open records", func(t *testing.T) {
		page, err := repo.FindUnresolved(ctx, 1, 10)
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, record.ID, page.Items[0].ID)
		assert.Equal(t, intake.ReasonAttributionLowConfidence, page.Items[0].ReasonCode)
	})

	t.Run("Resolve removes it from the unresolved list", func(t *testing.T) {
		found, err := repo.FindByID(ctx, record.ID)
		require.NoError(t, err)
		require.NoError(t, found.Resolve(uuid.New(), "attributed manually"))
		require.NoError(t, repo.Save(ctx, found))

		page, err := repo.FindUnresolved(ctx, 1, 10)
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})
}

// TestEntityDirectory_Integration runs the attribution lookup against real
// PostgreSQL, where ILIKE matching actually applies
func TestEntityDirectory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	directory := persistence.NewGormEntityDirectory(testDB.DB)
	ctx := context.Background()

	testDB.SeedEntity(uuid.New(), "Acme Industrial Supply", "ACME-001")
	testDB.SeedEntity(uuid.New(), "Acme Logistics", "ACME-002")
	testDB.SeedEntity(uuid.New(), "Northwind Traders", "NW-001")

	t.Run("Code match comes first", func(t *testing.T) {
		candidates, err := directory.Lookup(ctx, "Acme", "acme-002")
		require.NoError(t, err)
		require.NotEmpty(t, candidates)
		assert.Equal(t, "ACME-002", candidates[0].Code)
	})

	t.Run("Name lookup is case-insensitive", func(t *testing.T) {
		candidates, err := directory.Lookup(ctx, "acme", "")
		require.NoError(t, err)
		assert.Len(t, candidates, 2)
	})

	t.Run("No match yields empty result", func(t *testing.T) {
		candidates, err := directory.Lookup(ctx, "Globex", "")
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})
}
