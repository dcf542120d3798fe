package intake

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileCounts(t *testing.T) {
	tests := []struct {
		name       string
		declared   int
		stored     int
		parsed     int
		wantStatus ReconciliationStatus
		wantReason ReasonCode
		wantPost   bool
	}{
		{"exact match", 87, 87, 87, ReconciliationMatch, "", true},
		{"partial parse", 87, 87, 80, ReconciliationMismatch, ReasonPartialParse, false},
		{"storage lost lines", 87, 85, 85, ReconciliationMismatch, ReasonRawLinesMismatch, false},
		{"storage gained lines", 87, 90, 87, ReconciliationMismatch, ReasonRawLinesMismatch, false},
		{"raw mismatch wins over partial parse", 87, 85, 80, ReconciliationMismatch, ReasonRawLinesMismatch, false},
		{"over-parse duplicates records", 87, 87, 90, ReconciliationMismatch, ReasonRawLinesMismatch, false},
		{"empty document", 0, 0, 0, ReconciliationMatch, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ReconcileCounts(tt.declared, tt.stored, tt.parsed)

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.Equal(t, tt.wantPost, result.CanPost)
		})
	}
}

func TestReconcileCounts_CanPostOnlyOnTripleEquality(t *testing.T) {
	for declared := 0; declared <= 3; declared++ {
		for stored := 0; stored <= 3; stored++ {
			for parsed := 0; parsed <= 3; parsed++ {
				result := ReconcileCounts(declared, stored, parsed)
				want := declared == stored && stored == parsed
				assert.Equal(t, want, result.CanPost,
					"declared=%d stored=%d parsed=%d", declared, stored, parsed)
			}
		}
	}
}

func TestNewRawDocumentRecord(t *testing.T) {
	txID := uuid.New()

	record, err := NewRawDocumentRecord(txID, 87)
	require.NoError(t, err)
	assert.Equal(t, txID, record.TransactionID)
	assert.Equal(t, 87, record.DeclaredLines)
	assert.Equal(t, ReconciliationPending, record.Status)
	assert.False(t, record.Postable)

	_, err = NewRawDocumentRecord(uuid.Nil, 87)
	assert.Error(t, err)

	_, err = NewRawDocumentRecord(txID, -1)
	assert.Error(t, err)
}

func TestRawDocumentRecord_RecordCounts(t *testing.T) {
	record, err := NewRawDocumentRecord(uuid.New(), 87)
	require.NoError(t, err)

	require.NoError(t, record.RecordCounts(87, 80))
	assert.Equal(t, 87, record.StoredLines)
	assert.Equal(t, 80, record.ParsedLines)

	// Counts never move backward.
	assert.Error(t, record.RecordCounts(80, 80))
	assert.Error(t, record.RecordCounts(87, 70))
	assert.NoError(t, record.RecordCounts(87, 87))
}

func TestRawDocumentRecord_ApplyReconciliation(t *testing.T) {
	t.Run("match makes document postable", func(t *testing.T) {
		record, err := NewRawDocumentRecord(uuid.New(), 10)
		require.NoError(t, err)

		require.NoError(t, record.ApplyReconciliation(ReconcileCounts(10, 10, 10)))
		assert.Equal(t, ReconciliationMatch, record.Status)
		assert.True(t, record.Postable)
		assert.Empty(t, record.Reason)
	})

	t.Run("mismatch is a hard stop", func(t *testing.T) {
		record, err := NewRawDocumentRecord(uuid.New(), 10)
		require.NoError(t, err)

		require.NoError(t, record.ApplyReconciliation(ReconcileCounts(10, 10, 8)))
		assert.Equal(t, ReconciliationMismatch, record.Status)
		assert.False(t, record.Postable)
		assert.Equal(t, string(ReasonPartialParse), record.Reason)
	})

	t.Run("pending verdict is rejected", func(t *testing.T) {
		record, err := NewRawDocumentRecord(uuid.New(), 10)
		require.NoError(t, err)

		err = record.ApplyReconciliation(ReconciliationResult{Status: ReconciliationPending})
		assert.Error(t, err)
	})
}
