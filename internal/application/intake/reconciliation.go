package intakeapp

import (
	"context"
	"fmt"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconciliationService is the authority on whether a parsed document is
// complete enough to be trusted by downstream consumers. A mismatch is a
// hard stop: the document is marked not postable and a high-severity
// exception is raised for manual resolution.
type ReconciliationService struct {
	rawDocs     intake.RawDocumentRepository
	reviewQueue ReviewQueue
	logger      *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	rawDocs intake.RawDocumentRepository,
	reviewQueue ReviewQueue,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		rawDocs:     rawDocs,
		reviewQueue: reviewQueue,
		logger:      logger,
	}
}

// Reconcile compares the declared line count against the stored and parsed
// counts for a transaction's document and persists the verdict. The stored
// count is read back from the repository rather than trusted from the
// caller, so lines lost between parse and persistence are detected.
func (s *ReconciliationService) Reconcile(
	ctx context.Context,
	transactionID uuid.UUID,
	declaredLines, parsedLines int,
) (intake.ReconciliationResult, error) {
	record, err := s.rawDocs.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return intake.ReconciliationResult{}, fmt.Errorf("failed to load raw document record: %w", err)
	}

	storedLines, err := s.rawDocs.CountUnits(ctx, transactionID)
	if err != nil {
		return intake.ReconciliationResult{}, fmt.Errorf("failed to count stored units: %w", err)
	}

	if err := record.RecordCounts(storedLines, parsedLines); err != nil {
		return intake.ReconciliationResult{}, err
	}

	result := intake.ReconcileCounts(declaredLines, storedLines, parsedLines)
	if err := record.ApplyReconciliation(result); err != nil {
		return intake.ReconciliationResult{}, err
	}
	if err := s.rawDocs.Save(ctx, record); err != nil {
		return intake.ReconciliationResult{}, fmt.Errorf("failed to save raw document record: %w", err)
	}

	if result.Status == intake.ReconciliationMismatch {
		s.logger.Warn("Reconciliation mismatch",
			zap.String("transaction_id", transactionID.String()),
			zap.String("reason", string(result.Reason)),
			zap.Int("declared", declaredLines),
			zap.Int("stored", storedLines),
			zap.Int("parsed", parsedLines),
		)
		exception, exErr := intake.NewExceptionRecord(
			transactionID,
			intake.ExceptionReconciliation,
			intake.SeverityHigh,
			result.Reason,
			result.Detail,
		)
		if exErr != nil {
			return result, exErr
		}
		if err := s.reviewQueue.Submit(ctx, exception); err != nil {
			return result, fmt.Errorf("failed to raise reconciliation exception: %w", err)
		}
	}

	return result, nil
}
