package persistence

import (
	"context"
	"fmt"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/docintake/backend/internal/domain/intake"
)

// ExceptionReviewQueue implements intakeapp.ReviewQueue by persisting
// exception records through the exception repository. The HTTP exception
// endpoints list and resolve what is submitted here.
type ExceptionReviewQueue struct {
	exceptions intake.ExceptionRepository
}

var _ intakeapp.ReviewQueue = (*ExceptionReviewQueue)(nil)

// NewExceptionReviewQueue creates a new ExceptionReviewQueue
func NewExceptionReviewQueue(exceptions intake.ExceptionRepository) *ExceptionReviewQueue {
	return &ExceptionReviewQueue{exceptions: exceptions}
}

// Submit stores the exception record for manual resolution
func (q *ExceptionReviewQueue) Submit(ctx context.Context, record *intake.ExceptionRecord) error {
	if record == nil {
		return fmt.Errorf("exception record is required")
	}
	if err := q.exceptions.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to enqueue exception record: %w", err)
	}
	return nil
}
